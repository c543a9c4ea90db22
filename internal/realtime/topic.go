package realtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic names a broadcast scope.
type Topic string

const (
	listTopicPrefix = "list:"
	userTopicPrefix = "user:"
)

// ListTopic carries task events of one list.
func ListTopic(listID int64) Topic {
	return Topic(listTopicPrefix + strconv.FormatInt(listID, 10))
}

// UserTopic carries list events of one user.
func UserTopic(userID int64) Topic {
	return Topic(userTopicPrefix + strconv.FormatInt(userID, 10))
}

// ParseTopic splits a topic into its kind ("list" or "user") and id.
func ParseTopic(s string) (kind string, id int64, err error) {
	kind, raw, ok := strings.Cut(s, ":")
	if !ok || (kind != "list" && kind != "user") {
		return "", 0, fmt.Errorf("unknown topic %q", s)
	}
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid id in topic %q", s)
	}
	return kind, id, nil
}
