package realtime

import (
	"encoding/json"

	dom "github.com/birlikkoshan/tasksync/internal/domain"
)

// Event names pushed to clients.
const (
	EventTaskUpdate = "task_update"
	EventListUpdate = "list_update"
)

const (
	ActionAdd     = "add"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionReorder = "reorder"
)

// Event is one message for one topic. Data is the already encoded payload.
type Event struct {
	Topic Topic           `json:"topic"`
	Name  string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Bus publishes events. Implementations must not block the caller.
type Bus interface {
	Publish(ev Event)
}

type TaskView struct {
	ID        int64   `json:"id"`
	ListID    int64   `json:"list_id"`
	Text      string  `json:"text"`
	Completed bool    `json:"completed"`
	Priority  string  `json:"priority"`
	DueDate   *string `json:"due_date"`
	Position  *int    `json:"position"`
}

type ListView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type TaskUpdate struct {
	Action  string    `json:"action"`
	Task    *TaskView `json:"task,omitempty"`
	TaskID  int64     `json:"task_id,omitempty"`
	ListID  int64     `json:"list_id,omitempty"`
	TaskIDs []int64   `json:"task_ids,omitempty"`
}

type ListUpdate struct {
	Action string    `json:"action"`
	List   *ListView `json:"list,omitempty"`
	ListID int64     `json:"list_id,omitempty"`
}

func newEvent(topic Topic, name string, payload any) Event {
	// Payload types above contain only plain fields; Marshal cannot fail.
	b, _ := json.Marshal(payload)
	return Event{Topic: topic, Name: name, Data: b}
}

func viewOf(t dom.Task) *TaskView {
	return &TaskView{
		ID:        t.ID,
		ListID:    t.ListID,
		Text:      t.Text,
		Completed: t.Completed,
		Priority:  string(t.Priority),
		DueDate:   t.DueDate,
		Position:  t.Position,
	}
}

func TaskAdded(t dom.Task) Event {
	return newEvent(ListTopic(t.ListID), EventTaskUpdate, TaskUpdate{Action: ActionAdd, Task: viewOf(t)})
}

func TaskUpdated(t dom.Task) Event {
	return newEvent(ListTopic(t.ListID), EventTaskUpdate, TaskUpdate{Action: ActionUpdate, Task: viewOf(t)})
}

func TaskDeleted(t dom.Task) Event {
	return newEvent(ListTopic(t.ListID), EventTaskUpdate, TaskUpdate{Action: ActionDelete, TaskID: t.ID, ListID: t.ListID})
}

func TasksReordered(listID int64, ids []int64) Event {
	return newEvent(ListTopic(listID), EventTaskUpdate, TaskUpdate{Action: ActionReorder, ListID: listID, TaskIDs: ids})
}

func ListAdded(l dom.List) Event {
	return newEvent(UserTopic(l.UserID), EventListUpdate, ListUpdate{Action: ActionAdd, List: &ListView{ID: l.ID, Name: l.Name}})
}

// ListDeleted goes to the owner's topic.
func ListDeleted(userID, listID int64) Event {
	return newEvent(UserTopic(userID), EventListUpdate, ListUpdate{Action: ActionDelete, ListID: listID})
}

// ListClosed tells connections still joined to a deleted list's topic.
func ListClosed(listID int64) Event {
	return newEvent(ListTopic(listID), EventListUpdate, ListUpdate{Action: ActionDelete, ListID: listID})
}

// frame is the wire shape of every server-to-client message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func encodeFrame(name string, data json.RawMessage) []byte {
	if data == nil {
		data = json.RawMessage("{}")
	}
	b, _ := json.Marshal(frame{Event: name, Data: data})
	return b
}
