package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyListTasks = "tasks:list:"
	keyListGen   = "tasks:gen:"
)

// TaskCache caches the ordered task listing of each list in Redis.
//
// Every list has a generation counter that Invalidate increments. Listings
// are stored under the generation observed before the database read, so a
// fill that raced with a mutation lands under a generation nobody reads.
// Generation keys carry no TTL.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

func listKey(listID, gen int64) string {
	return keyListTasks + strconv.FormatInt(listID, 10) + ":" + strconv.FormatInt(gen, 10)
}

func genKey(listID int64) string {
	return keyListGen + strconv.FormatInt(listID, 10)
}

func (c *TaskCache) generation(ctx context.Context, listID int64) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(listID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetTasks returns the current generation and the listing cached for it, or
// a nil listing on a miss. An empty list that was cached is returned as a
// non-nil empty slice. Callers filling a miss pass gen to SetTasks.
func (c *TaskCache) GetTasks(ctx context.Context, listID int64) (gen int64, list []dom.Task, err error) {
	gen, err = c.generation(ctx, listID)
	if err != nil {
		return 0, nil, err
	}
	b, err := c.rdb.Get(ctx, listKey(listID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, nil, nil
	}
	if err != nil {
		return gen, nil, err
	}
	list = []dom.Task{}
	if err := json.Unmarshal(b, &list); err != nil {
		return gen, nil, err
	}
	return gen, list, nil
}

// SetTasks stores the listing read at generation gen.
func (c *TaskCache) SetTasks(ctx context.Context, listID, gen int64, list []dom.Task) error {
	if list == nil {
		list = []dom.Task{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(listID, gen), b, c.ttl).Err()
}

// Invalidate bumps the generation of each given list, orphaning whatever was
// cached or is being filled for it.
func (c *TaskCache) Invalidate(ctx context.Context, listIDs ...int64) error {
	if len(listIDs) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range listIDs {
			pipe.Incr(ctx, genKey(id))
		}
		return nil
	})
	return err
}
