package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/birlikkoshan/tasksync/internal/cache"
	dom "github.com/birlikkoshan/tasksync/internal/domain"
	"github.com/birlikkoshan/tasksync/internal/realtime"
	"github.com/birlikkoshan/tasksync/internal/repo"

	"golang.org/x/sync/singleflight"
)

const (
	maxTaskTextLen = 200
	maxDueDateLen  = 20
)

// NewTask is the input of TaskService.Create.
type NewTask struct {
	Text     string
	Priority string
	DueDate  *string
}

// TaskChanges is the input of TaskService.Update. Nil fields are left
// unchanged. When SetDueDate is true DueDate replaces the stored value,
// and a nil DueDate clears it.
type TaskChanges struct {
	Text       *string
	Completed  *bool
	Priority   *string
	DueDate    *string
	SetDueDate bool
}

type TaskService struct {
	tasks repo.TaskRepo
	lists repo.ListRepo
	cache *cache.TaskCache
	bus   realtime.Bus
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(tasks repo.TaskRepo, lists repo.ListRepo, c *cache.TaskCache, bus realtime.Bus) *TaskService {
	return &TaskService{tasks: tasks, lists: lists, cache: c, bus: bus}
}

// List returns the tasks of an owned list in display order.
func (s *TaskService) List(ctx context.Context, userID, listID int64) ([]dom.Task, error) {
	if _, err := s.lists.GetOwned(ctx, userID, listID); err != nil {
		return nil, notFound(err)
	}
	if s.cache == nil {
		return s.tasks.ListByList(ctx, listID)
	}

	v, err, _ := s.sf.Do(flightKey(listID), func() (interface{}, error) {
		gen, list, cerr := s.cache.GetTasks(ctx, listID)
		if cerr == nil && list != nil {
			return list, nil
		}
		list, err := s.tasks.ListByList(ctx, listID)
		if err != nil {
			return nil, err
		}
		if cerr == nil {
			_ = s.cache.SetTasks(ctx, listID, gen, list)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

func (s *TaskService) Create(ctx context.Context, userID, listID int64, in NewTask) (dom.Task, error) {
	text, err := checkText(in.Text)
	if err != nil {
		return dom.Task{}, err
	}
	prio, _ := dom.ParsePriority(in.Priority)
	due, err := checkDueDate(in.DueDate)
	if err != nil {
		return dom.Task{}, err
	}

	t, err := s.tasks.Create(ctx, userID, dom.Task{
		ListID:   listID,
		Text:     text,
		Priority: prio,
		DueDate:  due,
	})
	if err != nil {
		return dom.Task{}, notFound(err)
	}
	s.invalidate(ctx, listID)
	s.bus.Publish(realtime.TaskAdded(t))
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id int64, in TaskChanges) (dom.Task, error) {
	var patch dom.TaskPatch
	if in.Text != nil {
		text, err := checkText(*in.Text)
		if err != nil {
			return dom.Task{}, err
		}
		patch.Text = &text
	}
	patch.Completed = in.Completed
	if in.Priority != nil {
		if p, ok := dom.ParsePriority(*in.Priority); ok {
			patch.Priority = &p
		}
	}
	if in.SetDueDate {
		due, err := checkDueDate(in.DueDate)
		if err != nil {
			return dom.Task{}, err
		}
		patch.DueDate = due
		patch.ClearDueDate = due == nil
	}

	t, err := s.tasks.Update(ctx, userID, id, patch)
	if err != nil {
		return dom.Task{}, notFound(err)
	}
	s.invalidate(ctx, t.ListID)
	s.bus.Publish(realtime.TaskUpdated(t))
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	t, err := s.tasks.Delete(ctx, userID, id)
	if err != nil {
		return notFound(err)
	}
	s.invalidate(ctx, t.ListID)
	s.bus.Publish(realtime.TaskDeleted(t))
	return nil
}

// Reorder assigns each task its index in ids as position. See
// repo.TaskRepo.Reorder for how foreign, duplicate and omitted ids are
// treated.
func (s *TaskService) Reorder(ctx context.Context, userID, listID int64, ids []int64) error {
	if listID <= 0 {
		return validationError("list_id is required")
	}
	if err := s.tasks.Reorder(ctx, userID, listID, ids); err != nil {
		return notFound(err)
	}
	if len(ids) == 0 {
		return nil
	}
	s.invalidate(ctx, listID)
	s.bus.Publish(realtime.TasksReordered(listID, ids))
	return nil
}

// invalidate runs after commit. Forgetting the flight keeps later readers
// from joining a read that started before the mutation.
func (s *TaskService) invalidate(ctx context.Context, listID int64) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, listID)
		s.sf.Forget(flightKey(listID))
	}
}

func flightKey(listID int64) string {
	return "tasks:" + strconv.FormatInt(listID, 10)
}

func checkText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", validationError("text is required")
	}
	if utf8.RuneCountInString(text) > maxTaskTextLen {
		return "", validationError("text must be at most %d characters", maxTaskTextLen)
	}
	return text, nil
}

// checkDueDate trims d and treats blank as absent.
func checkDueDate(d *string) (*string, error) {
	if d == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > maxDueDateLen {
		return nil, validationError("due_date must be at most %d characters", maxDueDateLen)
	}
	return &v, nil
}
