// Package repotest provides an in-memory Store that satisfies the repo
// interfaces with the same ownership and ordering rules as Postgres.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store keeps users, lists and tasks in maps guarded by one mutex, which
// makes every method atomic.
type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]dom.User
	lists  map[int64]dom.List
	tasks  map[int64]dom.Task

	// Err, when set, is returned by every call.
	Err error
}

func New() *Store {
	return &Store{
		users: make(map[int64]dom.User),
		lists: make(map[int64]dom.List),
		tasks: make(map[int64]dom.Task),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Users returns the Store as a repo.UserRepo.
func (s *Store) Users() *Users { return (*Users)(s) }

// Lists returns the Store as a repo.ListRepo.
func (s *Store) Lists() *Lists { return (*Lists)(s) }

// Tasks returns the Store as a repo.TaskRepo.
func (s *Store) Tasks() *Tasks { return (*Tasks)(s) }

type Users Store

func (u *Users) GetByUsername(_ context.Context, username string) (dom.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.User{}, s.Err
	}
	for _, usr := range s.users {
		if usr.Username == username {
			return usr, nil
		}
	}
	return dom.User{}, sql.ErrNoRows
}

func (u *Users) GetByID(_ context.Context, id int64) (dom.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.User{}, s.Err
	}
	usr, ok := s.users[id]
	if !ok {
		return dom.User{}, sql.ErrNoRows
	}
	return usr, nil
}

func (u *Users) Create(_ context.Context, username, passwordHash string) (dom.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.User{}, s.Err
	}
	for _, usr := range s.users {
		if usr.Username == username {
			return dom.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	usr := dom.User{ID: s.id(), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	s.users[usr.ID] = usr
	return usr, nil
}

func (u *Users) Delete(_ context.Context, id int64) ([]int64, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, ok := s.users[id]; !ok {
		return nil, sql.ErrNoRows
	}
	var listIDs []int64
	for _, l := range s.lists {
		if l.UserID == id {
			listIDs = append(listIDs, l.ID)
		}
	}
	sort.Slice(listIDs, func(i, j int) bool { return listIDs[i] < listIDs[j] })
	for _, lid := range listIDs {
		s.deleteListLocked(lid)
	}
	delete(s.users, id)
	return listIDs, nil
}

type Lists Store

func (l *Lists) ListByUser(_ context.Context, userID int64) ([]dom.List, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []dom.List{}
	for _, lst := range s.lists {
		if lst.UserID == userID {
			out = append(out, lst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *Lists) GetOwned(_ context.Context, userID, id int64) (dom.List, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.List{}, s.Err
	}
	lst, ok := s.ownedLocked(userID, id)
	if !ok {
		return dom.List{}, sql.ErrNoRows
	}
	return lst, nil
}

func (l *Lists) Create(_ context.Context, userID int64, name string) (dom.List, error) {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.List{}, s.Err
	}
	if _, ok := s.users[userID]; !ok {
		return dom.List{}, &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	lst := dom.List{ID: s.id(), UserID: userID, Name: name, CreatedAt: time.Now().UTC()}
	s.lists[lst.ID] = lst
	return lst, nil
}

func (l *Lists) Delete(_ context.Context, userID, id int64) error {
	s := (*Store)(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.ownedLocked(userID, id); !ok {
		return sql.ErrNoRows
	}
	s.deleteListLocked(id)
	return nil
}

type Tasks Store

func (t *Tasks) ListByList(_ context.Context, listID int64) ([]dom.Task, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []dom.Task{}
	for _, task := range s.tasks {
		if task.ListID == listID {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Position != nil && b.Position != nil && *a.Position != *b.Position:
			return *a.Position < *b.Position
		case a.Position != nil && b.Position == nil:
			return true
		case a.Position == nil && b.Position != nil:
			return false
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (t *Tasks) Create(_ context.Context, userID int64, task dom.Task) (dom.Task, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.Task{}, s.Err
	}
	if _, ok := s.ownedLocked(userID, task.ListID); !ok {
		return dom.Task{}, sql.ErrNoRows
	}
	now := time.Now().UTC()
	task.ID = s.id()
	task.Position = nil
	task.CreatedAt, task.UpdatedAt = now, now
	s.tasks[task.ID] = task
	return task, nil
}

func (t *Tasks) Update(_ context.Context, userID, id int64, patch dom.TaskPatch) (dom.Task, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.Task{}, s.Err
	}
	task, ok := s.ownedTaskLocked(userID, id)
	if !ok {
		return dom.Task{}, sql.ErrNoRows
	}
	task = patch.Apply(task)
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return task, nil
}

func (t *Tasks) Delete(_ context.Context, userID, id int64) (dom.Task, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return dom.Task{}, s.Err
	}
	task, ok := s.ownedTaskLocked(userID, id)
	if !ok {
		return dom.Task{}, sql.ErrNoRows
	}
	delete(s.tasks, id)
	return task, nil
}

func (t *Tasks) Reorder(_ context.Context, userID, listID int64, ids []int64) error {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.ownedLocked(userID, listID); !ok {
		return sql.ErrNoRows
	}
	for i, id := range ids {
		task, ok := s.tasks[id]
		if !ok || task.ListID != listID {
			continue
		}
		pos := i
		task.Position = &pos
		s.tasks[id] = task
	}
	return nil
}

func (s *Store) ownedLocked(userID, listID int64) (dom.List, bool) {
	lst, ok := s.lists[listID]
	if !ok || lst.UserID != userID {
		return dom.List{}, false
	}
	return lst, true
}

func (s *Store) ownedTaskLocked(userID, taskID int64) (dom.Task, bool) {
	task, ok := s.tasks[taskID]
	if !ok {
		return dom.Task{}, false
	}
	if _, owned := s.ownedLocked(userID, task.ListID); !owned {
		return dom.Task{}, false
	}
	return task, true
}

func (s *Store) deleteListLocked(listID int64) {
	for id, task := range s.tasks {
		if task.ListID == listID {
			delete(s.tasks, id)
		}
	}
	delete(s.lists, listID)
}
