package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	dom "github.com/birlikkoshan/tasksync/internal/domain"
	"github.com/birlikkoshan/tasksync/internal/realtime"
	"github.com/birlikkoshan/tasksync/internal/repo"
	"github.com/birlikkoshan/tasksync/internal/utils"
)

const maxListNameLen = 100

type ListService struct {
	repo  repo.ListRepo
	bus   realtime.Bus
	cache Invalidator
}

// NewListService creates a ListService. A nil c disables cache invalidation.
func NewListService(r repo.ListRepo, bus realtime.Bus, c Invalidator) *ListService {
	return &ListService{repo: r, bus: bus, cache: c}
}

func (s *ListService) List(ctx context.Context, userID int64) ([]dom.List, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ListService) Create(ctx context.Context, userID int64, name string) (dom.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return dom.List{}, validationError("name is required")
	}
	if utf8.RuneCountInString(name) > maxListNameLen {
		return dom.List{}, validationError("name must be at most %d characters", maxListNameLen)
	}
	l, err := s.repo.Create(ctx, userID, name)
	if err != nil {
		if utils.IsPGForeignKeyViolation(err) {
			// The owner was deleted after the token was checked.
			return dom.List{}, ErrNotFound
		}
		return dom.List{}, err
	}
	s.bus.Publish(realtime.ListAdded(l))
	return l, nil
}

// Delete removes the list and its tasks. Subscribers of the list topic are
// told the list is gone.
func (s *ListService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return notFound(err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, id)
	}
	s.bus.Publish(realtime.ListDeleted(userID, id))
	s.bus.Publish(realtime.ListClosed(id))
	return nil
}

// OwnsList reports whether userID owns listID.
func (s *ListService) OwnsList(ctx context.Context, userID, listID int64) (bool, error) {
	_, err := s.repo.GetOwned(ctx, userID, listID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
