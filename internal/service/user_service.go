package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	dom "github.com/birlikkoshan/tasksync/internal/domain"
	"github.com/birlikkoshan/tasksync/internal/realtime"
	"github.com/birlikkoshan/tasksync/internal/repo"
	"github.com/birlikkoshan/tasksync/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLen = 80

// TokenIssuer signs a token for an authenticated user.
type TokenIssuer interface {
	Issue(u dom.User) (token string, expiresAt time.Time, err error)
}

// Invalidator drops cached task listings.
type Invalidator interface {
	Invalidate(ctx context.Context, listIDs ...int64) error
}

// Session is the result of a successful login.
type Session struct {
	User      dom.User
	Token     string
	ExpiresAt time.Time
}

// UserService handles registration, login and account removal.
type UserService struct {
	repo   repo.UserRepo
	tokens TokenIssuer
	bus    realtime.Bus
	cache  Invalidator
	cost   int

	dummyOnce sync.Once
	dummyHash []byte
}

type UserOption func(*UserService)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) UserOption {
	return func(s *UserService) { s.cost = cost }
}

// WithInvalidator enables cache invalidation when an account is deleted.
func WithInvalidator(c Invalidator) UserOption {
	return func(s *UserService) { s.cache = c }
}

// NewUserService returns a new UserService.
func NewUserService(r repo.UserRepo, tokens TokenIssuer, bus realtime.Bus, opts ...UserOption) *UserService {
	s := &UserService{repo: r, tokens: tokens, bus: bus, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks username and password and issues a token. Unknown users and
// wrong passwords are indistinguishable, including in timing.
func (s *UserService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

// Register creates a new user with hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return dom.User{}, validationError("username and password are required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return dom.User{}, validationError("username must be at most %d characters", maxUsernameLen)
	}

	_, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return dom.User{}, ErrUsernameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return dom.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return dom.User{}, validationError("password is too long")
		}
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, username, string(hash))
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			// Lost a race with a concurrent registration of the same name.
			return dom.User{}, ErrRegistrationFailed
		}
		return dom.User{}, err
	}
	return u, nil
}

// DeleteAccount removes the user with every list and task they own.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	listIDs, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return notFound(err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, listIDs...)
	}
	for _, id := range listIDs {
		s.bus.Publish(realtime.ListDeleted(userID, id))
		s.bus.Publish(realtime.ListClosed(id))
	}
	return nil
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tasksync-login-padding"), s.cost)
	})
	return s.dummyHash
}
