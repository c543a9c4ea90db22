package domain

import "time"

// List is a named container of tasks owned by exactly one user.
type List struct {
	ID        int64
	UserID    int64
	Name      string
	CreatedAt time.Time
}
