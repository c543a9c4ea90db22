package repo

import (
	"context"
	"database/sql"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/jmoiron/sqlx"
)

// UserRepo provides user persistence.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (dom.User, error)
	GetByID(ctx context.Context, id int64) (dom.User, error)
	Create(ctx context.Context, username, passwordHash string) (dom.User, error)
	// Delete removes the user and, by cascade, all owned lists and tasks.
	// It returns the ids of the removed lists.
	Delete(ctx context.Context, id int64) ([]int64, error)
}

type userRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() dom.User {
	return dom.User{ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt}
}

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db *sqlx.DB
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db *sqlx.DB) *PGUserRepo {
	return &PGUserRepo{db: db}
}

// GetByUsername returns the user by username.
func (r *PGUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	)
	return row.toDomain(), err
}

// GetByID returns the user by id.
func (r *PGUserRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`,
		id,
	)
	return row.toDomain(), err
}

// Create inserts a new user and returns it.
func (r *PGUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at`
	var row userRow
	err := r.db.GetContext(ctx, &row, query, username, passwordHash)
	return row.toDomain(), err
}

func (r *PGUserRepo) Delete(ctx context.Context, id int64) ([]int64, error) {
	var listIDs []int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &listIDs,
			`SELECT id FROM lists WHERE user_id = $1 ORDER BY id FOR UPDATE`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listIDs, nil
}
