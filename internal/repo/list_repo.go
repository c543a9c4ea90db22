package repo

import (
	"context"
	"database/sql"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/jmoiron/sqlx"
)

// ListRepo provides ownership-scoped list persistence.
type ListRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]dom.List, error)
	GetOwned(ctx context.Context, userID, id int64) (dom.List, error)
	Create(ctx context.Context, userID int64, name string) (dom.List, error)
	Delete(ctx context.Context, userID, id int64) error
}

type listRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r listRow) toDomain() dom.List {
	return dom.List{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: r.CreatedAt}
}

type PGListRepo struct {
	db *sqlx.DB
}

func NewPGListRepo(db *sqlx.DB) *PGListRepo {
	return &PGListRepo{db: db}
}

func (r *PGListRepo) ListByUser(ctx context.Context, userID int64) ([]dom.List, error) {
	var rows []listRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, name, created_at FROM lists WHERE user_id = $1 ORDER BY id ASC`,
		userID,
	); err != nil {
		return nil, err
	}
	out := make([]dom.List, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *PGListRepo) GetOwned(ctx context.Context, userID, id int64) (dom.List, error) {
	var row listRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, user_id, name, created_at FROM lists WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return row.toDomain(), err
}

func (r *PGListRepo) Create(ctx context.Context, userID int64, name string) (dom.List, error) {
	var row listRow
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO lists (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name, created_at`,
		userID, name,
	)
	return row.toDomain(), err
}

// Delete removes the list; its tasks go with it through ON DELETE CASCADE
// inside the same statement.
func (r *PGListRepo) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lists WHERE id = $1 AND user_id = $2`, id, userID)
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
}
