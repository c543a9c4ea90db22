package repo

import (
	"context"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// TaskRepo provides task persistence and ordering. Methods taking a userID
// only touch tasks whose list belongs to that user.
type TaskRepo interface {
	ListByList(ctx context.Context, listID int64) ([]dom.Task, error)
	Create(ctx context.Context, userID int64, t dom.Task) (dom.Task, error)
	Update(ctx context.Context, userID, id int64, patch dom.TaskPatch) (dom.Task, error)
	Delete(ctx context.Context, userID, id int64) (dom.Task, error)
	// Reorder sets position = index in ids for every id that belongs to the
	// list. Ids from other lists are ignored and tasks missing from ids keep
	// their position. On duplicates the last index wins.
	Reorder(ctx context.Context, userID, listID int64, ids []int64) error
}

const taskColumns = `id, list_id, text, completed, priority, due_date, position, created_at, updated_at`

type taskRow struct {
	ID        int64     `db:"id"`
	ListID    int64     `db:"list_id"`
	Text      string    `db:"text"`
	Completed bool      `db:"completed"`
	Priority  string    `db:"priority"`
	DueDate   *string   `db:"due_date"`
	Position  *int      `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r taskRow) toDomain() dom.Task {
	return dom.Task{
		ID:        r.ID,
		ListID:    r.ListID,
		Text:      r.Text,
		Completed: r.Completed,
		Priority:  dom.Priority(r.Priority),
		DueDate:   r.DueDate,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type PGTaskRepo struct {
	db *sqlx.DB
}

func NewPGTaskRepo(db *sqlx.DB) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func (r *PGTaskRepo) ListByList(ctx context.Context, listID int64) ([]dom.Task, error) {
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+taskColumns+` FROM tasks WHERE list_id = $1 ORDER BY position ASC NULLS LAST, id ASC`,
		listID,
	); err != nil {
		return nil, err
	}
	out := make([]dom.Task, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// Create inserts the task only if t.ListID is owned by userID; otherwise it
// returns sql.ErrNoRows.
func (r *PGTaskRepo) Create(ctx context.Context, userID int64, t dom.Task) (dom.Task, error) {
	query := `
		INSERT INTO tasks (list_id, text, priority, due_date)
		SELECT l.id, $2, $3, $4 FROM lists l WHERE l.id = $1 AND l.user_id = $5
		RETURNING ` + taskColumns
	var row taskRow
	err := r.db.GetContext(ctx, &row, query, t.ListID, t.Text, string(t.Priority), t.DueDate, userID)
	return row.toDomain(), err
}

func (r *PGTaskRepo) Update(ctx context.Context, userID, id int64, patch dom.TaskPatch) (dom.Task, error) {
	b := psql.Update("tasks").Set("updated_at", sq.Expr("NOW()"))
	if patch.Text != nil {
		b = b.Set("text", *patch.Text)
	}
	if patch.Completed != nil {
		b = b.Set("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		b = b.Set("priority", string(*patch.Priority))
	}
	if patch.ClearDueDate {
		b = b.Set("due_date", nil)
	} else if patch.DueDate != nil {
		b = b.Set("due_date", *patch.DueDate)
	}
	query, args, err := b.
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("list_id IN (SELECT id FROM lists WHERE user_id = ?)", userID)).
		Suffix("RETURNING " + taskColumns).
		ToSql()
	if err != nil {
		return dom.Task{}, err
	}
	var row taskRow
	err = r.db.GetContext(ctx, &row, query, args...)
	return row.toDomain(), err
}

// Delete locks the owning list before removing the task so that it
// serializes with Reorder on the same list.
func (r *PGTaskRepo) Delete(ctx context.Context, userID, id int64) (dom.Task, error) {
	var row taskRow
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var listID int64
		if err := tx.GetContext(ctx, &listID, `
			SELECT l.id FROM lists l
			JOIN tasks t ON t.list_id = l.id
			WHERE t.id = $1 AND l.user_id = $2
			FOR UPDATE OF l`,
			id, userID,
		); err != nil {
			return err
		}
		return tx.GetContext(ctx, &row,
			`DELETE FROM tasks WHERE id = $1 AND list_id = $2 RETURNING `+taskColumns,
			id, listID,
		)
	})
	if err != nil {
		return dom.Task{}, err
	}
	return row.toDomain(), nil
}

func (r *PGTaskRepo) Reorder(ctx context.Context, userID, listID int64, ids []int64) error {
	positions := make(map[int64]int, len(ids))
	order := make([]int64, 0, len(ids))
	for i, id := range ids {
		if _, seen := positions[id]; !seen {
			order = append(order, id)
		}
		positions[id] = i
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked int64
		if err := tx.GetContext(ctx, &locked,
			`SELECT id FROM lists WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			listID, userID,
		); err != nil {
			return err
		}
		if len(order) == 0 {
			return nil
		}

		pos := sq.Case("id")
		for _, id := range order {
			pos = pos.When(sq.Expr("?", id), sq.Expr("?::integer", positions[id]))
		}
		query, args, err := psql.Update("tasks").
			Set("position", pos).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"list_id": listID, "id": order}).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
}
