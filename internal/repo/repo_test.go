package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskCols = []string{"id", "list_id", "text", "completed", "priority", "due_date", "position", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func TestPGUserRepo_GetByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow(int64(7), "alice", "$2a$hash", now))

	u, err := r.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGUserRepo(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}))

	_, err := r.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUserRepo_Delete(t *testing.T) {
	t.Run("returns removed list ids", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGUserRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists WHERE user_id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)).AddRow(int64(11)))
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ids, err := r.Delete(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 11}, ids)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGUserRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists WHERE user_id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := r.Delete(context.Background(), 3)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPGListRepo_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGListRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, name, created_at FROM lists WHERE user_id = \$1 ORDER BY id ASC`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at"}).
			AddRow(int64(1), int64(1), "Groceries", now).
			AddRow(int64(4), int64(1), "Work", now))

	lists, err := r.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "Groceries", lists[0].Name)
	assert.Equal(t, int64(4), lists[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGListRepo_Delete_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGListRepo(db)

	mock.ExpectExec(`DELETE FROM lists WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Delete(context.Background(), 2, 5)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGTaskRepo_Create_ScopedToOwner(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGTaskRepo(db)
	due := "2024-01-01"

	mock.ExpectQuery(`INSERT INTO tasks \(list_id, text, priority, due_date\)\s+SELECT l.id, \$2, \$3, \$4 FROM lists l WHERE l.id = \$1 AND l.user_id = \$5`).
		WithArgs(int64(5), "Buy milk", "High", &due, int64(2)).
		WillReturnRows(sqlmock.NewRows(taskCols))

	_, err := r.Create(context.Background(), 2, dom.Task{ListID: 5, Text: "Buy milk", Priority: dom.PriorityHigh, DueDate: &due})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGTaskRepo_ListByList_NullPositionsLast(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGTaskRepo(db)
	now := time.Now()

	mock.ExpectQuery(`FROM tasks WHERE list_id = \$1 ORDER BY position ASC NULLS LAST, id ASC`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(2), int64(5), "b", false, "Low", nil, int64(0), now, now).
			AddRow(int64(1), int64(5), "a", true, "Medium", "2024-01-01", nil, now, now))

	tasks, err := r.ListByList(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.NotNil(t, tasks[0].Position)
	assert.Equal(t, 0, *tasks[0].Position)
	assert.Nil(t, tasks[0].DueDate)
	assert.Nil(t, tasks[1].Position)
	assert.Equal(t, "2024-01-01", *tasks[1].DueDate)
	assert.Equal(t, dom.PriorityMedium, tasks[1].Priority)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGTaskRepo_Update_OnlySuppliedFields(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGTaskRepo(db)
	now := time.Now()
	done := true

	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE tasks SET updated_at = NOW(), completed = $1, due_date = $2 WHERE id = $3 AND list_id IN (SELECT id FROM lists WHERE user_id = $4) RETURNING `)).
		WithArgs(true, nil, int64(9), int64(2)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(9), int64(5), "Buy milk", true, "High", nil, nil, now, now))

	got, err := r.Update(context.Background(), 2, 9, dom.TaskPatch{Completed: &done, ClearDueDate: true})
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "Buy milk", got.Text)
	assert.Nil(t, got.DueDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGTaskRepo_Delete_LocksList(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGTaskRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT l.id FROM lists l\s+JOIN tasks t ON t.list_id = l.id\s+WHERE t.id = \$1 AND l.user_id = \$2\s+FOR UPDATE OF l`).
		WithArgs(int64(9), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(`DELETE FROM tasks WHERE id = \$1 AND list_id = \$2 RETURNING`).
		WithArgs(int64(9), int64(5)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(9), int64(5), "Buy milk", false, "Medium", nil, nil, now, now))
	mock.ExpectCommit()

	got, err := r.Delete(context.Background(), 2, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ListID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGTaskRepo_Delete_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewPGTaskRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT l.id FROM lists l`).
		WithArgs(int64(9), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := r.Delete(context.Background(), 3, 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGTaskRepo_Reorder(t *testing.T) {
	t.Run("assigns index positions in one statement", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGTaskRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
			WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec(regexp.QuoteMeta(
			`UPDATE tasks SET position = CASE id WHEN $1 THEN $2::integer WHEN $3 THEN $4::integer WHEN $5 THEN $6::integer END, updated_at = NOW() WHERE id IN ($7,$8,$9) AND list_id = $10`)).
			WithArgs(int64(30), 0, int64(10), 1, int64(20), 2, int64(30), int64(10), int64(20), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		err := r.Reorder(context.Background(), 2, 5, []int64{30, 10, 20})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id keeps last index", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGTaskRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
			WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec(`UPDATE tasks SET position = CASE id`).
			WithArgs(int64(10), 2, int64(20), 1, int64(10), int64(20), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, r.Reorder(context.Background(), 2, 5, []int64{10, 20, 10}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty sequence only checks ownership", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGTaskRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
			WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectCommit()

		require.NoError(t, r.Reorder(context.Background(), 2, 5, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign list rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGTaskRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
			WithArgs(int64(5), int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := r.Reorder(context.Background(), 3, 5, []int64{1})
		assert.ErrorIs(t, err, sql.ErrNoRows)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		r := NewPGTaskRepo(db)
		boom := errors.New("deadlock detected")

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM lists`).
			WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec(`UPDATE tasks SET position`).WillReturnError(boom)
		mock.ExpectRollback()

		err := r.Reorder(context.Background(), 2, 5, []int64{1, 2})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
