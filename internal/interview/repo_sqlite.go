package interview

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteRepo stores the state as a JSON text row in SQLite.
type SQLiteRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSQLiteRepo constructs a SQLiteRepo.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{DB: db, now: time.Now}
}

// Load reads the state row.
func (r *SQLiteRepo) Load(ctx context.Context) (State, error) {
	const query = `SELECT payload FROM interview_state WHERE id = ?`
	var payload string
	if err := r.DB.QueryRowContext(ctx, query, stateRowID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}
	return decodeState([]byte(payload))
}

// Save upserts the state row.
func (r *SQLiteRepo) Save(ctx context.Context, st State) error {
	const query = `
INSERT INTO interview_state (id, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET payload = excluded.payload,
    updated_at = excluded.updated_at`
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, stateRowID, string(payload), r.now().UTC().Format(time.RFC3339Nano))
	return err
}
