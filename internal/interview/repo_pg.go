package interview

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo stores the state as a JSONB row in Postgres.
type PGRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewPGRepo constructs a PGRepo.
func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: db, now: time.Now}
}

// Load reads the state row.
func (r *PGRepo) Load(ctx context.Context) (State, error) {
	const query = `SELECT payload FROM interview_state WHERE id = $1`
	var payload []byte
	if err := r.DB.QueryRowContext(ctx, query, stateRowID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}
	return decodeState(payload)
}

// Save upserts the state row.
func (r *PGRepo) Save(ctx context.Context, st State) error {
	const query = `
INSERT INTO interview_state (id, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET payload = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at`
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, stateRowID, payload, r.now().UTC())
	return err
}
