package interview

import (
	"context"
	"encoding/json"
	"fmt"
)

// Repo persists the whole interview state. Load returns ErrNotFound when
// nothing has been saved yet.
type Repo interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

// stateRowID keys the single persisted state row.
const stateRowID = "current"

func encodeState(st State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode interview state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode interview state: %w", err)
	}
	st.normalize()
	return st, nil
}
