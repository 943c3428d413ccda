package interview

import (
	"context"
	"sync"
)

// MemoryRepo keeps the serialized state in memory. It round-trips through
// JSON so it behaves like the durable repos.
type MemoryRepo struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Load returns the last saved state.
func (r *MemoryRepo) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return State{}, ErrNotFound
	}
	return decodeState(r.data)
}

// Save replaces the stored state.
func (r *MemoryRepo) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeState(st)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}
