package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const defaultWelcomeBackName = "Candidate"

// ResumeController decides, once per process, whether a persisted session
// should be offered back to the candidate.
type ResumeController struct {
	store *Store
	orch  *Orchestrator

	once   sync.Once
	raised bool
	err    error
}

// NewResumeController returns a controller for store and orch.
func NewResumeController(store *Store, orch *Orchestrator) *ResumeController {
	return &ResumeController{store: store, orch: orch}
}

// CheckOnce raises the welcome-back prompt when the loaded session is in
// progress. Later calls return the first result.
func (r *ResumeController) CheckOnce(ctx context.Context) (bool, error) {
	r.once.Do(func() {
		r.raised, r.err = r.store.RaiseWelcomeBack(ctx)
	})
	return r.raised, r.err
}

// Resume dismisses the prompt and re-arms the orchestrator at the persisted
// question index.
func (r *ResumeController) Resume(ctx context.Context) error {
	st := r.store.Snapshot()
	if st.CurrentInterview.Status != StatusInProgress {
		return invalidTransition("resume", st.CurrentInterview.Status)
	}
	if !st.Modal.ShowWelcomeBack {
		return fmt.Errorf("%w: no session waiting to resume", ErrInvalidTransition)
	}
	if _, err := r.store.ClearWelcomeBack(ctx); err != nil {
		return err
	}
	return r.orch.Enter(ctx)
}

// StartNew answers the welcome-back prompt by discarding the interrupted
// session and its candidate and opening a fresh upload. A live interview is
// never discarded.
func (r *ResumeController) StartNew(ctx context.Context) error {
	st := r.store.Snapshot()
	if st.CurrentInterview.Status != StatusInProgress {
		return invalidTransition("start_new", st.CurrentInterview.Status)
	}
	if !st.Modal.ShowWelcomeBack {
		return fmt.Errorf("%w: no session waiting to restart", ErrInvalidTransition)
	}
	r.orch.Reset()
	_, err := r.store.Discard(ctx)
	return err
}

// WelcomeBackName is the name shown in the resume prompt.
func (r *ResumeController) WelcomeBackName() string {
	c, ok := r.store.Snapshot().ActiveCandidate()
	if !ok || strings.TrimSpace(c.Name) == "" {
		return defaultWelcomeBackName
	}
	return c.Name
}
