package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"interview-backend/internal/llm"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

// Listener observes committed state. It runs outside the store lock, must
// not block and must not mutate the store.
type Listener func(State)

// Submission is the outcome of an applied answer.
type Submission struct {
	CandidateID string
	Index       int
	Next        int
	Finished    bool
	Questions   []Question
	Answers     []string
}

// Store is the authoritative interview state machine. Every mutation is a
// single critical section that validates the transition, persists the whole
// state and then notifies listeners in commit order.
type Store struct {
	mu        sync.Mutex
	repo      Repo
	state     State
	rev       uint64
	newID     func() string
	listeners []Listener

	// notifyMu orders listener calls; delivered is the newest revision they
	// have seen.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewStore returns a store backed by repo. A nil repo keeps state in memory
// only.
func NewStore(repo Repo) *Store {
	return &Store{
		repo:  repo,
		state: NewState(),
		newID: uuid.NewString,
	}
}

// Load restores persisted state. Missing state starts idle.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	st, err := s.repo.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		st = NewState()
	} else if err != nil {
		return fmt.Errorf("load interview state: %w", err)
	}
	st.normalize()

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	telemetry.Info("interview.state_loaded", map[string]any{
		"status":         string(st.CurrentInterview.Status),
		"candidate_id":   st.CurrentInterview.CandidateID,
		"question_index": st.CurrentInterview.CurrentQuestionIndex,
		"candidates":     len(st.Candidates),
	})
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers a listener for committed changes.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Begin starts an interview from idle: a fresh candidate and an uploading
// session.
func (s *Store) Begin(ctx context.Context) (State, error) {
	return s.update(ctx, "begin", func(st *State) error {
		if st.CurrentInterview.Status != StatusIdle {
			return invalidTransition("begin", st.CurrentInterview.Status)
		}
		s.startFresh(st)
		return nil
	})
}

// Discard drops the interrupted session and its candidate and starts over in
// uploading. It is only valid while the welcome-back prompt is pending.
func (s *Store) Discard(ctx context.Context) (State, error) {
	return s.update(ctx, "discard", func(st *State) error {
		sess := st.CurrentInterview
		if sess.Status != StatusInProgress {
			return invalidTransition("discard", sess.Status)
		}
		if !st.Modal.ShowWelcomeBack {
			return fmt.Errorf("%w: discard: no welcome-back prompt pending", ErrInvalidTransition)
		}
		if c, ok := st.Candidates[sess.CandidateID]; ok && !c.Completed() {
			delete(st.Candidates, sess.CandidateID)
		}
		s.startFresh(st)
		return nil
	})
}

// Reset starts another interview after completion. Completed candidates are
// kept, every uncompleted one is pruned.
func (s *Store) Reset(ctx context.Context) (State, error) {
	return s.update(ctx, "reset", func(st *State) error {
		switch st.CurrentInterview.Status {
		case StatusCompleted, StatusIdle:
		default:
			return invalidTransition("reset", st.CurrentInterview.Status)
		}
		for id, c := range st.Candidates {
			if !c.Completed() {
				delete(st.Candidates, id)
			}
		}
		s.startFresh(st)
		return nil
	})
}

// SetParsedInfo stores the parsed resume fields on the candidate and moves
// the session to validating_info.
func (s *Store) SetParsedInfo(ctx context.Context, candidateID string, fields llm.ResumeFields) (State, error) {
	return s.update(ctx, "set_parsed_info", func(st *State) error {
		sess := &st.CurrentInterview
		if sess.Status != StatusUploading || sess.CandidateID != candidateID {
			return invalidTransition("set_parsed_info", sess.Status)
		}
		c, ok := st.Candidates[candidateID]
		if !ok {
			return fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
		}
		skills := append([]string{}, fields.Skills...)
		c.Name = strings.TrimSpace(fields.Name)
		c.Email = strings.TrimSpace(fields.Email)
		c.Phone = strings.TrimSpace(fields.Phone)
		c.Skills = skills
		st.Candidates[candidateID] = c
		sess.Skills = append([]string{}, skills...)
		sess.Status = StatusValidatingInfo
		return nil
	})
}

// UpdateCandidateField writes one validated identity field.
func (s *Store) UpdateCandidateField(ctx context.Context, field, value string) (State, error) {
	return s.update(ctx, "update_field", func(st *State) error {
		sess := st.CurrentInterview
		if sess.Status != StatusValidatingInfo {
			return invalidTransition("update_field", sess.Status)
		}
		c, ok := st.Candidates[sess.CandidateID]
		if !ok {
			return fmt.Errorf("candidate %s: %w", sess.CandidateID, ErrNotFound)
		}
		switch field {
		case fieldName:
			c.Name = value
		case fieldEmail:
			c.Email = value
		case fieldPhone:
			c.Phone = value
		default:
			return &FieldError{Field: field, Message: "unknown field"}
		}
		st.Candidates[sess.CandidateID] = c
		return nil
	})
}

// StartQuestions moves a validated session into the question loop.
func (s *Store) StartQuestions(ctx context.Context) (State, error) {
	st, err := s.update(ctx, "start_questions", func(st *State) error {
		if st.CurrentInterview.Status != StatusValidatingInfo {
			return invalidTransition("start_questions", st.CurrentInterview.Status)
		}
		st.CurrentInterview.Status = StatusInProgress
		st.Modal.ShowWelcomeBack = false
		return nil
	})
	if err == nil {
		metrics.IncInterviewStarted()
	}
	return st, err
}

// SetQuestions stores the generated question set. It only applies once per
// session.
func (s *Store) SetQuestions(ctx context.Context, questions []Question) (State, error) {
	return s.update(ctx, "set_questions", func(st *State) error {
		sess := &st.CurrentInterview
		if sess.Status != StatusInProgress || len(sess.Questions) > 0 {
			return invalidTransition("set_questions", sess.Status)
		}
		if len(questions) == 0 {
			return fmt.Errorf("%w: empty question set", ErrGeneration)
		}
		sess.Questions = append([]Question{}, questions...)
		return nil
	})
}

// SubmitAnswer appends an answer for armedIndex if and only if it is still
// the current question. Any other index is ErrStaleSubmission.
func (s *Store) SubmitAnswer(ctx context.Context, armedIndex int, answer string, elapsed int) (Submission, error) {
	var out Submission
	_, err := s.update(ctx, "submit_answer", func(st *State) error {
		sess := &st.CurrentInterview
		if sess.Status != StatusInProgress {
			return fmt.Errorf("%w: session is %s", ErrStaleSubmission, sess.Status)
		}
		if armedIndex != sess.CurrentQuestionIndex || armedIndex >= len(sess.Questions) {
			return fmt.Errorf("%w: armed %d, current %d", ErrStaleSubmission, armedIndex, sess.CurrentQuestionIndex)
		}
		sess.Answers = append(sess.Answers, answer)
		sess.Timers = append(sess.Timers, elapsed)
		sess.CurrentQuestionIndex++

		out = Submission{
			CandidateID: sess.CandidateID,
			Index:       armedIndex,
			Next:        sess.CurrentQuestionIndex,
			Finished:    sess.CurrentQuestionIndex == len(sess.Questions),
			Questions:   append([]Question{}, sess.Questions...),
			Answers:     append([]string{}, sess.Answers...),
		}
		return nil
	})
	return out, err
}

// Complete writes the evaluation onto the candidate and replaces the session
// with the completed shell.
func (s *Store) Complete(ctx context.Context, candidateID string, eval Evaluation) (State, error) {
	return s.update(ctx, "complete", func(st *State) error {
		sess := st.CurrentInterview
		if sess.Status != StatusInProgress || sess.CandidateID != candidateID {
			return invalidTransition("complete", sess.Status)
		}
		if sess.CurrentQuestionIndex != len(sess.Questions) {
			return fmt.Errorf("%w: %d of %d questions answered", ErrInvalidTransition, sess.CurrentQuestionIndex, len(sess.Questions))
		}
		c, ok := st.Candidates[candidateID]
		if !ok {
			return fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
		}
		summary := eval.Summary
		score := eval.OverallScore
		scores := eval.DetailedScores
		if scores == nil {
			scores = []ScoredAnswer{}
		}
		c.FinalSummary = &summary
		c.OverallScore = &score
		c.DetailedScores = append([]ScoredAnswer{}, scores...)
		st.Candidates[candidateID] = c
		st.CurrentInterview = newSession("", StatusCompleted)
		st.Modal.ShowWelcomeBack = false
		return nil
	})
}

// RaiseWelcomeBack sets the resume prompt when an interview is in progress
// and reports whether it did.
func (s *Store) RaiseWelcomeBack(ctx context.Context) (bool, error) {
	raised := false
	_, err := s.update(ctx, "raise_welcome_back", func(st *State) error {
		if st.CurrentInterview.Status == StatusInProgress {
			st.Modal.ShowWelcomeBack = true
			raised = true
		}
		return nil
	})
	return raised, err
}

// ClearWelcomeBack dismisses the resume prompt.
func (s *Store) ClearWelcomeBack(ctx context.Context) (State, error) {
	return s.update(ctx, "clear_welcome_back", func(st *State) error {
		st.Modal.ShowWelcomeBack = false
		return nil
	})
}

func (s *Store) startFresh(st *State) {
	id := s.newID()
	st.Candidates[id] = Candidate{ID: id, Skills: []string{}}
	st.CurrentInterview = newSession(id, StatusUploading)
	st.Modal = Modal{}
}

func (s *Store) update(ctx context.Context, op string, fn func(*State) error) (State, error) {
	s.mu.Lock()
	next := s.state.clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	prev := s.state.CurrentInterview
	s.state = next
	if s.repo != nil {
		if err := s.repo.Save(context.WithoutCancel(ctx), next); err != nil {
			telemetry.Error("interview.persist_failed", map[string]any{
				"op":  op,
				"err": telemetry.ErrString(err),
			})
		}
	}
	s.rev++
	rev := s.rev
	snap := next.clone()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	cur := snap.CurrentInterview
	if prev.Status != cur.Status || prev.CandidateID != cur.CandidateID {
		candidateID := cur.CandidateID
		if candidateID == "" {
			candidateID = prev.CandidateID
		}
		telemetry.Info("interview.transition", map[string]any{
			"op":             op,
			"candidate_id":   candidateID,
			"from":           string(prev.Status),
			"to":             string(cur.Status),
			"question_index": cur.CurrentQuestionIndex,
		})
	}
	s.notify(rev, snap, listeners)
	return snap, nil
}

// notify hands snap to listeners unless a later commit already reached them,
// so the last snapshot a listener sees is always the committed state.
func (s *Store) notify(rev uint64, snap State, listeners []Listener) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if rev <= s.delivered {
		return
	}
	s.delivered = rev
	for _, fn := range listeners {
		fn(snap)
	}
}
