package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"interview-backend/internal/llm"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/timer"
)

// Phase is the orchestrator's view of question progression.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseAwaitingQuestions Phase = "awaiting_questions"
	PhaseQuestionActive    Phase = "question_active"
	PhaseEvaluating        Phase = "evaluating"
	PhaseDone              Phase = "done"
	PhaseGenerationFailed  Phase = "generation_failed"
)

const defaultQuestionSeconds = 60

// Orchestrator drives an in-progress session: it generates questions, arms the
// countdown for the current index, applies manual and timed-out submissions
// and runs the final evaluation.
type Orchestrator struct {
	store *Store
	ai    llm.Client
	timer *timer.Countdown
	cfg   *config.Interview

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu serialises arming and submitting so an expiry and a manual submit for
	// the same index cannot interleave between the store write and re-arming.
	mu sync.Mutex

	stateMu    sync.Mutex
	phase      Phase
	drafts     map[int]string
	lastErr    error
	evaluating bool
}

// NewOrchestrator wires the orchestrator to the store, the AI client and the
// countdown. The countdown's expiry callback is owned by the orchestrator.
func NewOrchestrator(store *Store, ai llm.Client, countdown *timer.Countdown, cfg *config.Interview) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:  store,
		ai:     ai,
		timer:  countdown,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		phase:  PhaseIdle,
		drafts: map[int]string{},
	}
	countdown.SetOnExpire(o.handleExpire)
	return o
}

// Enter takes over an in-progress session. Missing questions are generated
// first; otherwise the countdown is armed at the persisted index, or the
// evaluation starts when every question is already answered.
func (o *Orchestrator) Enter(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.store.Snapshot()
	sess := st.CurrentInterview
	if sess.Status != StatusInProgress {
		return invalidTransition("enter", sess.Status)
	}
	if st.Modal.ShowWelcomeBack {
		return fmt.Errorf("%w: welcome back prompt is pending", ErrInvalidTransition)
	}

	if len(sess.Questions) == 0 {
		o.setPhase(PhaseAwaitingQuestions)
		next, err := o.generate(ctx, sess)
		if err != nil {
			metrics.IncGenerationFailure()
			o.stateMu.Lock()
			o.phase = PhaseGenerationFailed
			o.lastErr = err
			o.stateMu.Unlock()
			telemetry.Error("interview.generation_failed", map[string]any{
				"candidate_id": sess.CandidateID,
				"err":          telemetry.ErrString(err),
			})
			return err
		}
		sess = next.CurrentInterview
	}
	o.setErr(nil)
	o.armLocked(sess)
	return nil
}

// Retry re-enters question generation after a failure.
func (o *Orchestrator) Retry(ctx context.Context) error {
	if o.Phase() != PhaseGenerationFailed {
		return fmt.Errorf("%w: nothing to retry in phase %s", ErrInvalidTransition, o.Phase())
	}
	return o.Enter(ctx)
}

// SaveDraft records unsubmitted text for a question. Expiry submits it.
func (o *Orchestrator) SaveDraft(index int, text string) error {
	sess := o.store.Snapshot().CurrentInterview
	if o.Phase() != PhaseQuestionActive || sess.Status != StatusInProgress ||
		index != sess.CurrentQuestionIndex || index >= len(sess.Questions) {
		return fmt.Errorf("%w: question %d", ErrNoActiveQuestion, index)
	}
	o.stateMu.Lock()
	o.drafts[index] = text
	o.stateMu.Unlock()
	return nil
}

// Submit applies a manual answer for the question at index.
func (o *Orchestrator) Submit(ctx context.Context, index int, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyAnswer
	}
	if o.Phase() != PhaseQuestionActive {
		return fmt.Errorf("%w: question %d", ErrNoActiveQuestion, index)
	}
	return o.submit(ctx, index, text, metrics.TriggerManual)
}

// Reset drops all progression state and stops the countdown.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timer.Stop()
	o.stateMu.Lock()
	o.phase = PhaseIdle
	o.drafts = map[int]string{}
	o.lastErr = nil
	o.stateMu.Unlock()
}

// Wait blocks until in-flight evaluations finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown stops the countdown and waits for evaluations, cancelling them
// once ctx is done. A cancelled evaluation still stores the fallback result.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.timer.Stop()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.cancel()
		<-done
	}
	o.cancel()
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.phase
}

// LastError returns the last user-visible failure, if any.
func (o *Orchestrator) LastError() error {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.lastErr
}

// Draft returns the saved draft for index.
func (o *Orchestrator) Draft(index int) string {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.drafts[index]
}

// TimerState returns the countdown for display.
func (o *Orchestrator) TimerState() timer.State {
	return o.timer.State()
}

func (o *Orchestrator) generate(ctx context.Context, sess Session) (State, error) {
	qs, err := o.ai.GenerateQuestions(ctx, sess.Skills)
	if err != nil {
		if !errors.Is(err, ErrGeneration) {
			err = fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		return State{}, err
	}
	if len(qs) == 0 {
		return State{}, fmt.Errorf("%w: no questions returned", ErrGeneration)
	}
	return o.store.SetQuestions(ctx, qs)
}

func (o *Orchestrator) armLocked(sess Session) {
	idx := sess.CurrentQuestionIndex
	if idx >= len(sess.Questions) {
		o.timer.Stop()
		o.startEvaluation(sess.CandidateID, sess.Questions, sess.Answers)
		return
	}
	o.setPhase(PhaseQuestionActive)
	o.timer.Start(idx, o.durationFor(sess.Questions[idx]), nil)
}

func (o *Orchestrator) submit(ctx context.Context, index int, answer, trigger string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	elapsed := 0
	if o.timer.Key() == index {
		if trigger == metrics.TriggerTimeout {
			elapsed = o.timer.Duration()
		} else {
			elapsed = o.timer.Elapsed()
		}
	}

	sub, err := o.store.SubmitAnswer(ctx, index, answer, elapsed)
	if errors.Is(err, ErrStaleSubmission) {
		metrics.IncStaleSubmission(trigger)
		telemetry.Info("interview.stale_submission", map[string]any{
			"trigger":        trigger,
			"question_index": index,
		})
		return err
	}
	if err != nil {
		return err
	}
	metrics.IncAnswerSubmitted(trigger)

	o.stateMu.Lock()
	delete(o.drafts, index)
	o.stateMu.Unlock()

	if sub.Finished {
		o.timer.Stop()
		o.startEvaluation(sub.CandidateID, sub.Questions, sub.Answers)
		return nil
	}
	o.timer.Start(sub.Next, o.durationFor(sub.Questions[sub.Next]), nil)
	return nil
}

func (o *Orchestrator) handleExpire(key int) {
	answer := o.Draft(key)
	if strings.TrimSpace(answer) == "" {
		answer = o.cfg.Settings.NoAnswerText
	}
	err := o.submit(o.ctx, key, answer, metrics.TriggerTimeout)
	if err != nil && !errors.Is(err, ErrStaleSubmission) {
		telemetry.Error("interview.timeout_submit_failed", map[string]any{
			"question_index": key,
			"err":            telemetry.ErrString(err),
		})
	}
}

func (o *Orchestrator) startEvaluation(candidateID string, questions []Question, answers []string) {
	o.stateMu.Lock()
	o.phase = PhaseEvaluating
	if o.evaluating {
		o.stateMu.Unlock()
		return
	}
	o.evaluating = true
	o.stateMu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.stateMu.Lock()
			o.evaluating = false
			o.stateMu.Unlock()
		}()

		eval := o.evaluate(o.ctx, candidateID, questions, answers)
		if _, err := o.store.Complete(o.ctx, candidateID, eval); err != nil {
			telemetry.Error("interview.complete_failed", map[string]any{
				"candidate_id": candidateID,
				"err":          telemetry.ErrString(err),
			})
			o.setErr(err)
			return
		}
		metrics.IncInterviewCompleted()
		o.setPhase(PhaseDone)
	}()
}

func (o *Orchestrator) evaluate(ctx context.Context, candidateID string, questions []Question, answers []string) (eval Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("interview.evaluation_panic", map[string]any{
				"candidate_id": candidateID,
				"panic":        fmt.Sprint(r),
			})
			metrics.IncEvaluationFallback()
			eval = llm.FallbackEvaluation()
		}
	}()

	res, err := o.ai.Evaluate(ctx, questions, answers)
	if err != nil {
		telemetry.Warn("interview.evaluation_fallback", map[string]any{
			"candidate_id": candidateID,
			"err":          telemetry.ErrString(err),
		})
		metrics.IncEvaluationFallback()
		return llm.FallbackEvaluation()
	}
	if res.DetailedScores == nil {
		res.DetailedScores = []ScoredAnswer{}
	}
	return res
}

func (o *Orchestrator) durationFor(q Question) int {
	if q.Time > 0 {
		return q.Time
	}
	if d, ok := o.cfg.Difficulty(q.Difficulty); ok {
		return d.TimeSeconds
	}
	return defaultQuestionSeconds
}

func (o *Orchestrator) setPhase(p Phase) {
	o.stateMu.Lock()
	o.phase = p
	o.stateMu.Unlock()
}

func (o *Orchestrator) setErr(err error) {
	o.stateMu.Lock()
	o.lastErr = err
	o.stateMu.Unlock()
}
