package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"interview-backend/internal/llm"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/timer"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Repo    Repo
	AI      llm.Client
	Objects object.ObjectStore
	Clock   timer.Clock
	Config  *config.Interview
}

// Service is the facade used by the HTTP handler and the terminal client. It
// owns the store, the orchestrator, the resume controller and the current
// validation dialogue.
type Service struct {
	Store  *Store
	Orch   *Orchestrator
	Resume *ResumeController
	Intake *Intake
	Events *Broadcaster

	countdown       *timer.Countdown
	validationDelay time.Duration

	mu       sync.Mutex
	dialogue *Dialogue
}

// NewService builds the engine from deps.
func NewService(d Deps) *Service {
	store := NewStore(d.Repo)
	countdown := timer.New(d.Clock)
	orch := NewOrchestrator(store, d.AI, countdown, d.Config)
	s := &Service{
		Store:           store,
		Orch:            orch,
		Resume:          NewResumeController(store, orch),
		Intake:          NewIntake(store, d.AI, d.Objects, d.Config),
		Events:          NewBroadcaster(),
		countdown:       countdown,
		validationDelay: d.Config.Settings.ValidationDelay,
	}
	store.Subscribe(func(st State) {
		s.Events.Publish(stateEvent(st))
	})
	countdown.SetOnTick(func(key, left int) {
		s.Events.Publish(tickEvent(key, left, countdown.Duration()))
	})
	return s
}

// Start loads persisted state and raises the welcome-back prompt for an
// interrupted interview.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Store.Load(ctx); err != nil {
		return err
	}
	if _, err := s.Resume.CheckOnce(ctx); err != nil {
		return err
	}
	if s.Store.Snapshot().CurrentInterview.Status == StatusValidatingInfo {
		return s.openDialogue()
	}
	return nil
}

// Begin opens a new interview from idle.
func (s *Service) Begin(ctx context.Context) (View, error) {
	if _, err := s.Store.Begin(ctx); err != nil {
		return View{}, err
	}
	s.closeDialogue()
	return s.View(), nil
}

// Upload processes a resume and starts the validation dialogue.
func (s *Service) Upload(ctx context.Context, up Upload) (View, error) {
	if _, err := s.Intake.Process(ctx, up); err != nil {
		return View{}, err
	}
	if err := s.openDialogue(); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// Confirm accepts the presented identity field.
func (s *Service) Confirm(ctx context.Context) (View, error) {
	d, err := s.currentDialogue()
	if err != nil {
		return View{}, err
	}
	if err := d.Confirm(ctx); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// Reject asks for a corrected identity field.
func (s *Service) Reject(ctx context.Context) (View, error) {
	d, err := s.currentDialogue()
	if err != nil {
		return View{}, err
	}
	if err := d.Reject(ctx); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// Provide submits a typed identity field.
func (s *Service) Provide(ctx context.Context, value string) (View, error) {
	d, err := s.currentDialogue()
	if err != nil {
		return View{}, err
	}
	if err := d.Provide(ctx, value); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// WelcomeBackResume continues the interrupted interview.
func (s *Service) WelcomeBackResume(ctx context.Context) (View, error) {
	if err := s.Resume.Resume(ctx); err != nil && !errors.Is(err, ErrGeneration) {
		return View{}, err
	}
	return s.View(), nil
}

// WelcomeBackRestart discards the interrupted interview.
func (s *Service) WelcomeBackRestart(ctx context.Context) (View, error) {
	if err := s.Resume.StartNew(ctx); err != nil {
		return View{}, err
	}
	s.closeDialogue()
	return s.View(), nil
}

// SaveDraft stores unsubmitted answer text.
func (s *Service) SaveDraft(index int, text string) error {
	return s.Orch.SaveDraft(index, text)
}

// Submit applies a manual answer. A submission that lost the race to the
// timer is dropped without error.
func (s *Service) Submit(ctx context.Context, index int, text string) (View, error) {
	if err := s.Orch.Submit(ctx, index, text); err != nil && !errors.Is(err, ErrStaleSubmission) {
		return View{}, err
	}
	return s.View(), nil
}

// RetryQuestions retries a failed question generation. The failure stays on
// the view when it happens again.
func (s *Service) RetryQuestions(ctx context.Context) (View, error) {
	if err := s.Orch.Retry(ctx); err != nil && !errors.Is(err, ErrGeneration) {
		return View{}, err
	}
	return s.View(), nil
}

// Reset starts another interview after the previous one completed.
func (s *Service) Reset(ctx context.Context) (View, error) {
	st := s.Store.Snapshot()
	if st.CurrentInterview.Status != StatusCompleted && st.CurrentInterview.Status != StatusIdle {
		return View{}, invalidTransition("reset", st.CurrentInterview.Status)
	}
	s.Orch.Wait()
	s.Orch.Reset()
	if _, err := s.Store.Reset(ctx); err != nil {
		return View{}, err
	}
	s.closeDialogue()
	return s.View(), nil
}

// Shutdown stops timers and drains pending evaluations.
func (s *Service) Shutdown(ctx context.Context) {
	s.closeDialogue()
	s.Orch.Shutdown(ctx)
}

// View renders the current session.
func (s *Service) View() View {
	st := s.Store.Snapshot()
	sess := st.CurrentInterview

	v := View{
		Status:         sess.Status,
		Phase:          s.Orch.Phase(),
		QuestionIndex:  sess.CurrentQuestionIndex,
		TotalQuestions: len(sess.Questions),
	}
	if c, ok := st.ActiveCandidate(); ok {
		v.Candidate = &c
	}

	var dialogue []Message
	if d := s.peekDialogue(); d != nil {
		dialogue = d.Transcript()
		if sess.Status == StatusValidatingInfo {
			p := d.Prompt()
			v.Prompt = &p
		}
	}
	v.Transcript = buildTranscript(dialogue, sess)

	if st.Modal.ShowWelcomeBack {
		v.WelcomeBack = &WelcomeBack{Name: s.Resume.WelcomeBackName()}
	} else if sess.Status == StatusInProgress && sess.CurrentQuestionIndex < len(sess.Questions) {
		q := sess.Questions[sess.CurrentQuestionIndex]
		v.CurrentQuestion = &q
		v.Draft = s.Orch.Draft(sess.CurrentQuestionIndex)
		ts := s.Orch.TimerState()
		v.Timer = &ts
	}

	if err := s.Orch.LastError(); err != nil && sess.Status == StatusInProgress {
		v.Error = &ViewError{Code: ErrorCode(err), Message: UserMessage(err)}
	}
	return v
}

func (s *Service) openDialogue() error {
	d, err := NewDialogue(s.Store, s.validationDelay, s.finishValidation)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.dialogue
	s.dialogue = d
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	return nil
}

func (s *Service) closeDialogue() {
	s.mu.Lock()
	d := s.dialogue
	s.dialogue = nil
	s.mu.Unlock()
	if d != nil {
		d.Stop()
	}
}

func (s *Service) currentDialogue() (*Dialogue, error) {
	d := s.peekDialogue()
	if d == nil || s.Store.Snapshot().CurrentInterview.Status != StatusValidatingInfo {
		return nil, invalidTransition("validate", s.Store.Snapshot().CurrentInterview.Status)
	}
	return d, nil
}

func (s *Service) peekDialogue() *Dialogue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue
}

// finishValidation moves a validated session into the question loop.
func (s *Service) finishValidation(ctx context.Context) {
	if _, err := s.Store.StartQuestions(ctx); err != nil {
		telemetry.Error("interview.start_questions_failed", map[string]any{
			"err": telemetry.ErrString(err),
		})
		return
	}
	// Generation failures are kept on the orchestrator and shown in the view.
	_ = s.Orch.Enter(ctx)
}
