package interview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"interview-backend/internal/llm"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/timer"
)

// fakeAI is a scripted llm.Client. Nil funcs fall back to simple defaults.
type fakeAI struct {
	mu            sync.Mutex
	parse         func(text string) (llm.ResumeFields, error)
	generate      func(skills []string) ([]llm.Question, error)
	evaluate      func(qs []llm.Question, answers []string) (llm.Evaluation, error)
	parsedText    string
	generateCalls int
	evaluateCalls int
}

func (f *fakeAI) ParseResume(_ context.Context, text string) (llm.ResumeFields, error) {
	f.mu.Lock()
	f.parsedText = text
	fn := f.parse
	f.mu.Unlock()
	if fn == nil {
		return llm.ResumeFields{Name: "Jane", Skills: []string{"React"}}, nil
	}
	return fn(text)
}

func (f *fakeAI) GenerateQuestions(_ context.Context, skills []string) ([]llm.Question, error) {
	f.mu.Lock()
	f.generateCalls++
	fn := f.generate
	f.mu.Unlock()
	if fn == nil {
		return sixQuestions(), nil
	}
	return fn(skills)
}

func (f *fakeAI) Evaluate(_ context.Context, qs []llm.Question, answers []string) (llm.Evaluation, error) {
	f.mu.Lock()
	f.evaluateCalls++
	fn := f.evaluate
	f.mu.Unlock()
	if fn == nil {
		return llm.Evaluation{DetailedScores: []llm.ScoredAnswer{}, OverallScore: 50, Summary: "ok"}, nil
	}
	return fn(qs, answers)
}

func (f *fakeAI) calls() (generate, evaluate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls, f.evaluateCalls
}

func sixQuestions() []Question {
	return []Question{
		{Question: "What is JSX?", Difficulty: "Easy", Time: 20},
		{Question: "What does useState return?", Difficulty: "Easy", Time: 20},
		{Question: "How does React reconcile the virtual DOM?", Difficulty: "Medium", Time: 60},
		{Question: "Explain the Node.js event loop.", Difficulty: "Medium", Time: 60},
		{Question: "Design a rate limiter for a Node.js API.", Difficulty: "Hard", Time: 120},
		{Question: "How would you server-render a large React app?", Difficulty: "Hard", Time: 120},
	}
}

func testConfig(t *testing.T) *config.Interview {
	t.Helper()
	cfg, err := config.DefaultInterview()
	require.NoError(t, err)
	cfg.Settings.ValidationDelay = 0
	return cfg
}

type testEngine struct {
	svc   *Service
	clock *timer.ManualClock
	repo  *MemoryRepo
	ai    *fakeAI
	cfg   *config.Interview
}

func newTestEngine(t *testing.T, ai *fakeAI, repo *MemoryRepo) *testEngine {
	t.Helper()
	if ai == nil {
		ai = &fakeAI{}
	}
	if repo == nil {
		repo = NewMemoryRepo()
	}
	cfg := testConfig(t)
	clock := timer.NewManualClock(time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Deps{Repo: repo, AI: ai, Clock: clock, Config: cfg})
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})
	return &testEngine{svc: svc, clock: clock, repo: repo, ai: ai, cfg: cfg}
}

// toValidating drives a fresh engine through Begin and parsed fields.
func (e *testEngine) toValidating(t *testing.T, fields llm.ResumeFields) string {
	t.Helper()
	ctx := context.Background()
	st, err := e.svc.Store.Begin(ctx)
	require.NoError(t, err)
	id := st.CurrentInterview.CandidateID
	_, err = e.svc.Store.SetParsedInfo(ctx, id, fields)
	require.NoError(t, err)
	return id
}

// toQuestions drives a fresh engine into the question loop.
func (e *testEngine) toQuestions(t *testing.T) string {
	t.Helper()
	id := e.toValidating(t, llm.ResumeFields{Name: "Jane Doe", Email: "jane@example.com", Phone: "5550109999", Skills: []string{"React"}})
	_, err := e.svc.Store.StartQuestions(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.svc.Orch.Enter(context.Background()))
	return id
}

// tick advances the manual clock n seconds, one tick at a time.
func (e *testEngine) tick(n int) {
	for i := 0; i < n; i++ {
		e.clock.Tick()
	}
}

func eventually(t *testing.T, cond func() bool, msgAndArgs ...any) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msgAndArgs...)
}

func requireAligned(t *testing.T, sess Session) {
	t.Helper()
	require.Len(t, sess.Answers, sess.CurrentQuestionIndex)
	require.Len(t, sess.Timers, sess.CurrentQuestionIndex)
}
