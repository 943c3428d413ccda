package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-backend/internal/llm"
	"interview-backend/internal/llm/static"
)

func (e *testEngine) session() Session {
	return e.svc.Store.Snapshot().CurrentInterview
}

// waitArmed blocks until the countdown runs for key, so the next Tick reaches
// its ticker.
func (e *testEngine) waitArmed(t *testing.T, key int) {
	t.Helper()
	eventually(t, func() bool {
		ts := e.svc.Orch.TimerState()
		return ts.Key == key && ts.Running
	}, "countdown never armed for question %d", key)
}

func (e *testEngine) waitDone(t *testing.T) {
	t.Helper()
	eventually(t, func() bool {
		return e.svc.Orch.Phase() == PhaseDone
	}, "interview never completed")
}

func TestEnterArmsFirstQuestion(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)

	assert.Equal(t, PhaseQuestionActive, e.svc.Orch.Phase())
	ts := e.svc.Orch.TimerState()
	assert.Equal(t, 0, ts.Key)
	assert.Equal(t, 20, ts.Duration)
	assert.Equal(t, 20, ts.TimeLeft)
	assert.True(t, ts.Running)

	v := e.svc.View()
	require.NotNil(t, v.CurrentQuestion)
	assert.Equal(t, "What is JSX?", v.CurrentQuestion.Question)
	assert.Equal(t, 6, v.TotalQuestions)
	gen, _ := e.ai.calls()
	assert.Equal(t, 1, gen)
}

func TestManualSubmissionsCompleteInterview(t *testing.T) {
	cfg := testConfig(t)
	scorer := static.New(cfg)
	ai := &fakeAI{evaluate: func(qs []llm.Question, answers []string) (llm.Evaluation, error) {
		return scorer.Evaluate(context.Background(), qs, answers)
	}}
	e := newTestEngine(t, ai, nil)
	id := e.toQuestions(t)
	ctx := context.Background()

	answers := []string{
		"JSX is a syntax extension that compiles to React.createElement calls.",
		"useState returns the current state value and a setter function.",
		"React diffs the new virtual DOM tree against the previous one and patches only changed nodes.",
		"The event loop runs timers, pending callbacks, poll, check and close phases in order.",
		"A token bucket per client key stored in Redis with an atomic Lua script.",
		"Stream HTML with renderToPipeableStream and hydrate islands on the client.",
	}
	for i, a := range answers {
		e.waitArmed(t, i)
		if i == 0 {
			e.tick(3)
		}
		_, err := e.svc.Submit(ctx, i, a)
		require.NoError(t, err)
		requireAligned(t, e.session())
	}
	e.waitDone(t)

	st := e.svc.Store.Snapshot()
	assert.Equal(t, StatusCompleted, st.CurrentInterview.Status)
	c := st.Candidates[id]
	require.True(t, c.Completed())

	want, err := scorer.Evaluate(ctx, sixQuestions(), answers)
	require.NoError(t, err)
	assert.Equal(t, want.OverallScore, *c.OverallScore)
	assert.Equal(t, llm.WeightedOverallScore(sixQuestions(), c.DetailedScores, cfg.Weights()), *c.OverallScore)
	assert.Len(t, c.DetailedScores, 6)

	_, evals := ai.calls()
	assert.Equal(t, 1, evals)
	assert.False(t, e.svc.Orch.TimerState().Running)
}

func TestManualSubmitRecordsElapsedSeconds(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)

	e.tick(7)
	_, err := e.svc.Submit(context.Background(), 0, "JSX compiles to createElement.")
	require.NoError(t, err)

	sess := e.session()
	assert.Equal(t, []int{7}, sess.Timers)
	assert.Equal(t, 1, sess.CurrentQuestionIndex)
}

func TestExpirySubmitsDraft(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)

	require.NoError(t, e.svc.SaveDraft(0, "JSX is"))
	assert.Equal(t, "JSX is", e.svc.View().Draft)

	e.tick(20)
	e.waitArmed(t, 1)

	sess := e.session()
	assert.Equal(t, []string{"JSX is"}, sess.Answers)
	assert.Equal(t, []int{20}, sess.Timers)
	assert.Empty(t, e.svc.Orch.Draft(0))
	assert.Equal(t, 20, e.svc.Orch.TimerState().TimeLeft)
}

func TestExpiryWithoutDraftSubmitsPlaceholder(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)

	require.NoError(t, e.svc.SaveDraft(0, "   "))
	e.tick(20)
	e.waitArmed(t, 1)

	assert.Equal(t, []string{e.cfg.Settings.NoAnswerText}, e.session().Answers)
}

func TestAllQuestionsTimingOutCompletesInterview(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	id := e.toQuestions(t)

	for i, q := range sixQuestions() {
		e.waitArmed(t, i)
		e.tick(q.Time)
	}
	e.waitDone(t)

	c := e.svc.Store.Snapshot().Candidates[id]
	require.True(t, c.Completed())
	assert.Equal(t, 50.0, *c.OverallScore)
	_, evals := e.ai.calls()
	assert.Equal(t, 1, evals)
}

func TestSecondSubmitForSameIndexIsStale(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Orch.Submit(ctx, 0, "first"))
	err := e.svc.Orch.Submit(ctx, 0, "second")
	assert.ErrorIs(t, err, ErrStaleSubmission)

	_, err = e.svc.Submit(ctx, 0, "third")
	assert.NoError(t, err)
	assert.Equal(t, []string{"first"}, e.session().Answers)
}

func TestSubmitRejectsBlankAnswer(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)

	_, err := e.svc.Submit(context.Background(), 0, " \n ")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	assert.Empty(t, e.session().Answers)
}

func TestSaveDraftOnlyForCurrentQuestion(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	assert.ErrorIs(t, e.svc.SaveDraft(0, "early"), ErrNoActiveQuestion)

	e.toQuestions(t)
	assert.ErrorIs(t, e.svc.SaveDraft(1, "ahead"), ErrNoActiveQuestion)
	assert.NoError(t, e.svc.SaveDraft(0, "now"))
}

func TestManualSubmitRacingExpiryAppliesOnce(t *testing.T) {
	for run := 0; run < 20; run++ {
		t.Run(fmt.Sprintf("run%d", run), func(t *testing.T) {
			e := newTestEngine(t, nil, nil)
			e.toQuestions(t)
			e.tick(19)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = e.svc.Submit(context.Background(), 0, "manual")
			}()
			go func() {
				defer wg.Done()
				e.clock.Tick()
			}()
			wg.Wait()
			e.waitArmed(t, 1)

			sess := e.session()
			requireAligned(t, sess)
			require.Len(t, sess.Answers, 1)
			assert.Contains(t, []string{"manual", e.cfg.Settings.NoAnswerText}, sess.Answers[0])
		})
	}
}

func TestGenerationFailureBlocksUntilRetry(t *testing.T) {
	ai := &fakeAI{generate: func([]string) ([]llm.Question, error) {
		return nil, errors.New("upstream 503")
	}}
	e := newTestEngine(t, ai, nil)
	e.toValidating(t, llm.ResumeFields{Name: "Jane", Email: "jane@example.com", Phone: "5550109999"})
	ctx := context.Background()
	_, err := e.svc.Store.StartQuestions(ctx)
	require.NoError(t, err)

	err = e.svc.Orch.Enter(ctx)
	require.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, PhaseGenerationFailed, e.svc.Orch.Phase())
	assert.False(t, e.svc.Orch.TimerState().Running)

	v := e.svc.View()
	assert.Equal(t, StatusInProgress, v.Status)
	assert.Nil(t, v.CurrentQuestion)
	require.NotNil(t, v.Error)
	assert.Equal(t, "generation_failed", v.Error.Code)

	v, err = e.svc.RetryQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseGenerationFailed, v.Phase)

	ai.mu.Lock()
	ai.generate = nil
	ai.mu.Unlock()

	v, err = e.svc.RetryQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseQuestionActive, v.Phase)
	assert.Nil(t, v.Error)
	assert.Equal(t, 6, v.TotalQuestions)
	gen, _ := ai.calls()
	assert.Equal(t, 3, gen)

	_, err = e.svc.RetryQuestions(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEvaluationFailureStoresFallback(t *testing.T) {
	cases := map[string]func([]llm.Question, []string) (llm.Evaluation, error){
		"error": func([]llm.Question, []string) (llm.Evaluation, error) {
			return llm.Evaluation{}, fmt.Errorf("%w: bad json", llm.ErrEvaluation)
		},
		"panic": func([]llm.Question, []string) (llm.Evaluation, error) {
			panic("boom")
		},
	}
	for name, evaluate := range cases {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, &fakeAI{evaluate: evaluate}, nil)
			id := e.toQuestions(t)
			for i := range sixQuestions() {
				e.waitArmed(t, i)
				_, err := e.svc.Submit(context.Background(), i, "answer")
				require.NoError(t, err)
			}
			e.waitDone(t)

			c := e.svc.Store.Snapshot().Candidates[id]
			require.True(t, c.Completed())
			assert.Equal(t, llm.FallbackSummary, *c.FinalSummary)
			assert.Equal(t, 0.0, *c.OverallScore)
			assert.Empty(t, c.DetailedScores)
		})
	}
}

func TestEnterRefusesWhileWelcomeBackPending(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.toQuestions(t)
	raised, err := e.svc.Store.RaiseWelcomeBack(context.Background())
	require.NoError(t, err)
	require.True(t, raised)

	assert.ErrorIs(t, e.svc.Orch.Enter(context.Background()), ErrInvalidTransition)
}

func TestQuestionDurationFallsBackToTier(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	o := e.svc.Orch

	assert.Equal(t, 45, o.durationFor(Question{Time: 45, Difficulty: "Hard"}))
	hard, ok := e.cfg.Difficulty("Hard")
	require.True(t, ok)
	assert.Equal(t, hard.TimeSeconds, o.durationFor(Question{Difficulty: "Hard"}))
	assert.Equal(t, defaultQuestionSeconds, o.durationFor(Question{Difficulty: "Impossible"}))
}
