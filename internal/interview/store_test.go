package interview

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-backend/internal/llm"
)

func inProgressStore(t *testing.T, repo Repo) (*Store, string) {
	t.Helper()
	ctx := context.Background()
	s := NewStore(repo)
	st, err := s.Begin(ctx)
	require.NoError(t, err)
	id := st.CurrentInterview.CandidateID
	_, err = s.SetParsedInfo(ctx, id, llm.ResumeFields{Name: "Jane", Skills: []string{"React"}})
	require.NoError(t, err)
	_, err = s.StartQuestions(ctx)
	require.NoError(t, err)
	_, err = s.SetQuestions(ctx, sixQuestions())
	require.NoError(t, err)
	return s, id
}

func TestBeginCreatesCandidateAndUploadingSession(t *testing.T) {
	s := NewStore(nil)
	st, err := s.Begin(context.Background())
	require.NoError(t, err)

	sess := st.CurrentInterview
	assert.Equal(t, StatusUploading, sess.Status)
	require.NotEmpty(t, sess.CandidateID)
	assert.Contains(t, st.Candidates, sess.CandidateID)
	assert.Equal(t, 0, sess.CurrentQuestionIndex)

	_, err = s.Begin(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetParsedInfoCopiesSkillsToSession(t *testing.T) {
	s := NewStore(nil)
	st, err := s.Begin(context.Background())
	require.NoError(t, err)
	id := st.CurrentInterview.CandidateID

	st, err = s.SetParsedInfo(context.Background(), id, llm.ResumeFields{Name: " Jane ", Skills: []string{"React", "Go"}})
	require.NoError(t, err)
	assert.Equal(t, StatusValidatingInfo, st.CurrentInterview.Status)
	assert.Equal(t, []string{"React", "Go"}, st.CurrentInterview.Skills)
	assert.Equal(t, "Jane", st.Candidates[id].Name)

	_, err = s.SetParsedInfo(context.Background(), id, llm.ResumeFields{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitAnswerIsCompareAndSwap(t *testing.T) {
	s, _ := inProgressStore(t, nil)
	ctx := context.Background()

	sub, err := s.SubmitAnswer(ctx, 0, "first", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Next)
	assert.False(t, sub.Finished)

	_, err = s.SubmitAnswer(ctx, 0, "again", 6)
	assert.ErrorIs(t, err, ErrStaleSubmission)
	_, err = s.SubmitAnswer(ctx, 3, "ahead", 1)
	assert.ErrorIs(t, err, ErrStaleSubmission)

	sess := s.Snapshot().CurrentInterview
	assert.Equal(t, []string{"first"}, sess.Answers)
	assert.Equal(t, []int{5}, sess.Timers)
	requireAligned(t, sess)
}

func TestSubmitAnswerKeepsAnswersTimersAndIndexAligned(t *testing.T) {
	s, _ := inProgressStore(t, nil)
	ctx := context.Background()

	for i := range sixQuestions() {
		requireAligned(t, s.Snapshot().CurrentInterview)
		sub, err := s.SubmitAnswer(ctx, i, "answer", i)
		require.NoError(t, err)
		assert.Equal(t, i == 5, sub.Finished)
		requireAligned(t, s.Snapshot().CurrentInterview)
	}

	_, err := s.SubmitAnswer(ctx, 6, "extra", 0)
	assert.ErrorIs(t, err, ErrStaleSubmission)
}

func TestCompleteRequiresEveryAnswer(t *testing.T) {
	s, id := inProgressStore(t, nil)
	ctx := context.Background()

	_, err := s.Complete(ctx, id, llm.FallbackEvaluation())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for i := range sixQuestions() {
		_, err := s.SubmitAnswer(ctx, i, "answer", 1)
		require.NoError(t, err)
	}
	st, err := s.Complete(ctx, id, llm.Evaluation{OverallScore: 61.5, Summary: "Solid."})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, st.CurrentInterview.Status)
	assert.Empty(t, st.CurrentInterview.CandidateID)
	assert.Empty(t, st.CurrentInterview.Questions)
	c := st.Candidates[id]
	require.True(t, c.Completed())
	assert.Equal(t, "Solid.", *c.FinalSummary)
	assert.Equal(t, 61.5, *c.OverallScore)
	assert.NotNil(t, c.DetailedScores)
}

func TestSetQuestionsOnlyOnce(t *testing.T) {
	s, _ := inProgressStore(t, nil)
	_, err := s.SetQuestions(context.Background(), sixQuestions())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetQuestionsRejectsEmptySet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	st, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.SetParsedInfo(ctx, st.CurrentInterview.CandidateID, llm.ResumeFields{})
	require.NoError(t, err)
	_, err = s.StartQuestions(ctx)
	require.NoError(t, err)

	_, err = s.SetQuestions(ctx, nil)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestResetKeepsCompletedAndPrunesTheRest(t *testing.T) {
	ctx := context.Background()
	s, doneID := inProgressStore(t, nil)
	for i := range sixQuestions() {
		_, err := s.SubmitAnswer(ctx, i, "answer", 1)
		require.NoError(t, err)
	}
	_, err := s.Complete(ctx, doneID, llm.FallbackEvaluation())
	require.NoError(t, err)

	s.mu.Lock()
	s.state.Candidates["orphan"] = Candidate{ID: "orphan", Name: "Half Done", Skills: []string{}}
	s.mu.Unlock()

	st, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.Contains(t, st.Candidates, doneID)
	assert.NotContains(t, st.Candidates, "orphan")
	assert.Equal(t, StatusUploading, st.CurrentInterview.Status)
	assert.Contains(t, st.Candidates, st.CurrentInterview.CandidateID)
	assert.Len(t, st.Candidates, 2)
}

func TestDiscardDropsInProgressCandidate(t *testing.T) {
	s, id := inProgressStore(t, nil)

	_, err := s.Discard(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Contains(t, s.Snapshot().Candidates, id)

	raised, err := s.RaiseWelcomeBack(context.Background())
	require.NoError(t, err)
	require.True(t, raised)

	st, err := s.Discard(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, st.Candidates, id)
	assert.Equal(t, StatusUploading, st.CurrentInterview.Status)
	assert.NotEqual(t, id, st.CurrentInterview.CandidateID)

	_, err = s.Discard(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateCandidateFieldRejectsUnknownField(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	st, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.SetParsedInfo(ctx, st.CurrentInterview.CandidateID, llm.ResumeFields{})
	require.NoError(t, err)

	_, err = s.UpdateCandidateField(ctx, "skills", "Go")
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestListenersReceiveCommittedSnapshots(t *testing.T) {
	s := NewStore(nil)
	var seen []Status
	s.Subscribe(func(st State) {
		seen = append(seen, st.CurrentInterview.Status)
	})

	_, err := s.Begin(context.Background())
	require.NoError(t, err)
	_, err = s.Begin(context.Background())
	require.Error(t, err)

	assert.Equal(t, []Status{StatusUploading}, seen)
}

func TestListenersSeeCommitsInOrderUnderContention(t *testing.T) {
	s, _ := inProgressStore(t, nil)
	var (
		mu   sync.Mutex
		seen []int
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, len(st.CurrentInterview.Answers))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 6; i++ {
				_, _ = s.SubmitAnswer(context.Background(), i, "answer", 5)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.Greater(t, seen[i], seen[i-1], "listener saw %v", seen)
	}
	assert.Equal(t, len(s.Snapshot().CurrentInterview.Answers), seen[len(seen)-1])
}

func TestNotifySkipsSupersededSnapshot(t *testing.T) {
	s := NewStore(nil)
	var seen []Status
	listeners := []Listener{func(st State) { seen = append(seen, st.CurrentInterview.Status) }}

	newer := NewState()
	newer.CurrentInterview.Status = StatusValidatingInfo
	older := NewState()
	older.CurrentInterview.Status = StatusUploading

	s.notify(2, newer, listeners)
	s.notify(1, older, listeners)

	assert.Equal(t, []Status{StatusValidatingInfo}, seen)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, id := inProgressStore(t, nil)
	snap := s.Snapshot()
	snap.CurrentInterview.Questions[0].Question = "mutated"
	c := snap.Candidates[id]
	c.Skills[0] = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "What is JSX?", fresh.CurrentInterview.Questions[0].Question)
	assert.Equal(t, "React", fresh.Candidates[id].Skills[0])
}

func TestPersistenceRoundTripKeepsInProgressSession(t *testing.T) {
	repo := NewMemoryRepo()
	s, id := inProgressStore(t, repo)
	ctx := context.Background()
	_, err := s.SubmitAnswer(ctx, 0, "first", 7)
	require.NoError(t, err)
	_, err = s.SubmitAnswer(ctx, 1, "second", 9)
	require.NoError(t, err)

	restored := NewStore(repo)
	require.NoError(t, restored.Load(ctx))
	sess := restored.Snapshot().CurrentInterview

	assert.Equal(t, StatusInProgress, sess.Status)
	assert.Equal(t, id, sess.CandidateID)
	assert.Equal(t, 2, sess.CurrentQuestionIndex)
	assert.Equal(t, sixQuestions(), sess.Questions)
	assert.Equal(t, []string{"first", "second"}, sess.Answers)
	assert.Equal(t, []int{7, 9}, sess.Timers)
}

func TestLoadWithoutSavedStateStartsIdle(t *testing.T) {
	s := NewStore(NewMemoryRepo())
	require.NoError(t, s.Load(context.Background()))
	st := s.Snapshot()
	assert.Equal(t, StatusIdle, st.CurrentInterview.Status)
	assert.Empty(t, st.Candidates)
}

type failingRepo struct{}

func (failingRepo) Load(context.Context) (State, error) { return State{}, ErrNotFound }
func (failingRepo) Save(context.Context, State) error { return errors.New("disk full") }

func TestPersistFailureKeepsInMemoryState(t *testing.T) {
	s := NewStore(failingRepo{})
	st, err := s.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusUploading, s.Snapshot().CurrentInterview.Status)
	assert.Equal(t, st.CurrentInterview.CandidateID, s.Snapshot().CurrentInterview.CandidateID)
}
