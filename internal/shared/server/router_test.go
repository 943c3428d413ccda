package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/interview"
	"interview-backend/internal/llm"
	"interview-backend/internal/llm/static"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/timer"
)

// answeringService returns a service with question 0 armed.
func answeringService(t *testing.T) *interview.Service {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.DefaultInterview()
	if err != nil {
		t.Fatalf("DefaultInterview: %v", err)
	}
	svc := interview.NewService(interview.Deps{
		Repo:   interview.NewMemoryRepo(),
		AI:     static.New(cfg),
		Clock:  timer.NewManualClock(time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)),
		Config: cfg,
	})
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Shutdown(sctx)
	})

	st, err := svc.Store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	fields := llm.ResumeFields{Name: "Jane Doe", Email: "jane@example.com", Phone: "5550109999", Skills: []string{"React"}}
	if _, err := svc.Store.SetParsedInfo(ctx, st.CurrentInterview.CandidateID, fields); err != nil {
		t.Fatalf("SetParsedInfo: %v", err)
	}
	if _, err := svc.Store.StartQuestions(ctx); err != nil {
		t.Fatalf("StartQuestions: %v", err)
	}
	if err := svc.Orch.Enter(ctx); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	return svc
}

func send(r http.Handler, method, path, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp.Code
}

func TestDraftAutosaveCannotStarveAnswerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := answeringService(t)
	now := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	r := NewRouter(RouterDeps{
		Config:    config.Config{Env: "test"},
		Interview: svc,
		Limiter:   middleware.NewRateLimiter(func() time.Time { return now }),
	})

	drafts := defaultRateRules[rateGroupDraft].Burst + 10
	limited := 0
	for i := 0; i < drafts; i++ {
		body := fmt.Sprintf(`{"questionIndex":0,"answer":"JSX compiles %d"}`, i)
		switch code := send(r, http.MethodPut, "/api/v1/interview/draft", body); code {
		case http.StatusNoContent:
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("draft %d: unexpected status %d", i, code)
		}
	}
	if limited != 10 {
		t.Fatalf("expected 10 drafts over the draft burst to be limited, got %d", limited)
	}

	code := send(r, http.MethodPost, "/api/v1/interview/answers", `{"questionIndex":0,"answer":"JSX compiles to createElement calls."}`)
	if code != http.StatusOK {
		t.Fatalf("submit after draft burst: expected 200, got %d", code)
	}
	answers := svc.Store.Snapshot().CurrentInterview.Answers
	if len(answers) != 1 || answers[0] != "JSX compiles to createElement calls." {
		t.Fatalf("expected the typed answer to be recorded, got %q", answers)
	}
}

func TestRateGroupForInterviewRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	got := map[string]string{}
	r := gin.New()
	record := func(c *gin.Context) { got[c.Request.Method+" "+c.FullPath()] = rateGroupFor(c) }
	r.PUT("/api/v1/interview/draft", record)
	r.POST("/api/v1/interview/answers", record)
	r.POST("/api/v1/interview/validation/answer", record)
	r.GET("/api/v1/interview", record)

	send(r, http.MethodPut, "/api/v1/interview/draft", "")
	send(r, http.MethodPost, "/api/v1/interview/answers", "")
	send(r, http.MethodPost, "/api/v1/interview/validation/answer", "")
	send(r, http.MethodGet, "/api/v1/interview", "")

	want := map[string]string{
		"PUT /api/v1/interview/draft":              rateGroupDraft,
		"POST /api/v1/interview/answers":           rateGroupAnswer,
		"POST /api/v1/interview/validation/answer": rateGroupDefault,
		"GET /api/v1/interview":                    rateGroupPolling,
	}
	for route, group := range want {
		if got[route] != group {
			t.Fatalf("%s: group %q, want %q", route, got[route], group)
		}
	}
}
