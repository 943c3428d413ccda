package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base  Client
	delay time.Duration
}

// WithRetry wraps base so each call is timed and transient failures are
// retried once after a short pause.
func WithRetry(base Client) Client {
	if base == nil {
		return nil
	}
	return retryingClient{base: base, delay: retryBaseDelay}
}

func (r retryingClient) ParseResume(ctx context.Context, text string) (ResumeFields, error) {
	var out ResumeFields
	err := r.do(ctx, "parse_resume", func() error {
		var err error
		out, err = r.base.ParseResume(ctx, text)
		return err
	})
	return out, err
}

func (r retryingClient) GenerateQuestions(ctx context.Context, skills []string) ([]Question, error) {
	var out []Question
	err := r.do(ctx, "generate_questions", func() error {
		var err error
		out, err = r.base.GenerateQuestions(ctx, skills)
		return err
	})
	return out, err
}

func (r retryingClient) Evaluate(ctx context.Context, questions []Question, answers []string) (Evaluation, error) {
	var out Evaluation
	err := r.do(ctx, "evaluate", func() error {
		var err error
		out, err = r.base.Evaluate(ctx, questions, answers)
		return err
	})
	return out, err
}

func (r retryingClient) do(ctx context.Context, op string, call func() error) error {
	start := time.Now()
	err := call()
	metrics.ObserveLLM(op, time.Since(start), err)
	if err == nil || !shouldRetry(err) {
		return err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"operation": op,
		"attempt":   1,
		"err":       telemetry.ErrString(err),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	start = time.Now()
	err = call()
	metrics.ObserveLLM(op, time.Since(start), err)
	return err
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
