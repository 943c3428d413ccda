package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"interview-backend/internal/llm"
	"interview-backend/internal/shared/telemetry"
)

// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1/"

// Options configures the chat completion client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// Client implements llm.Client on top of an OpenAI-compatible Chat
// Completions API.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
}

// NewClient constructs a chat completion client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	api := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(opts.MaxRetries),
	)
	return &Client{api: api, model: opts.Model, temperature: temperature}, nil
}

// ParseResume extracts identity fields from resume text.
func (c *Client) ParseResume(ctx context.Context, text string) (llm.ResumeFields, error) {
	raw, err := c.complete(ctx, "parse_resume", llm.ParseResumePrompt(text))
	if err != nil {
		return llm.ResumeFields{}, fmt.Errorf("%w: %w", llm.ErrParse, err)
	}
	return llm.DecodeResumeFields(raw)
}

// GenerateQuestions asks the model for the interview question set.
func (c *Client) GenerateQuestions(ctx context.Context, skills []string) ([]llm.Question, error) {
	raw, err := c.complete(ctx, "generate_questions", llm.GenerateQuestionsPrompt(skills))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrGeneration, err)
	}
	return llm.DecodeQuestions(raw)
}

// Evaluate scores the answered interview.
func (c *Client) Evaluate(ctx context.Context, questions []llm.Question, answers []string) (llm.Evaluation, error) {
	prompt, err := llm.EvaluatePrompt(questions, answers)
	if err != nil {
		return llm.Evaluation{}, fmt.Errorf("%w: %w", llm.ErrEvaluation, err)
	}
	raw, err := c.complete(ctx, "evaluate", prompt)
	if err != nil {
		return llm.Evaluation{}, fmt.Errorf("%w: %w", llm.ErrEvaluation, err)
	}
	return llm.DecodeEvaluation(raw)
}

func (c *Client) complete(ctx context.Context, op, prompt string) ([]byte, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai http status %d: %w", apiErr.StatusCode, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("openai response empty content")
	}

	telemetry.Info("llm.response", map[string]any{
		"operation":         op,
		"model":             c.model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})
	return []byte(content), nil
}

var _ llm.Client = (*Client)(nil)
