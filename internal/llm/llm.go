package llm

import (
	"context"
	"errors"
)

// Difficulty tiers used by generated questions.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

var (
	// ErrParse indicates the resume field parser failed or returned junk.
	ErrParse = errors.New("resume parse failed")
	// ErrGeneration indicates question generation failed or returned nothing.
	ErrGeneration = errors.New("question generation failed")
	// ErrEvaluation indicates the evaluator failed.
	ErrEvaluation = errors.New("interview evaluation failed")
)

// FallbackSummary is the summary stored when evaluation degrades.
const FallbackSummary = "Could not evaluate interview due to a technical API error."

// Question is one timed interview question.
type Question struct {
	Question   string `json:"question"`
	Difficulty string `json:"difficulty"`
	Time       int    `json:"time"`
}

// ResumeFields are the identity fields extracted from a resume. Missing values
// are empty strings.
type ResumeFields struct {
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Phone  string   `json:"phone"`
	Skills []string `json:"skills"`
}

// ScoredAnswer is the per-question evaluation.
type ScoredAnswer struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// Evaluation is the scored result of a finished interview.
type Evaluation struct {
	DetailedScores []ScoredAnswer `json:"detailedScores"`
	OverallScore   float64        `json:"overallScore"`
	Summary        string         `json:"summary"`
}

// FallbackEvaluation is the zero-score result used when evaluation fails.
func FallbackEvaluation() Evaluation {
	return Evaluation{
		DetailedScores: []ScoredAnswer{},
		OverallScore:   0,
		Summary:        FallbackSummary,
	}
}

// Client is the AI collaborator used by the interview engine.
type Client interface {
	ParseResume(ctx context.Context, text string) (ResumeFields, error)
	GenerateQuestions(ctx context.Context, skills []string) ([]Question, error)
	Evaluate(ctx context.Context, questions []Question, answers []string) (Evaluation, error)
}
