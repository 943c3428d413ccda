package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// DecodeResumeFields parses a parser response. Null or missing values become
// empty strings; a non-array skills value becomes an empty list.
func DecodeResumeFields(raw []byte) (ResumeFields, error) {
	var payload struct {
		Name   *string         `json:"name"`
		Email  *string         `json:"email"`
		Phone  *string         `json:"phone"`
		Skills json.RawMessage `json:"skills"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ResumeFields{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return ResumeFields{
		Name:   deref(payload.Name),
		Email:  deref(payload.Email),
		Phone:  deref(payload.Phone),
		Skills: decodeStrings(payload.Skills),
	}, nil
}

// DecodeQuestions parses a generator response of the form
// {"questions":[...]}. A bare array is accepted too. Entries without question
// text are dropped; an empty result is ErrGeneration.
func DecodeQuestions(raw []byte) ([]Question, error) {
	trimmed := bytes.TrimSpace(raw)
	var items []Question
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
	} else {
		var payload struct {
			Questions []Question `json:"questions"`
		}
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		items = payload.Questions
	}

	out := make([]Question, 0, len(items))
	for _, q := range items {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.Difficulty = NormalizeDifficulty(q.Difficulty)
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no questions returned", ErrGeneration)
	}
	return out, nil
}

// DecodeEvaluation parses an evaluator response. A detailedScores value that
// is not an array is coerced to an empty list; scores are clamped to their
// ranges.
func DecodeEvaluation(raw []byte) (Evaluation, error) {
	var payload struct {
		DetailedScores json.RawMessage `json:"detailedScores"`
		OverallScore   json.Number     `json:"overallScore"`
		Summary        string          `json:"summary"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}

	eval := Evaluation{
		DetailedScores: []ScoredAnswer{},
		Summary:        strings.TrimSpace(payload.Summary),
	}
	if overall, err := payload.OverallScore.Float64(); err == nil {
		eval.OverallScore = clamp(overall, 0, 100)
	}

	var scores []ScoredAnswer
	if isJSONArray(payload.DetailedScores) && json.Unmarshal(payload.DetailedScores, &scores) == nil {
		for _, s := range scores {
			s.Score = clamp(s.Score, 0, 10)
			eval.DetailedScores = append(eval.DetailedScores, s)
		}
	}
	return eval, nil
}

// NormalizeDifficulty title-cases known tiers and leaves anything else trimmed.
func NormalizeDifficulty(raw string) string {
	v := strings.TrimSpace(raw)
	for _, d := range []string{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		if strings.EqualFold(v, d) {
			return d
		}
	}
	return v
}

func decodeStrings(raw json.RawMessage) []string {
	out := []string{}
	if !isJSONArray(raw) {
		return out
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
