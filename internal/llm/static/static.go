// Package static provides an offline llm.Client backed by the interview
// configuration: regex resume parsing, a skill-matched question bank and a
// heuristic scorer. It is used when no model endpoint is configured and by
// the terminal client.
package static

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"interview-backend/internal/llm"
	"interview-backend/internal/shared/config"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 \-]{8,16}[0-9]`)
)

// Client is the offline collaborator.
type Client struct {
	cfg *config.Interview
}

// New returns an offline client for cfg.
func New(cfg *config.Interview) *Client {
	return &Client{cfg: cfg}
}

// ParseResume pulls name, email, phone and known skills out of plain text.
func (c *Client) ParseResume(_ context.Context, text string) (llm.ResumeFields, error) {
	if strings.TrimSpace(text) == "" {
		return llm.ResumeFields{}, fmt.Errorf("%w: empty resume text", llm.ErrParse)
	}
	return llm.ResumeFields{
		Name:   guessName(text),
		Email:  emailPattern.FindString(text),
		Phone:  strings.TrimSpace(phonePattern.FindString(text)),
		Skills: c.matchSkills(text),
	}, nil
}

// GenerateQuestions picks questions per difficulty tier, preferring ones
// tagged with the candidate's skills.
func (c *Client) GenerateQuestions(_ context.Context, skills []string) ([]llm.Question, error) {
	want := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		want[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	out := make([]llm.Question, 0, c.cfg.QuestionCount())
	for _, tier := range c.cfg.Difficulties {
		var matched, rest []config.BankQuestion
		for _, q := range c.cfg.QuestionBank {
			if !strings.EqualFold(q.Difficulty, tier.Name) {
				continue
			}
			if tagged(q, want) {
				matched = append(matched, q)
			} else {
				rest = append(rest, q)
			}
		}
		pool := append(matched, rest...)
		if len(pool) < tier.Count {
			return nil, fmt.Errorf("%w: question bank has %d %s questions, need %d", llm.ErrGeneration, len(pool), tier.Name, tier.Count)
		}
		for _, q := range pool[:tier.Count] {
			out = append(out, llm.Question{
				Question:   q.Question,
				Difficulty: tier.Name,
				Time:       tier.TimeSeconds,
			})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no questions configured", llm.ErrGeneration)
	}
	return out, nil
}

// Evaluate scores each answer by substance and overlap with the question and
// combines them with the configured difficulty weights.
func (c *Client) Evaluate(_ context.Context, questions []llm.Question, answers []string) (llm.Evaluation, error) {
	scores := make([]llm.ScoredAnswer, 0, len(questions))
	answered := 0
	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		score := c.scoreAnswer(q.Question, answer)
		if score > 0 {
			answered++
		}
		scores = append(scores, llm.ScoredAnswer{Question: q.Question, Answer: answer, Score: score})
	}
	overall := llm.WeightedOverallScore(questions, scores, c.cfg.Weights())
	return llm.Evaluation{
		DetailedScores: scores,
		OverallScore:   overall,
		Summary: fmt.Sprintf("The candidate gave substantive answers to %d of %d questions. Weighted overall score is %.1f/100. %s",
			answered, len(questions), overall, verdict(overall)),
	}, nil
}

func (c *Client) scoreAnswer(question, answer string) float64 {
	a := strings.TrimSpace(answer)
	if a == "" || strings.EqualFold(a, c.cfg.Settings.NoAnswerText) {
		return 0
	}
	words := meaningfulWords(a)
	if len(words) < 3 {
		return 0
	}
	score := 2 + len(words)/4
	overlap := 0
	for w := range meaningfulWords(question) {
		if len(w) >= 5 {
			if _, ok := words[w]; ok {
				overlap++
			}
		}
	}
	score += min(overlap, 2)
	return float64(min(score, 10))
}

func (c *Client) matchSkills(text string) []string {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '+' || r == '#')
	}) {
		tokens[strings.TrimRight(tok, ".")] = struct{}{}
	}
	out := []string{}
	for _, kw := range c.cfg.SkillKeywords {
		if _, ok := tokens[strings.ToLower(kw)]; ok {
			out = append(out, kw)
		}
	}
	return out
}

func guessName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 4 {
			return ""
		}
		for _, f := range fields {
			for _, r := range f {
				if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
					return ""
				}
			}
		}
		return line
	}
	return ""
}

func tagged(q config.BankQuestion, want map[string]struct{}) bool {
	for _, s := range q.Skills {
		if _, ok := want[strings.ToLower(s)]; ok {
			return true
		}
	}
	return false
}

// meaningfulWords returns distinct lowercased words of at least three letters
// that contain a vowel and are not a single repeated character.
func meaningfulWords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len(w) < 3 || !strings.ContainsAny(w, "aeiouy") || strings.Count(w, w[:1]) == len(w) {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func verdict(score float64) string {
	switch {
	case score > 75:
		return "Strong technical depth across difficulty levels."
	case score > 50:
		return "Reasonable fundamentals with gaps on harder topics."
	default:
		return "Answers lacked the technical depth expected for the role."
	}
}

var _ llm.Client = (*Client)(nil)
