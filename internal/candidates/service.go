// Package candidates serves the interviewer dashboard: completed candidates
// with their scores and per-question evaluations.
package candidates

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"interview-backend/internal/interview"
)

var (
	ErrNotFound     = errors.New("candidate not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Sort keys.
const (
	SortName  = "name"
	SortScore = "score"
)

// Score bands.
const (
	BandSuccess    = "success"
	BandProcessing = "processing"
	BandError      = "error"
)

// Source provides the current engine state.
type Source interface {
	Snapshot() interview.State
}

// Query filters and orders the list.
type Query struct {
	Search string
	Sort   string
	Desc   bool
}

// Summary is one dashboard row.
type Summary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Skills       []string `json:"skills"`
	OverallScore float64  `json:"overallScore"`
	Band         string   `json:"band"`
}

// Detail is a completed candidate with the full evaluation.
type Detail struct {
	Summary
	FinalSummary   string                   `json:"finalSummary"`
	DetailedScores []interview.ScoredAnswer `json:"detailedScores"`
}

// Service reads completed candidates.
type Service struct {
	Source Source
}

// NewService returns a dashboard service over src.
func NewService(src Source) *Service {
	return &Service{Source: src}
}

// ParseQuery validates raw list parameters. Score sorts descending unless an
// order is given; name sorts ascending unless an order is given.
func ParseQuery(search, sortKey, order string) (Query, error) {
	q := Query{Search: strings.TrimSpace(search)}
	switch strings.ToLower(strings.TrimSpace(sortKey)) {
	case "", SortScore:
		q.Sort = SortScore
		q.Desc = true
	case SortName:
		q.Sort = SortName
	default:
		return Query{}, fmt.Errorf("%w: sort must be name or score", ErrInvalidInput)
	}
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "":
	case "asc":
		q.Desc = false
	case "desc":
		q.Desc = true
	default:
		return Query{}, fmt.Errorf("%w: order must be asc or desc", ErrInvalidInput)
	}
	return q, nil
}

// List returns completed candidates matching q.
func (s *Service) List(q Query) []Summary {
	st := s.Source.Snapshot()
	needle := strings.ToLower(q.Search)

	out := make([]Summary, 0, len(st.Candidates))
	for _, c := range st.Candidates {
		if !listed(c) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.Name), needle) && !strings.Contains(strings.ToLower(c.Email), needle) {
			continue
		}
		out = append(out, toSummary(c))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Sort == SortName {
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				if q.Desc {
					return an > bn
				}
				return an < bn
			}
			return a.ID < b.ID
		}
		if a.OverallScore != b.OverallScore {
			if q.Desc {
				return a.OverallScore > b.OverallScore
			}
			return a.OverallScore < b.OverallScore
		}
		return a.ID < b.ID
	})
	return out
}

// Get returns one completed candidate.
func (s *Service) Get(id string) (Detail, error) {
	c, ok := s.Source.Snapshot().Candidates[id]
	if !ok || !listed(c) {
		return Detail{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	scores := c.DetailedScores
	if scores == nil {
		scores = []interview.ScoredAnswer{}
	}
	return Detail{
		Summary:        toSummary(c),
		FinalSummary:   *c.FinalSummary,
		DetailedScores: scores,
	}, nil
}

// Band classifies an overall score for display.
func Band(score float64) string {
	switch {
	case score > 75:
		return BandSuccess
	case score > 50:
		return BandProcessing
	default:
		return BandError
	}
}

func listed(c interview.Candidate) bool {
	return c.Completed() && strings.TrimSpace(c.Name) != ""
}

func toSummary(c interview.Candidate) Summary {
	var score float64
	if c.OverallScore != nil {
		score = *c.OverallScore
	}
	skills := c.Skills
	if skills == nil {
		skills = []string{}
	}
	return Summary{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		Skills:       skills,
		OverallScore: score,
		Band:         Band(score),
	}
}
