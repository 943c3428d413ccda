package interview

import (
	"interview-backend/internal/llm"
)

// Status is the lifecycle stage of the current interview session.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusUploading      Status = "uploading"
	StatusValidatingInfo Status = "validating_info"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
)

type (
	Question     = llm.Question
	ScoredAnswer = llm.ScoredAnswer
	Evaluation   = llm.Evaluation
)

// Candidate is a person undergoing one interview. The result fields are set
// once the interview completes.
type Candidate struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Skills         []string       `json:"skills"`
	FinalSummary   *string        `json:"finalSummary,omitempty"`
	OverallScore   *float64       `json:"overallScore,omitempty"`
	DetailedScores []ScoredAnswer `json:"detailedScores,omitempty"`
}

// Completed reports whether the candidate has a final evaluation.
func (c Candidate) Completed() bool {
	return c.FinalSummary != nil
}

// Session is the single active run of question progression.
type Session struct {
	CandidateID          string     `json:"candidateId"`
	Status               Status     `json:"status"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Questions            []Question `json:"questions"`
	Answers              []string   `json:"answers"`
	Timers               []int      `json:"timers"`
	Skills               []string   `json:"skills"`
}

// Modal carries the welcome-back prompt flag.
type Modal struct {
	ShowWelcomeBack bool `json:"showWelcomeBack"`
}

// State is the unit of persistence: the candidate registry, the current
// session and the modal flag.
type State struct {
	Candidates       map[string]Candidate `json:"candidates"`
	CurrentInterview Session              `json:"currentInterview"`
	Modal            Modal                `json:"modal"`
}

// NewState returns the initial idle state.
func NewState() State {
	return State{
		Candidates:       map[string]Candidate{},
		CurrentInterview: newSession("", StatusIdle),
	}
}

func newSession(candidateID string, status Status) Session {
	return Session{
		CandidateID: candidateID,
		Status:      status,
		Questions:   []Question{},
		Answers:     []string{},
		Timers:      []int{},
		Skills:      []string{},
	}
}

// ActiveCandidate returns the candidate the current session points at.
func (s State) ActiveCandidate() (Candidate, bool) {
	if s.CurrentInterview.CandidateID == "" {
		return Candidate{}, false
	}
	c, ok := s.Candidates[s.CurrentInterview.CandidateID]
	return c, ok
}

func (s State) clone() State {
	out := State{
		Candidates:       make(map[string]Candidate, len(s.Candidates)),
		CurrentInterview: s.CurrentInterview.clone(),
		Modal:            s.Modal,
	}
	for id, c := range s.Candidates {
		out.Candidates[id] = c.clone()
	}
	return out
}

func (s Session) clone() Session {
	out := s
	out.Questions = append([]Question{}, s.Questions...)
	out.Answers = append([]string{}, s.Answers...)
	out.Timers = append([]int{}, s.Timers...)
	out.Skills = append([]string{}, s.Skills...)
	return out
}

func (c Candidate) clone() Candidate {
	out := c
	out.Skills = append([]string{}, c.Skills...)
	if c.FinalSummary != nil {
		v := *c.FinalSummary
		out.FinalSummary = &v
	}
	if c.OverallScore != nil {
		v := *c.OverallScore
		out.OverallScore = &v
	}
	if c.DetailedScores != nil {
		out.DetailedScores = append([]ScoredAnswer{}, c.DetailedScores...)
	}
	return out
}

// normalize fills nil collections left by decoding older or partial payloads.
func (s *State) normalize() {
	if s.Candidates == nil {
		s.Candidates = map[string]Candidate{}
	}
	if s.CurrentInterview.Status == "" {
		s.CurrentInterview.Status = StatusIdle
	}
	sess := &s.CurrentInterview
	if sess.Questions == nil {
		sess.Questions = []Question{}
	}
	if sess.Answers == nil {
		sess.Answers = []string{}
	}
	if sess.Timers == nil {
		sess.Timers = []int{}
	}
	if sess.Skills == nil {
		sess.Skills = []string{}
	}
	for id, c := range s.Candidates {
		if c.Skills == nil {
			c.Skills = []string{}
			s.Candidates[id] = c
		}
	}
}
