package interview

import (
	"errors"
	"fmt"

	"interview-backend/internal/timer"
)

// View is the session as the candidate's client renders it.
type View struct {
	Status          Status       `json:"status"`
	Phase           Phase        `json:"phase"`
	Candidate       *Candidate   `json:"candidate,omitempty"`
	QuestionIndex   int          `json:"questionIndex"`
	TotalQuestions  int          `json:"totalQuestions"`
	CurrentQuestion *Question    `json:"currentQuestion,omitempty"`
	Draft           string       `json:"draft,omitempty"`
	Timer           *timer.State `json:"timer,omitempty"`
	WelcomeBack     *WelcomeBack `json:"welcomeBack,omitempty"`
	Prompt          *Prompt      `json:"prompt,omitempty"`
	Transcript      []Message    `json:"transcript"`
	Error           *ViewError   `json:"error,omitempty"`
}

// WelcomeBack is the resume prompt.
type WelcomeBack struct {
	Name string `json:"name"`
}

// ViewError is a user-visible failure carried by the view.
type ViewError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode maps engine errors to stable client-facing codes.
func ErrorCode(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return "invalid_field"
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrUnreadableFile):
		return "unreadable_file"
	case errors.Is(err, ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, ErrGeneration):
		return "generation_failed"
	case errors.Is(err, ErrEmptyAnswer):
		return "empty_answer"
	case errors.Is(err, ErrNoActiveQuestion):
		return "no_active_question"
	case errors.Is(err, ErrStaleSubmission):
		return "stale_submission"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// UserMessage returns the text shown to the candidate for err.
func UserMessage(err error) string {
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, ErrUnsupportedType):
		return "Invalid file type. Please upload a PDF or DOCX file."
	case errors.Is(err, ErrUnreadableFile):
		return "Failed to read the resume. Please try another file."
	case errors.Is(err, ErrFileTooLarge):
		return "The file is too large. The limit is 10 MB."
	case errors.Is(err, ErrGeneration):
		return "Could not generate interview questions. Please try again."
	case errors.Is(err, ErrEmptyAnswer):
		return "Please enter an answer before submitting."
	default:
		return err.Error()
	}
}

func buildTranscript(dialogue []Message, sess Session) []Message {
	out := append([]Message{}, dialogue...)
	for i, q := range sess.Questions {
		if i > sess.CurrentQuestionIndex {
			break
		}
		out = append(out, Message{
			Sender: SenderAI,
			Text:   fmt.Sprintf("**Question %d (%s):** %s", i+1, q.Difficulty, q.Question),
		})
		if i < len(sess.Answers) {
			out = append(out, Message{Sender: SenderUser, Text: sess.Answers[i]})
		}
	}
	return out
}
