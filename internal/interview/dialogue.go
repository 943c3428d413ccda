package interview

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Stage is one step of the identity validation dialogue.
type Stage string

const (
	StageName  Stage = "name"
	StageEmail Stage = "email"
	StagePhone Stage = "phone"
	StageDone  Stage = "done"
)

const (
	fieldName  = "name"
	fieldEmail = "email"
	fieldPhone = "phone"
)

// Prompt modes.
const (
	ModeConfirm = "confirm"
	ModeInput   = "input"
)

// Message senders.
const (
	SenderAI   = "ai"
	SenderUser = "user"
)

var phonePattern = regexp.MustCompile(`^[0-9\s+\-]{10,15}$`)

// Message is one line of the interview chat.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Prompt describes what the dialogue is waiting for.
type Prompt struct {
	Stage Stage  `json:"stage"`
	Mode  string `json:"mode"`
	Value string `json:"value,omitempty"`
}

// Dialogue walks the candidate through confirming name, email and phone in
// order. Corrections are written to the store as soon as they are accepted.
type Dialogue struct {
	mu          sync.Mutex
	store       *Store
	candidateID string
	stage       Stage
	awaiting    bool
	messages    []Message
	delay       time.Duration
	onDone      func(ctx context.Context)
	pending     *time.Timer
}

// NewDialogue starts a dialogue for the active candidate. onDone runs once
// after the final stage, delayed by delay when it is positive.
func NewDialogue(store *Store, delay time.Duration, onDone func(ctx context.Context)) (*Dialogue, error) {
	st := store.Snapshot()
	if st.CurrentInterview.Status != StatusValidatingInfo {
		return nil, invalidTransition("validate", st.CurrentInterview.Status)
	}
	d := &Dialogue{
		store:       store,
		candidateID: st.CurrentInterview.CandidateID,
		stage:       StageName,
		delay:       delay,
		onDone:      onDone,
		messages: []Message{{
			Sender: SenderAI,
			Text:   "Thanks for uploading your resume. Let's quickly verify your details.",
		}},
	}
	d.askLocked(st)
	return d, nil
}

// Stage returns the current stage.
func (d *Dialogue) Stage() Stage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stage
}

// Prompt returns what the dialogue is waiting for.
func (d *Dialogue) Prompt() Prompt {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stage == StageDone {
		return Prompt{Stage: StageDone}
	}
	if d.awaiting {
		return Prompt{Stage: d.stage, Mode: ModeInput}
	}
	return Prompt{Stage: d.stage, Mode: ModeConfirm, Value: d.fieldValue(d.store.Snapshot())}
}

// Transcript returns a copy of the chat so far.
func (d *Dialogue) Transcript() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message{}, d.messages...)
}

// Confirm accepts the presented value and advances.
func (d *Dialogue) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if d.stage == StageDone || d.awaiting {
		d.mu.Unlock()
		return fmt.Errorf("%w: nothing to confirm", ErrInvalidTransition)
	}
	d.messages = append(d.messages, Message{Sender: SenderUser, Text: "Yes, that's correct."})
	done := d.advanceLocked()
	d.mu.Unlock()

	d.maybeFinish(ctx, done)
	return nil
}

// Reject discards the presented value and asks for a correction.
func (d *Dialogue) Reject(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stage == StageDone || d.awaiting {
		return fmt.Errorf("%w: nothing to reject", ErrInvalidTransition)
	}
	d.messages = append(d.messages,
		Message{Sender: SenderUser, Text: "No, that's incorrect."},
		Message{Sender: SenderAI, Text: fmt.Sprintf("My apologies. What is your correct %s?", d.stage)},
	)
	d.awaiting = true
	return nil
}

// Provide validates free-text input for the current field, stores it and
// advances. A rejected value leaves the stage unchanged.
func (d *Dialogue) Provide(ctx context.Context, value string) error {
	d.mu.Lock()
	if d.stage == StageDone || !d.awaiting {
		d.mu.Unlock()
		return fmt.Errorf("%w: not waiting for input", ErrInvalidTransition)
	}
	value = strings.TrimSpace(value)
	if err := validateField(d.stage, value); err != nil {
		d.mu.Unlock()
		return err
	}
	if _, err := d.store.UpdateCandidateField(ctx, string(d.stage), value); err != nil {
		d.mu.Unlock()
		return err
	}
	d.messages = append(d.messages, Message{Sender: SenderUser, Text: value})
	d.awaiting = false
	done := d.advanceLocked()
	d.mu.Unlock()

	d.maybeFinish(ctx, done)
	return nil
}

// Stop cancels a pending delayed completion.
func (d *Dialogue) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Dialogue) advanceLocked() bool {
	switch d.stage {
	case StageName:
		d.stage = StageEmail
	case StageEmail:
		d.stage = StagePhone
	default:
		d.stage = StageDone
	}
	if d.stage == StageDone {
		d.messages = append(d.messages, Message{
			Sender: SenderAI,
			Text:   "Great! All your information is updated. Preparing your interview questions now...",
		})
		return true
	}
	d.askLocked(d.store.Snapshot())
	return false
}

func (d *Dialogue) askLocked(st State) {
	if value := d.fieldValue(st); value != "" {
		d.messages = append(d.messages, Message{
			Sender: SenderAI,
			Text:   fmt.Sprintf("I have your %s as **%s**. Is that correct?", d.stage, value),
		})
		d.awaiting = false
		return
	}
	d.messages = append(d.messages, Message{
		Sender: SenderAI,
		Text:   fmt.Sprintf("I couldn't find a %s in the resume. What is your %s?", d.stage, d.stage),
	})
	d.awaiting = true
}

func (d *Dialogue) fieldValue(st State) string {
	c := st.Candidates[d.candidateID]
	switch d.stage {
	case StageName:
		return c.Name
	case StageEmail:
		return c.Email
	case StagePhone:
		return c.Phone
	default:
		return ""
	}
}

func (d *Dialogue) maybeFinish(ctx context.Context, done bool) {
	if !done || d.onDone == nil {
		return
	}
	if d.delay <= 0 {
		d.onDone(ctx)
		return
	}
	bg := context.WithoutCancel(ctx)
	d.mu.Lock()
	d.pending = time.AfterFunc(d.delay, func() { d.onDone(bg) })
	d.mu.Unlock()
}

func validateField(stage Stage, value string) error {
	switch stage {
	case StageName:
		if value == "" {
			return &FieldError{Field: fieldName, Message: "Please enter your name."}
		}
	case StageEmail:
		if value == "" {
			return &FieldError{Field: fieldEmail, Message: "Please enter your email."}
		}
		if !validEmail(value) {
			return &FieldError{Field: fieldEmail, Message: "Please enter a valid email."}
		}
	case StagePhone:
		if value == "" {
			return &FieldError{Field: fieldPhone, Message: "Please enter your phone number."}
		}
		if !phonePattern.MatchString(value) {
			return &FieldError{Field: fieldPhone, Message: "Please enter a valid phone number."}
		}
	}
	return nil
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	at := strings.LastIndex(value, "@")
	domain := value[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
