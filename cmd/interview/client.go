package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"interview-backend/internal/candidates"
	"interview-backend/internal/interview"
)

const continuation = `\`

type client struct {
	svc         *interview.Service
	dashboard   *candidates.Service
	out         io.Writer
	interactive bool

	printed     int
	lastPrompt  string
	candidateID string
	draft       []string
	draftIndex  int
}

func (c *client) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	events, unsubscribe := c.svc.Events.Subscribe()
	defer unsubscribe()

	if !c.interactive {
		c.printf("(input is not a terminal; reading answers line by line)\n")
	}
	c.render()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.svc.Orch.Wait()
				c.render()
				return nil
			}
			quit, err := c.handle(ctx, line)
			if err != nil {
				c.printf("! %s\n", interview.UserMessage(err))
				c.lastPrompt = ""
			}
			if quit {
				return nil
			}
			c.render()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.onEvent(ev)
		}
	}
}

func (c *client) onEvent(ev interview.Event) {
	switch ev.Type {
	case interview.EventTick:
		if ev.TimeLeft > 0 && (ev.TimeLeft%10 == 0 || ev.TimeLeft <= 5) {
			c.printf("  [%ds left, %s]\n", ev.TimeLeft, ev.Urgency)
		}
	case interview.EventState:
		c.render()
	}
}

// handle applies one line of input to the current step. It reports whether
// the user asked to quit.
func (c *client) handle(ctx context.Context, line string) (bool, error) {
	text := strings.TrimSpace(line)
	if strings.EqualFold(text, "/quit") {
		return true, nil
	}
	v := c.svc.View()

	switch {
	case v.Status == interview.StatusIdle:
		_, err := c.svc.Begin(ctx)
		return false, err

	case v.Status == interview.StatusUploading:
		return false, c.upload(ctx, text)

	case v.Status == interview.StatusValidatingInfo && v.Prompt != nil:
		if v.Prompt.Mode == interview.ModeConfirm {
			switch strings.ToLower(text) {
			case "y", "yes":
				_, err := c.svc.Confirm(ctx)
				return false, err
			case "n", "no":
				_, err := c.svc.Reject(ctx)
				return false, err
			default:
				c.lastPrompt = ""
				return false, nil
			}
		}
		_, err := c.svc.Provide(ctx, text)
		return false, err

	case v.WelcomeBack != nil:
		switch strings.ToLower(text) {
		case "r", "resume":
			_, err := c.svc.WelcomeBackResume(ctx)
			return false, err
		case "n", "new":
			_, err := c.svc.WelcomeBackRestart(ctx)
			return false, err
		}
		c.lastPrompt = ""
		return false, nil

	case v.Phase == interview.PhaseGenerationFailed:
		_, err := c.svc.RetryQuestions(ctx)
		return false, err

	case v.CurrentQuestion != nil:
		return false, c.answer(ctx, v.QuestionIndex, line)

	case v.Status == interview.StatusCompleted:
		if strings.EqualFold(text, "q") {
			return true, nil
		}
		_, err := c.svc.Reset(ctx)
		return false, err
	}
	return false, nil
}

func (c *client) upload(ctx context.Context, path string) error {
	if path == "" {
		c.lastPrompt = ""
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	c.printf("Processing resume...\n")
	_, err = c.svc.Upload(ctx, interview.Upload{FileName: path, Data: data})
	return err
}

// answer submits line, or keeps it as a draft when it ends with a backslash
// so a timeout submits what was typed so far.
func (c *client) answer(ctx context.Context, index int, line string) error {
	if index != c.draftIndex {
		c.draft = nil
		c.draftIndex = index
	}
	if strings.HasSuffix(line, continuation) {
		c.draft = append(c.draft, strings.TrimSuffix(line, continuation))
		return c.svc.SaveDraft(index, strings.Join(c.draft, "\n"))
	}
	full := strings.Join(append(c.draft, line), "\n")
	if strings.TrimSpace(full) == "" {
		return interview.ErrEmptyAnswer
	}
	c.draft = nil
	_, err := c.svc.Submit(ctx, index, full)
	return err
}

func (c *client) render() {
	v := c.svc.View()
	if v.Candidate != nil {
		c.candidateID = v.Candidate.ID
	}

	if len(v.Transcript) < c.printed {
		c.printed = len(v.Transcript)
	}
	for _, m := range v.Transcript[c.printed:] {
		if m.Sender == interview.SenderAI {
			c.printf("AI:  %s\n", m.Text)
		} else {
			c.printf("You: %s\n", m.Text)
		}
	}
	c.printed = len(v.Transcript)

	key := promptKey(v)
	if key == c.lastPrompt {
		return
	}
	c.lastPrompt = key

	switch {
	case v.Status == interview.StatusIdle:
		c.printf("Press Enter to begin an interview (/quit to exit).\n")
	case v.Status == interview.StatusUploading:
		c.printf("Path to your resume (PDF or DOCX):\n")
	case v.Prompt != nil && v.Prompt.Mode == interview.ModeConfirm:
		c.printf("[y/n] > ")
	case v.Prompt != nil && v.Prompt.Mode == interview.ModeInput:
		c.printf("> ")
	case v.WelcomeBack != nil:
		c.printf("Welcome back, %s! Your interview is in progress. [r]esume or start [n]ew?\n", v.WelcomeBack.Name)
	case v.Error != nil:
		c.printf("! %s Press Enter to retry.\n", v.Error.Message)
	case v.CurrentQuestion != nil:
		secs := v.CurrentQuestion.Time
		if v.Timer != nil {
			secs = v.Timer.TimeLeft
		}
		c.printf("(%ds) Type your answer; end a line with %s to continue it.\n", secs, continuation)
	case v.Status == interview.StatusCompleted:
		c.printResult()
		c.printf("Press Enter to start another interview, or q to quit.\n")
	case v.Phase == interview.PhaseEvaluating:
		c.printf("All questions answered. Evaluating...\n")
	}
}

func (c *client) printResult() {
	if c.candidateID == "" {
		return
	}
	d, err := c.dashboard.Get(c.candidateID)
	if errors.Is(err, candidates.ErrNotFound) {
		c.printf("Interview complete.\n")
		return
	}
	if err != nil {
		c.printf("! %v\n", err)
		return
	}
	c.printf("\nInterview complete. Overall score: %.1f/100 (%s)\n", d.OverallScore, d.Band)
	for i, s := range d.DetailedScores {
		c.printf("  %d. %s  [%g/10]\n", i+1, s.Question, s.Score)
	}
	c.printf("%s\n\n", d.FinalSummary)
}

func promptKey(v interview.View) string {
	switch {
	case v.Status == interview.StatusCompleted:
		return "completed"
	case v.WelcomeBack != nil:
		return "welcome"
	case v.Error != nil:
		return "error|" + v.Error.Code
	case v.CurrentQuestion != nil:
		return fmt.Sprintf("question|%d", v.QuestionIndex)
	}
	key := fmt.Sprintf("%s|%s", v.Status, v.Phase)
	if v.Prompt != nil {
		key += fmt.Sprintf("|%s|%s", v.Prompt.Stage, v.Prompt.Mode)
	}
	return key
}

func (c *client) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
