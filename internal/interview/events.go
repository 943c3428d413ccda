package interview

import (
	"sync"

	"interview-backend/internal/timer"
)

// Event types pushed to stream subscribers.
const (
	EventTick  = "tick"
	EventState = "state"
)

// Event is one message on the live feed.
type Event struct {
	Type            string        `json:"type"`
	Key             int           `json:"key"`
	TimeLeft        int           `json:"timeLeft"`
	Urgency         timer.Urgency `json:"urgency,omitempty"`
	Status          Status        `json:"status,omitempty"`
	QuestionIndex   int           `json:"questionIndex"`
	TotalQuestions  int           `json:"totalQuestions"`
	ShowWelcomeBack bool          `json:"showWelcomeBack"`
}

const subscriberBuffer = 32

// Broadcaster fans events out to subscribers. Slow subscribers drop events
// rather than stall the timer.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]chan Event{}}
}

// Subscribe returns a channel of events and a function that unsubscribes and
// closes it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber that has room.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func stateEvent(st State) Event {
	sess := st.CurrentInterview
	return Event{
		Type:            EventState,
		Status:          sess.Status,
		QuestionIndex:   sess.CurrentQuestionIndex,
		TotalQuestions:  len(sess.Questions),
		ShowWelcomeBack: st.Modal.ShowWelcomeBack,
	}
}

func tickEvent(key, timeLeft, duration int) Event {
	return Event{
		Type:     EventTick,
		Key:      key,
		TimeLeft: timeLeft,
		Urgency:  timer.UrgencyFor(timeLeft, duration),
	}
}
