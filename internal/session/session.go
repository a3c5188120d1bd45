package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Role identifies who wrote a message
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

var (
	ErrChatDisabled     = errors.New("chat is disabled")
	ErrQuestionMismatch = errors.New("question does not match the required one")
)

// State is the conversation progress derived from the session flags
type State int

const (
	Idle State = iota
	AwaitingAnswer
	Rendering
	Answered
	EndShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingAnswer:
		return "awaiting_answer"
	case Rendering:
		return "rendering"
	case Answered:
		return "answered"
	case EndShown:
		return "end_shown"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Message represents a single chat message
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Checker decides whether a submission is the required question
type Checker interface {
	Check(text string) bool
}

// Picker chooses the answer for a run
type Picker interface {
	Pick(r *rand.Rand) string
}

// Session represents one participant's chat
type Session struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"start_time"`
	Messages      []Message `json:"messages"`
	ChatDisabled  bool      `json:"chat_disabled"`
	PendingAnswer string    `json:"pending_answer,omitempty"`
	Rendering     bool      `json:"rendering"`
	Answered      bool      `json:"answered"`
	EndShown      bool      `json:"end_shown"`

	// Epoch increments on every Reset so a render that started before
	// the reset cannot complete into the cleared session.
	Epoch uint64 `json:"epoch"`
}

// NewID returns a fresh session identifier
func NewID() string {
	return uuid.NewString()
}

// New creates an idle session
func New(id string) *Session {
	return &Session{
		ID:        id,
		StartTime: time.Now(),
		Messages:  []Message{},
	}
}

// State derives the current progress from the flags
func (s *Session) State() State {
	switch {
	case s.EndShown:
		return EndShown
	case s.Answered:
		return Answered
	case s.Rendering:
		return Rendering
	case s.PendingAnswer != "":
		return AwaitingAnswer
	}
	return Idle
}

// Submit accepts the participant's question. Only the first matching
// submission is taken; everything after that is refused.
func (s *Session) Submit(text string, checker Checker, picker Picker, r *rand.Rand) error {
	if s.ChatDisabled {
		return ErrChatDisabled
	}
	if !checker.Check(text) {
		return ErrQuestionMismatch
	}

	s.Messages = append(s.Messages, Message{
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	s.ChatDisabled = true
	s.PendingAnswer = picker.Pick(r)
	return nil
}

// BeginRender claims the pending answer for rendering
func (s *Session) BeginRender() (answer string, epoch uint64, ok bool) {
	if s.State() != AwaitingAnswer {
		return "", s.Epoch, false
	}
	s.Rendering = true
	return s.PendingAnswer, s.Epoch, true
}

// CompleteRender stores the rendered answer. It is ignored when the
// session was reset after BeginRender.
func (s *Session) CompleteRender(epoch uint64, content string) bool {
	if epoch != s.Epoch || !s.Rendering {
		return false
	}
	s.Messages = append(s.Messages, Message{
		Role:      RoleAgent,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.PendingAnswer = ""
	s.Rendering = false
	s.Answered = true
	return true
}

// ShowEnd marks the end notice as displayed. It returns true exactly
// once per completed session.
func (s *Session) ShowEnd(epoch uint64) bool {
	if epoch != s.Epoch || !s.Answered || s.EndShown {
		return false
	}
	s.EndShown = true
	return true
}

// Reset returns the session to its initial state
func (s *Session) Reset() {
	s.Messages = []Message{}
	s.ChatDisabled = false
	s.PendingAnswer = ""
	s.Rendering = false
	s.Answered = false
	s.EndShown = false
	s.StartTime = time.Now()
	s.Epoch++
}

// Snapshot returns a copy safe to hand to another goroutine
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return cp
}

// EndNotice is the completion text carrying the verification code
func EndNotice(code string) string {
	return fmt.Sprintf("This is the end of the interaction. Please enter the code %s in the Qualtrics survey to continue.", code)
}
