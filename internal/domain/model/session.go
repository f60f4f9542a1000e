package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultRecencyWindow is how many transcript entries are rendered into prompts.
const DefaultRecencyWindow = 6

// Message represents one transcript entry within a session.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the aggregate root for a contract QA conversation.
// The transcript is append-only; the recency window is applied when reading.
type Session struct {
	ID         string            `json:"id"`
	Profile    map[string]string `json:"profile"`
	Transcript []Message         `json:"transcript"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Profile:    make(map[string]string),
		Transcript: make([]Message, 0, 8),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Session) SetProfileFact(key, value string) {
	if s.Profile == nil {
		s.Profile = make(map[string]string)
	}
	s.Profile[key] = value
	s.UpdatedAt = time.Now()
}

func (s *Session) AddMessage(role Role, content string) {
	s.Transcript = append(s.Transcript, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// RecentMessages returns the last n transcript entries, oldest first.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Transcript) <= n {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-n:]
}

// Clone returns a deep copy safe to hand out of a store.
func (s *Session) Clone() *Session {
	c := *s
	c.Profile = make(map[string]string, len(s.Profile))
	for k, v := range s.Profile {
		c.Profile[k] = v
	}
	c.Transcript = append([]Message(nil), s.Transcript...)
	return &c
}

// RenderContext formats the profile and the recency window for prompt injection.
// Profile keys are sorted so the output is deterministic.
func (s *Session) RenderContext(window int) string {
	keys := make([]string, 0, len(s.Profile))
	for k := range s.Profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("User Profile:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, s.Profile[k])
	}
	b.WriteString("\nRecent Conversation:\n")
	for _, m := range s.RecentMessages(window) {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
