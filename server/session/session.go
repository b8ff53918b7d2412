// Package session provides the in-memory, time-bounded store for ongoing
// conversations.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is the inactivity timeout after which a session is evicted.
const DefaultTTL = time.Hour

// Stage enumerates the dialogue states.
type Stage string

const (
	StageInitial    Stage = "initial"
	StageCollecting Stage = "collecting"
	StageConfirming Stage = "confirming"
	StageSearching  Stage = "searching"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// SearchResult is a retrieval hit attached to an assistant message.
type SearchResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Snippets    []string `json:"snippets,omitempty"`
}

// Message is one conversation turn entry.
type Message struct {
	UID       string `json:"uid"`
	Role      string `json:"role"` // "user" | "assistant"
	Content   string `json:"content"`
	CreatedTs int64  `json:"created_ts"`
	// Results optionally attaches retrieval hits to an assistant message.
	Results []SearchResult `json:"results,omitempty"`
}

// Reconciliation is the pending topic-switch confirmation. It exists only
// while the session stage is confirming and is cleared on the next turn.
type Reconciliation struct {
	// Topic is the candidate new topic.
	Topic string `json:"topic"`
	// Reusable holds the collected slots valid for the new topic.
	Reusable map[string]string `json:"reusable"`
	// Extracted holds the entities from the turn that triggered the switch.
	Extracted map[string]string `json:"extracted"`
	// Prompt is the confirmation question shown to the user.
	Prompt string `json:"prompt"`
}

// Session is the state of one conversation. It is exclusively owned by the
// Store; callers borrow it for the duration of one turn under the store's
// per-session lock and must not retain it past the turn boundary.
type Session struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	Topic        string            `json:"topic,omitempty"`
	Collected    map[string]string `json:"collected_entities"`
	History      []Message         `json:"conversation_history"`
	Stage        Stage             `json:"stage"`
	Pending      *Reconciliation   `json:"pending_reconciliation,omitempty"`
}

// Clone returns a deep copy safe to read or serialize after the per-session
// lock is released.
func (s *Session) Clone() *Session {
	out := *s

	out.Collected = make(map[string]string, len(s.Collected))
	for k, v := range s.Collected {
		out.Collected[k] = v
	}

	out.History = make([]Message, len(s.History))
	copy(out.History, s.History)
	for i, m := range s.History {
		if len(m.Results) > 0 {
			out.History[i].Results = append([]SearchResult(nil), m.Results...)
		}
	}

	if s.Pending != nil {
		pending := *s.Pending
		pending.Reusable = make(map[string]string, len(s.Pending.Reusable))
		for k, v := range s.Pending.Reusable {
			pending.Reusable[k] = v
		}
		pending.Extracted = make(map[string]string, len(s.Pending.Extracted))
		for k, v := range s.Pending.Extracted {
			pending.Extracted[k] = v
		}
		out.Pending = &pending
	}

	return &out
}

// Store is the session persistence interface.
type Store interface {
	// GetOrCreate returns the session for id if present and not expired,
	// otherwise a fresh session under a newly generated identifier. Refreshes
	// the session's last-activity timestamp.
	GetOrCreate(ctx context.Context, id string) (*Session, error)

	// Get returns the session or ErrNotFound if absent or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes the session, returning ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Lock acquires the per-session turn lock and returns the unlock func.
	Lock(id string) func()

	// CleanupExpired removes sessions idle longer than the TTL and returns
	// how many were removed.
	CleanupExpired(ctx context.Context) (int64, error)
}
