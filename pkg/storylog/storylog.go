// Package storylog holds the append-only log of everything shown to the
// player during a session.
package storylog

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies who produced a log entry.
type Kind string

const (
	KindPlayer   Kind = "player"
	KindNarrator Kind = "narrator"
	KindArt      Kind = "art"
	KindSystem   Kind = "system"
)

// Animated reports whether entries of this kind are revealed by the
// typewriter rather than shown at once.
func (k Kind) Animated() bool {
	return k == KindNarrator || k == KindArt
}

// Entry is one immutable line of the story log.
type Entry struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(newID func() string) Option {
	return func(l *Log) { l.newID = newID }
}

// Log is an ordered, append-only sequence of entries. It is not safe for
// concurrent use; the owner serializes access.
type Log struct {
	entries []Entry
	now     func() time.Time
	newID   func() string
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		entries: make([]Entry, 0),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds an entry and returns it.
func (l *Log) Append(kind Kind, content string) Entry {
	e := Entry{
		ID:        l.newID(),
		Kind:      kind,
		Content:   content,
		CreatedAt: l.now(),
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of all entries in append order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// LatestAnimated returns the most recent narrator or art entry.
func (l *Log) LatestAnimated() (Entry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Kind.Animated() {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}

// LatestOfKind returns the most recent entry of kind.
func (l *Log) LatestOfKind(kind Kind) (Entry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Kind == kind {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}

// Since returns the entries appended after the entry with id. An unknown
// id returns every entry.
func (l *Log) Since(id string) []Entry {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID == id {
			out := make([]Entry, len(l.entries)-i-1)
			copy(out, l.entries[i+1:])
			return out
		}
	}
	return l.Entries()
}

// Clear removes every entry. Only a session reset clears the log.
func (l *Log) Clear() {
	l.entries = make([]Entry, 0)
}
