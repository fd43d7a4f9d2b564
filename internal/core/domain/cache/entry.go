package cache

import (
	"errors"
	"time"
)

// State is the validity of a cache entry relative to its soft and hard expiry.
type State int

const (
	Absent State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

var ErrInvalidTTL = errors.New("invalid TTL: must be positive")

// Entry is a previously fetched or generated payload with explicit expiry.
// ExpiresAt marks the end of authority; HardExpiresAt marks the end of existence.
type Entry struct {
	Key           string    `json:"key"`
	Payload       []byte    `json:"payload"`
	FetchedAt     time.Time `json:"fetched_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	HardExpiresAt time.Time `json:"hard_expires_at"`
}

// NewEntry builds an entry fetched at now. hardTTL shorter than ttl is raised to ttl.
func NewEntry(key string, payload []byte, now time.Time, ttl, hardTTL time.Duration) (*Entry, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if hardTTL < ttl {
		hardTTL = ttl
	}
	return &Entry{
		Key:           key,
		Payload:       payload,
		FetchedAt:     now,
		ExpiresAt:     now.Add(ttl),
		HardExpiresAt: now.Add(hardTTL),
	}, nil
}

// Classify is the pure staleness function; it only compares timestamps.
func Classify(e *Entry, now time.Time) State {
	if e == nil {
		return Absent
	}
	if now.Before(e.ExpiresAt) {
		return Fresh
	}
	if now.Before(e.HardExpiresAt) {
		return Stale
	}
	return Absent
}

// Age reports how long ago the entry was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}
