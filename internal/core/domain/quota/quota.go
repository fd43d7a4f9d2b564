package quota

import (
	"time"
)

// Scope names the window that rejected a request.
type Scope string

const (
	ScopeWindow Scope = "window"
	ScopeDay    Scope = "day"
)

// Limits caps requests per short window and per local day. A non-positive max disables that cap.
type Limits struct {
	WindowMax int `json:"window_max"`
	DailyMax  int `json:"daily_max"`
}

// Policy fixes the short window length and the time zone of the daily boundary.
type Policy struct {
	Window   time.Duration
	Location *time.Location
}

// DefaultPolicy is an hourly window with days measured in the process's local time zone.
func DefaultPolicy() Policy {
	return Policy{Window: time.Hour, Location: time.Local}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// NextWindowReset returns the reset instant of a window opened at now.
func (p Policy) NextWindowReset(now time.Time) time.Time {
	w := p.Window
	if w <= 0 {
		w = time.Hour
	}
	return now.Add(w)
}

// NextDailyReset returns the next local midnight strictly after now.
func (p Policy) NextDailyReset(now time.Time) time.Time {
	local := now.In(p.location())
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, p.location())
}

// Counter is the per-identity request tally. Counters are created lazily and never deleted.
type Counter struct {
	Identity      string    `json:"identity"`
	WindowCount   int       `json:"window_count"`
	WindowResetAt time.Time `json:"window_reset_at"`
	DailyCount    int       `json:"daily_count"`
	DailyResetAt  time.Time `json:"daily_reset_at"`
}

// Remaining reports the requests left in each window under limits; -1 means uncapped.
func (c Counter) Remaining(l Limits) (window, daily int) {
	window, daily = -1, -1
	if l.WindowMax > 0 {
		window = max(l.WindowMax-c.WindowCount, 0)
	}
	if l.DailyMax > 0 {
		daily = max(l.DailyMax-c.DailyCount, 0)
	}
	return window, daily
}

// Decision is the outcome of one check-and-increment.
type Decision struct {
	Allowed    bool
	Scope      Scope
	RetryAfter time.Duration
}

// Evaluate applies rollover, then the limit check, then the increment. The returned counter
// must only be persisted when the decision is allowed; a rejection never charges either window.
func Evaluate(c Counter, l Limits, p Policy, now time.Time) (Counter, Decision) {
	next := c
	if next.WindowResetAt.IsZero() || now.After(next.WindowResetAt) {
		next.WindowCount = 0
		next.WindowResetAt = p.NextWindowReset(now)
	}
	if next.DailyResetAt.IsZero() || now.After(next.DailyResetAt) {
		next.DailyCount = 0
		next.DailyResetAt = p.NextDailyReset(now)
	}

	if l.WindowMax > 0 && next.WindowCount >= l.WindowMax {
		return next, Decision{Scope: ScopeWindow, RetryAfter: next.WindowResetAt.Sub(now)}
	}
	if l.DailyMax > 0 && next.DailyCount >= l.DailyMax {
		return next, Decision{Scope: ScopeDay, RetryAfter: next.DailyResetAt.Sub(now)}
	}

	next.WindowCount++
	next.DailyCount++
	return next, Decision{Allowed: true}
}
