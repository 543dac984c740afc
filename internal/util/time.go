package util

import (
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current time to ledger operations.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a manual clock stopped at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("cannot advance clock by negative duration %s", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

// SetTime moves the clock to t.
func (c *ManualClock) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// DaysSince calculates the number of days between two dates.
func DaysSince(from, to time.Time) int {
	// Normalize to midnight
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())

	return int(to.Sub(from).Hours() / 24)
}

// RelativeTimeString describes t relative to now in Spanish, e.g. "hace 3 días".
func RelativeTimeString(t time.Time, now time.Time) string {
	diff := now.Sub(t)

	if diff < 0 {
		return futureTimeString(-diff)
	}

	return pastTimeString(diff)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func pastTimeString(diff time.Duration) string {
	switch {
	case diff < time.Minute:
		return "recién"
	case diff < time.Hour:
		return "hace " + plural(int(diff.Minutes()), "minuto", "minutos")
	case diff < 24*time.Hour:
		return "hace " + plural(int(diff.Hours()), "hora", "horas")
	case diff < 48*time.Hour:
		return "ayer"
	case diff < 7*24*time.Hour:
		return "hace " + plural(int(diff.Hours()/24), "día", "días")
	case diff < 30*24*time.Hour:
		return "hace " + plural(int(diff.Hours()/24/7), "semana", "semanas")
	case diff < 365*24*time.Hour:
		return "hace " + plural(int(diff.Hours()/24/30), "mes", "meses")
	default:
		return "hace " + plural(int(diff.Hours()/24/365), "año", "años")
	}
}

func futureTimeString(diff time.Duration) string {
	switch {
	case diff < time.Minute:
		return "ahora"
	case diff < time.Hour:
		return "en " + plural(int(diff.Minutes()), "minuto", "minutos")
	case diff < 24*time.Hour:
		return "en " + plural(int(diff.Hours()), "hora", "horas")
	case diff < 48*time.Hour:
		return "mañana"
	case diff < 7*24*time.Hour:
		return "en " + plural(int(diff.Hours()/24), "día", "días")
	default:
		return "en " + plural(int(diff.Hours()/24/7), "semana", "semanas")
	}
}
