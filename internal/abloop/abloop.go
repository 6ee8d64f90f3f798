// Package abloop implements the AB-loop controller shared by the desktop and
// web players: two marked timestamps and the decision to jump back to A once
// playback reaches B.
package abloop

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidLoopPoint is wrapped by every MarkB rejection.
	ErrInvalidLoopPoint = errors.New("invalid loop point")
	ErrNoPointA         = fmt.Errorf("%w: set A first", ErrInvalidLoopPoint)
	ErrBNotAfterA       = fmt.Errorf("%w: B must be after A", ErrInvalidLoopPoint)
)

// State is a snapshot of a Controller, used by the web API.
type State struct {
	A       float64 `json:"a"` // seconds
	B       float64 `json:"b"` // seconds
	HasA    bool    `json:"hasA"`
	HasB    bool    `json:"hasB"`
	Enabled bool    `json:"enabled"`
	Label   string  `json:"label"`
}

// Controller holds the loop points for one loaded media file.
// Enabled implies both points are set and a < b.
type Controller struct {
	a, b       time.Duration
	hasA, hasB bool
	enabled    bool
}

// MarkA stores the loop start. A previously set B that is no longer after
// the new A is dropped together with the enabled flag.
func (c *Controller) MarkA(pos time.Duration) {
	c.a = pos
	c.hasA = true
	if c.hasB && c.b <= pos {
		c.b = 0
		c.hasB = false
		c.enabled = false
	}
}

// MarkB stores the loop end and enables the loop. It fails without touching
// the state when A is unset or pos is not after A.
func (c *Controller) MarkB(pos time.Duration) error {
	if !c.hasA {
		return ErrNoPointA
	}
	if pos <= c.a {
		return ErrBNotAfterA
	}
	c.b = pos
	c.hasB = true
	c.enabled = true
	return nil
}

// Reset clears both points.
func (c *Controller) Reset() {
	*c = Controller{}
}

// OnTick reports where to seek when pos has reached B.
func (c *Controller) OnTick(pos time.Duration) (time.Duration, bool) {
	if !c.enabled || pos < c.b {
		return 0, false
	}
	return c.a, true
}

func (c *Controller) Enabled() bool { return c.enabled }

// PointA returns the loop start and whether it is set.
func (c *Controller) PointA() (time.Duration, bool) { return c.a, c.hasA }

// PointB returns the loop end and whether it is set.
func (c *Controller) PointB() (time.Duration, bool) { return c.b, c.hasB }

func (c *Controller) State() State {
	return State{
		A:       c.a.Seconds(),
		B:       c.b.Seconds(),
		HasA:    c.hasA,
		HasB:    c.hasB,
		Enabled: c.enabled,
		Label:   c.Label(),
	}
}

// Label renders the loop status line shown under the transport controls.
func (c *Controller) Label() string {
	switch {
	case !c.hasA:
		return "not set"
	case !c.hasB:
		return fmt.Sprintf("A=%s, set B", FormatDuration(c.a))
	default:
		return fmt.Sprintf("%s - %s", FormatDuration(c.a), FormatDuration(c.b))
	}
}

// FormatTime renders seconds as MM:SS, or HH:MM:SS from one hour on.
// Negative, NaN and out-of-range input (including +Inf) render as 00:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 || seconds >= math.MaxInt64/2 {
		return "00:00"
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func FormatDuration(d time.Duration) string {
	return FormatTime(d.Seconds())
}
