// Package playback defines the media element the players drive.
package playback

import (
	"errors"
	"math"
	"time"
)

// Rate bounds accepted by every Sink.
const (
	MinRate = 0.1
	MaxRate = 4.0
)

var (
	ErrNotLoaded     = errors.New("no media loaded")
	ErrUnknownLength = errors.New("media length unknown")
	ErrUnsupported   = errors.New("unsupported media format")
)

// Sink wraps a platform media element. Decoding, rendering and seeking all
// happen behind it.
type Sink interface {
	Load(path string) error
	Play() error
	Pause() error
	Stop() error
	IsPlaying() bool
	Position() (time.Duration, error)
	Duration() (time.Duration, error)
	SeekTo(pos time.Duration) error
	SetRate(factor float64) error
	// SetVolume takes a normalized value in [0,1].
	SetVolume(v float64) error
	Close() error
}

// ClampRate limits a playback speed factor to [MinRate, MaxRate]. NaN
// means normal speed.
func ClampRate(f float64) float64 {
	if math.IsNaN(f) {
		return 1
	}
	if f < MinRate {
		return MinRate
	}
	if f > MaxRate {
		return MaxRate
	}
	return f
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
