//go:build android || ios

package player

import (
	"time"

	"abplayer/internal/playback"
)

// Supported is empty on mobile; every file goes to the video sink.
var Supported = map[string]bool{}

type Player struct{}

func New() *Player { return &Player{} }

func CanPlay(string) bool { return false }

func (p *Player) Load(string) error                { return playback.ErrUnsupported }
func (p *Player) Play() error                      { return playback.ErrNotLoaded }
func (p *Player) Pause() error                     { return nil }
func (p *Player) Stop() error                      { return nil }
func (p *Player) Close() error                     { return nil }
func (p *Player) Current() string                  { return "" }
func (p *Player) IsPlaying() bool                  { return false }
func (p *Player) Duration() (time.Duration, error) { return 0, playback.ErrNotLoaded }
func (p *Player) Position() (time.Duration, error) { return 0, playback.ErrNotLoaded }
func (p *Player) SeekTo(time.Duration) error       { return playback.ErrNotLoaded }
func (p *Player) SetRate(float64) error            { return nil }
func (p *Player) SetVolume(float64) error          { return nil }
