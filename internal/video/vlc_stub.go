//go:build !vlc

package video

import (
	"errors"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"abplayer/internal/playback"
)

// ErrUnavailable is returned when the binary was built without libVLC.
var ErrUnavailable = errors.New("video playback needs a build with -tags vlc")

type Player struct{}

var _ playback.Sink = (*Player)(nil)

func New() (*Player, error)                        { return &Player{}, nil }
func (v *Player) Load(string) error                { return ErrUnavailable }
func (v *Player) Play() error                      { return ErrUnavailable }
func (v *Player) Pause() error                     { return nil }
func (v *Player) Stop() error                      { return nil }
func (v *Player) Close() error                     { return nil }
func (v *Player) IsPlaying() bool                  { return false }
func (v *Player) Current() string                  { return "" }
func (v *Player) SetVolume(float64) error          { return nil }
func (v *Player) SetRate(float64) error            { return nil }
func (v *Player) SeekTo(time.Duration) error       { return ErrUnavailable }
func (v *Player) Position() (time.Duration, error) { return 0, ErrUnavailable }
func (v *Player) Duration() (time.Duration, error) { return 0, ErrUnavailable }
func (v *Player) Snapshot() (image.Image, error)   { return nil, ErrUnavailable }

func (v *Player) Visual() fyne.CanvasObject {
	return container.NewCenter(widget.NewLabel("Build with -tags vlc to play video"))
}
