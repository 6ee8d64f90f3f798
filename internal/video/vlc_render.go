//go:build vlc && !android && !ios

package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	vlc "github.com/adrg/libvlc-go/v3"

	"abplayer/internal/playback"
)

// Player plays through libVLC and draws frames grabbed with ffmpeg onto a
// fyne image, since libVLC cannot render into a fyne canvas.
type Player struct {
	p       *vlc.Player
	current string

	mu         sync.Mutex
	img        *canvas.Image
	stopFrames context.CancelFunc
}

var _ playback.Sink = (*Player)(nil)

func New() (*Player, error) {
	if err := vlc.Init("--no-video", "--quiet"); err != nil {
		return nil, fmt.Errorf("libvlc init: %w", err)
	}
	p, err := vlc.NewPlayer()
	if err != nil {
		return nil, fmt.Errorf("libvlc player: %w", err)
	}
	v := &Player{p: p}
	v.img = canvas.NewImageFromImage(placeholderImage())
	v.img.FillMode = canvas.ImageFillContain
	v.img.SetMinSize(fyne.NewSize(320, 240))
	return v, nil
}

func (v *Player) Load(path string) error {
	if v.current != "" {
		_ = v.Stop()
	}
	m, err := vlc.NewMediaFromPath(path)
	if err != nil {
		return err
	}
	defer m.Release()
	if err := v.p.SetMedia(m); err != nil {
		return err
	}
	v.current = path
	v.showPlaceholder()
	return nil
}

func (v *Player) Play() error {
	if v.current == "" {
		return playback.ErrNotLoaded
	}
	if err := v.p.Play(); err != nil {
		return err
	}
	v.mu.Lock()
	if v.stopFrames == nil {
		ctx, cancel := context.WithCancel(context.Background())
		v.stopFrames = cancel
		go v.extractFrames(ctx)
	}
	v.mu.Unlock()
	return nil
}

func (v *Player) Pause() error { return v.p.SetPause(true) }

func (v *Player) Stop() error {
	v.haltFrames()
	err := v.p.Stop()
	v.showPlaceholder()
	return err
}

func (v *Player) Close() error {
	_ = v.Stop()
	return v.p.Release()
}

func (v *Player) haltFrames() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopFrames != nil {
		v.stopFrames()
		v.stopFrames = nil
	}
}

func (v *Player) IsPlaying() bool { return v.p.IsPlaying() }

func (v *Player) Current() string { return v.current }

// SetVolume maps [0,1] onto VLC's 0-100 scale.
func (v *Player) SetVolume(vol float64) error {
	return v.p.SetVolume(int(playback.Clamp01(vol) * 100))
}

func (v *Player) SetRate(factor float64) error {
	return v.p.SetPlaybackRate(float32(playback.ClampRate(factor)))
}

func (v *Player) SeekTo(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	return v.p.SetMediaTime(int(d.Milliseconds()))
}

func (v *Player) Position() (time.Duration, error) {
	ms, err := v.p.MediaTime()
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (v *Player) Duration() (time.Duration, error) {
	ms, err := v.p.MediaLength()
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, playback.ErrUnknownLength
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (v *Player) Visual() fyne.CanvasObject {
	return container.NewStack(v.img)
}

// Snapshot grabs the frame at the current position and returns it.
func (v *Player) Snapshot() (image.Image, error) {
	pos, err := v.Position()
	if err != nil {
		return nil, err
	}
	img, err := captureFrame(v.current, pos)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return img, nil
}

func (v *Player) showPlaceholder() {
	fyne.Do(func() {
		v.img.Image = placeholderImage()
		v.img.Refresh()
	})
}

// extractFrames refreshes the canvas at ~5 fps until ctx is cancelled.
func (v *Player) extractFrames(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !v.p.IsPlaying() {
				continue
			}
			pos, err := v.Position()
			if err != nil || pos < 0 {
				continue
			}
			frame, err := captureFrame(v.current, pos)
			if err != nil {
				continue
			}
			fyne.Do(func() {
				v.img.Image = frame
				v.img.Refresh()
			})
		}
	}
}

// captureFrame decodes one frame at pos with ffmpeg.
func captureFrame(path string, pos time.Duration) (image.Image, error) {
	if path == "" {
		return nil, playback.ErrNotLoaded
	}
	// -ss before -i seeks on the demuxer, which is much faster
	cmd := exec.Command("ffmpeg",
		"-loglevel", "quiet",
		"-ss", fmt.Sprintf("%.3f", pos.Seconds()),
		"-i", path,
		"-vframes", "1",
		"-vf", "scale=640:-1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "8",
		"-")

	var buf bytes.Buffer
	cmd.Stdout = &buf
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return jpeg.Decode(&buf)
}
