//go:build !android && !ios

package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"abplayer/internal/playback"
)

var (
	speakerOnce sync.Once
	speakerErr  error
	// Fixed speaker rate; inputs are resampled so the device is opened once.
	speakerSR = beep.SampleRate(44100)
)

// output is the mixer a Player streams into.
type output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// speakerOutput is the beep speaker, opened once per process.
type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sr, bufferSize)
	})
	return speakerErr
}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Clear()                  { speaker.Clear() }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }

// Supported lists the extensions the beep decoders handle.
var Supported = map[string]bool{".mp3": true, ".wav": true, ".flac": true, ".ogg": true}

// Player plays audio files through the beep speaker. Its ctrl joins the
// mixer once per loaded file and stays there until the next Load or Close;
// pause, stop and seek only change what it streams.
type Player struct {
	out     output
	mu      sync.Mutex
	stream  beep.StreamSeekCloser // decoder stream (seekable)
	play    *beep.Resampler       // sample rate and speed conversion
	vol     *effects.Volume
	volNorm float64 // [0..1]
	rate    float64
	ctrl    *beep.Ctrl
	sr      beep.SampleRate // file sample rate
	started bool            // ctrl is in the mixer
	ended   atomic.Bool     // set from the speaker goroutine when the stream drains
	current string
}

var _ playback.Sink = (*Player)(nil)

func New() *Player { return newPlayer(speakerOutput{}) }

func newPlayer(out output) *Player {
	return &Player{out: out, volNorm: 1, rate: 1}
}

// CanPlay reports whether path has an extension the audio decoders accept.
func CanPlay(path string) bool {
	return Supported[strings.ToLower(filepath.Ext(path))]
}

func (p *Player) volDB() float64 {
	// [0..1] maps to [-4..0] with base 10, i.e. -40dB to 0dB
	return -4 + 4*playback.Clamp01(p.volNorm)
}

func (p *Player) SetVolume(norm float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volNorm = playback.Clamp01(norm)
	if p.vol != nil {
		p.out.Lock()
		p.vol.Volume = p.volDB()
		p.vol.Silent = p.volNorm == 0
		p.out.Unlock()
	}
	return nil
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volNorm
}

func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported[ext] {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playback.ErrUnsupported, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		st     beep.StreamSeekCloser
		format beep.Format
	)
	switch ext {
	case ".mp3":
		st, format, err = mp3.Decode(f)
	case ".wav":
		st, format, err = wav.Decode(f)
	case ".flac":
		st, format, err = flac.Decode(f)
	case ".ogg":
		st, format, err = vorbis.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return st, format, nil
}

func (p *Player) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked()

	st, format, err := decodeFile(path)
	if err != nil {
		return err
	}
	if err := p.out.Init(speakerSR, speakerSR.N(time.Second/10)); err != nil {
		_ = st.Close()
		return fmt.Errorf("audio device: %w", err)
	}
	p.stream = st
	p.sr = format.SampleRate
	p.ctrl = &beep.Ctrl{Paused: true}
	p.rebuildLocked()

	// single-player app: nothing else belongs in the mixer
	p.out.Clear()

	p.started = false
	p.ended.Store(false)
	p.current = path
	return nil
}

func (p *Player) releaseLocked() {
	if p.stream == nil {
		return
	}
	p.out.Clear()
	p.started = false
	_ = p.stream.Close()
	p.stream = nil
	p.play = nil
	p.vol = nil
	p.ctrl = nil
	p.current = ""
}

// rebuildLocked recreates the resampler chain after a seek so no stale
// samples are replayed, and clears the end flag. Once the file drains the
// chain streams silence, so the mixer never drops the ctrl. Callers that run
// while the speaker is active must hold the speaker lock.
func (p *Player) rebuildLocked() {
	p.play = beep.ResampleRatio(4, p.ratio(), p.stream)
	p.vol = &effects.Volume{Streamer: p.play, Base: 10, Volume: p.volDB(), Silent: p.volNorm == 0}
	p.ctrl.Streamer = beep.Seq(p.vol, beep.Callback(func() { p.ended.Store(true) }), beep.Silence(-1))
	p.ended.Store(false)
}

func (p *Player) ratio() float64 {
	return float64(p.sr) / float64(speakerSR) * p.rate
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || p.ctrl == nil {
		return playback.ErrNotLoaded
	}
	p.out.Lock()
	if p.ended.Load() {
		if err := p.stream.Seek(0); err != nil {
			p.out.Unlock()
			return err
		}
		p.rebuildLocked()
	}
	p.ctrl.Paused = false
	p.out.Unlock()

	if !p.started {
		p.started = true
		p.out.Play(p.ctrl)
	}
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl != nil {
		p.out.Lock()
		p.ctrl.Paused = true
		p.out.Unlock()
	}
	return nil
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || p.ctrl == nil {
		return nil
	}
	p.out.Lock()
	defer p.out.Unlock()
	p.ctrl.Paused = true
	if err := p.stream.Seek(0); err != nil {
		return err
	}
	p.rebuildLocked()
	return nil
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
	return nil
}

func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// IsPlaying reports whether audio is started, unpaused and not drained.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && p.ctrl != nil && !p.ctrl.Paused && !p.ended.Load()
}

func (p *Player) Duration() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return 0, playback.ErrNotLoaded
	}
	l := p.stream.Len()
	if l <= 0 || p.sr == 0 {
		return 0, playback.ErrUnknownLength
	}
	return p.sr.D(l), nil
}

func (p *Player) Position() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || p.sr == 0 {
		return 0, playback.ErrNotLoaded
	}
	p.out.Lock()
	pos := p.stream.Position()
	p.out.Unlock()
	return p.sr.D(pos), nil
}

func (p *Player) SeekTo(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || p.sr == 0 {
		return playback.ErrNotLoaded
	}
	target := p.sr.N(d)
	if target < 0 {
		target = 0
	}
	// some decoders (mp3) panic when seeking to exactly Len
	if l := p.stream.Len(); l > 0 && target >= l {
		target = l - 1
	}
	p.out.Lock()
	defer p.out.Unlock()
	if err := p.stream.Seek(target); err != nil {
		return err
	}
	p.rebuildLocked()
	return nil
}

// SetRate changes the speed by scaling the resampling ratio; pitch follows.
func (p *Player) SetRate(factor float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = playback.ClampRate(factor)
	if p.play != nil {
		p.out.Lock()
		p.play.SetRatio(p.ratio())
		p.out.Unlock()
	}
	return nil
}

func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}
