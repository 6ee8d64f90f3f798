// Package session is the toolkit-independent side of the player window.
// Every button, slider and shortcut maps to one Session method; the window
// only renders the Snapshot returned by Tick.
package session

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"abplayer/internal/abloop"
	"abplayer/internal/playback"
)

// TickInterval is how often the window polls the sink.
const TickInterval = 100 * time.Millisecond

// endSlack is how close to the end a stopped sink counts as finished.
const endSlack = 500 * time.Millisecond

// SinkFactory returns the sink able to play path. It may hand out the same
// sink for several files.
type SinkFactory func(path string) (playback.Sink, error)

// CycleResult reports what CycleLoop did.
type CycleResult int

const (
	MarkedA CycleResult = iota
	MarkedB
	Suspended
	Resumed
)

// Snapshot is what the window renders after each tick.
type Snapshot struct {
	Path     string
	Position time.Duration
	Duration time.Duration
	Playing  bool
	// Jumped is set when this tick sent playback back to A or to the start.
	Jumped     bool
	Loop       abloop.State
	LoopActive bool
	Repeat     bool
	Speed      float64
}

// Progress is the position as a fraction of the duration.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return playback.Clamp01(float64(s.Position) / float64(s.Duration))
}

// TimeLabel renders "pos / dur".
func (s Snapshot) TimeLabel() string {
	return abloop.FormatDuration(s.Position) + " / " + abloop.FormatDuration(s.Duration)
}

type Options struct {
	Speed  float64
	Volume float64
	// Skip is the jump used by the rewind/forward controls.
	Skip time.Duration
}

type Session struct {
	mu      sync.Mutex
	log     *slog.Logger
	newSink SinkFactory

	sink playback.Sink
	path string

	loop      abloop.Controller
	suspended bool
	repeat    bool
	wantPlay  bool

	speed  float64
	volume float64
	skip   time.Duration
}

func New(factory SinkFactory, opts Options, log *slog.Logger) *Session {
	if opts.Speed == 0 {
		opts.Speed = 1
	}
	if opts.Skip <= 0 {
		opts.Skip = 5 * time.Second
	}
	return &Session{
		log:     log,
		newSink: factory,
		speed:   playback.ClampRate(opts.Speed),
		volume:  playback.Clamp01(opts.Volume),
		skip:    opts.Skip,
	}
}

// Open loads path, replacing the current file. Loop points always reset.
func (s *Session) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sink, err := s.newSink(path)
	if err != nil {
		return err
	}
	if s.sink != nil {
		if err := s.sink.Stop(); err != nil {
			s.log.Warn("stop previous media", "file", s.path, "err", err)
		}
	}
	s.loop.Reset()
	s.suspended = false
	s.wantPlay = false
	s.sink = nil
	s.path = ""

	if err := sink.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	s.sink = sink
	s.path = path
	if err := sink.SetRate(s.speed); err != nil {
		s.log.Warn("apply speed", "speed", s.speed, "err", err)
	}
	if err := sink.SetVolume(s.volume); err != nil {
		s.log.Warn("apply volume", "volume", s.volume, "err", err)
	}
	s.log.Info("media loaded", "file", path)
	return nil
}

func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Sink returns the sink of the current file, or nil.
func (s *Session) Sink() playback.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked()
}

func (s *Session) playLocked() error {
	if s.sink == nil {
		return playback.ErrNotLoaded
	}
	if err := s.sink.Play(); err != nil {
		return err
	}
	s.wantPlay = true
	return nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return playback.ErrNotLoaded
	}
	s.wantPlay = false
	return s.sink.Pause()
}

// TogglePlay pauses when playing and plays otherwise. It reports whether
// playback is now running.
func (s *Session) TogglePlay() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return false, playback.ErrNotLoaded
	}
	if s.sink.IsPlaying() {
		s.wantPlay = false
		return false, s.sink.Pause()
	}
	if err := s.playLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return nil
	}
	s.wantPlay = false
	return s.sink.Stop()
}

// Skip moves by delta, clamped to the media bounds.
func (s *Session) Skip(delta time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return playback.ErrNotLoaded
	}
	pos, err := s.sink.Position()
	if err != nil {
		return err
	}
	target := pos + delta
	if target < 0 {
		target = 0
	}
	if dur, err := s.sink.Duration(); err == nil && target > dur {
		target = dur
	}
	return s.sink.SeekTo(target)
}

func (s *Session) Forward() error { return s.Skip(s.skip) }

func (s *Session) Rewind() error { return s.Skip(-s.skip) }

// SeekRatio jumps to a fraction of the duration, as the progress slider does.
func (s *Session) SeekRatio(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return playback.ErrNotLoaded
	}
	dur, err := s.sink.Duration()
	if err != nil {
		return err
	}
	return s.sink.SeekTo(time.Duration(playback.Clamp01(r) * float64(dur)))
}

// SetSpeed applies a clamped rate and returns it. The rate carries over to
// files opened later.
func (s *Session) SetSpeed(f float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = playback.ClampRate(f)
	if s.sink == nil {
		return s.speed, nil
	}
	return s.speed, s.sink.SetRate(s.speed)
}

func (s *Session) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = playback.Clamp01(v)
	if s.sink == nil {
		return nil
	}
	return s.sink.SetVolume(s.volume)
}

// MarkA stores the current position as loop start.
func (s *Session) MarkA() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markALocked()
}

func (s *Session) markALocked() (time.Duration, error) {
	if s.sink == nil {
		return 0, playback.ErrNotLoaded
	}
	pos, err := s.sink.Position()
	if err != nil {
		return 0, err
	}
	s.loop.MarkA(pos)
	return pos, nil
}

// MarkB stores the current position as loop end. Errors from the loop
// controller wrap abloop.ErrInvalidLoopPoint.
func (s *Session) MarkB() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBLocked()
}

func (s *Session) markBLocked() (time.Duration, error) {
	if s.sink == nil {
		return 0, playback.ErrNotLoaded
	}
	pos, err := s.sink.Position()
	if err != nil {
		return 0, err
	}
	if err := s.loop.MarkB(pos); err != nil {
		return 0, err
	}
	s.suspended = false
	return pos, nil
}

func (s *Session) ClearLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.Reset()
	s.suspended = false
}

// CycleLoop drives the single AB button: mark A, then mark B, then toggle
// the finished loop off and on. Turning it back on jumps to A.
func (s *Session) CycleLoop() (CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sink == nil {
		return MarkedA, playback.ErrNotLoaded
	}
	if _, hasA := s.loop.PointA(); !hasA {
		_, err := s.markALocked()
		return MarkedA, err
	}
	if _, hasB := s.loop.PointB(); !hasB {
		_, err := s.markBLocked()
		return MarkedB, err
	}
	if !s.suspended {
		s.suspended = true
		return Suspended, nil
	}
	s.suspended = false
	a, _ := s.loop.PointA()
	return Resumed, s.sink.SeekTo(a)
}

func (s *Session) SetRepeat(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = on
}

func (s *Session) Loop() abloop.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop.State()
}

// LoopActive reports whether the loop is enabled and not suspended.
func (s *Session) LoopActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopActiveLocked()
}

func (s *Session) loopActiveLocked() bool {
	return s.loop.Enabled() && !s.suspended
}

// Tick reads the position, applies the AB loop and whole-file repeat, and
// returns what to render.
func (s *Session) Tick() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Path:       s.path,
		Loop:       s.loop.State(),
		LoopActive: s.loopActiveLocked(),
		Repeat:     s.repeat,
		Speed:      s.speed,
	}
	if s.sink == nil {
		return snap
	}
	pos, err := s.sink.Position()
	if err != nil {
		s.log.Debug("position unavailable", "err", err)
		return snap
	}
	snap.Position = pos
	if dur, err := s.sink.Duration(); err == nil {
		snap.Duration = dur
	}
	snap.Playing = s.sink.IsPlaying()

	if snap.LoopActive {
		if to, seek := s.loop.OnTick(pos); seek {
			if err := s.sink.SeekTo(to); err != nil {
				s.log.Warn("loop seek failed", "to", to, "err", err)
				return snap
			}
			snap.Position = to
			snap.Jumped = true
			return snap
		}
	}

	finished := s.wantPlay && !snap.Playing && snap.Duration > 0 && pos >= snap.Duration-endSlack
	if !finished {
		return snap
	}
	if !s.repeat {
		s.wantPlay = false
		return snap
	}
	if err := s.sink.SeekTo(0); err != nil {
		s.log.Warn("repeat seek failed", "err", err)
		return snap
	}
	if err := s.sink.Play(); err != nil {
		s.log.Warn("repeat play failed", "err", err)
		return snap
	}
	snap.Position = 0
	snap.Playing = true
	snap.Jumped = true
	return snap
}

// Close closes the current sink. Sinks shared through the factory are
// closed by their owner instead.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return nil
	}
	err := s.sink.Close()
	s.sink = nil
	s.path = ""
	s.loop.Reset()
	s.suspended = false
	s.wantPlay = false
	return err
}
