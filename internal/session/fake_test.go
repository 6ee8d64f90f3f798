package session

import (
	"errors"
	"time"

	"abplayer/internal/playback"
)

// fakeSink is a scripted media element: tests move the position by hand.
type fakeSink struct {
	loaded  string
	loadErr error
	playing bool
	pos     time.Duration
	dur     time.Duration
	rate    float64
	volume  float64
	seeks   []time.Duration
	stops   int
	closed  bool
	plays   int
	seekErr error
	posErr  error
}

var _ playback.Sink = (*fakeSink)(nil)

func (f *fakeSink) Load(path string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = path
	f.pos = 0
	f.playing = false
	return nil
}

func (f *fakeSink) Play() error {
	if f.loaded == "" {
		return errors.New("nothing loaded")
	}
	f.plays++
	f.playing = true
	return nil
}

func (f *fakeSink) Pause() error { f.playing = false; return nil }

func (f *fakeSink) Stop() error {
	f.stops++
	f.playing = false
	f.pos = 0
	return nil
}

func (f *fakeSink) IsPlaying() bool { return f.playing }

func (f *fakeSink) Position() (time.Duration, error) {
	if f.posErr != nil {
		return 0, f.posErr
	}
	return f.pos, nil
}

func (f *fakeSink) Duration() (time.Duration, error) { return f.dur, nil }

func (f *fakeSink) SeekTo(d time.Duration) error {
	if f.seekErr != nil {
		return f.seekErr
	}
	f.seeks = append(f.seeks, d)
	f.pos = d
	return nil
}

func (f *fakeSink) SetRate(r float64) error   { f.rate = r; return nil }
func (f *fakeSink) SetVolume(v float64) error { f.volume = v; return nil }
func (f *fakeSink) Close() error              { f.closed = true; return nil }
