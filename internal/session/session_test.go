package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abplayer/internal/abloop"
	"abplayer/internal/logging"
	"abplayer/internal/playback"
)

func sec(n float64) time.Duration { return time.Duration(n * float64(time.Second)) }

func newTestSession(t *testing.T, sink *fakeSink) *Session {
	t.Helper()
	if sink.dur == 0 {
		sink.dur = sec(120)
	}
	s := New(func(string) (playback.Sink, error) { return sink, nil },
		Options{Speed: 1.5, Volume: 0.5}, logging.Discard())
	require.NoError(t, s.Open("/media/lesson.mp4"))
	return s
}

func TestOpenAppliesSettingsAndResetsLoop(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	assert.Equal(t, "/media/lesson.mp4", sink.loaded)
	assert.Equal(t, 1.5, sink.rate)
	assert.Equal(t, 0.5, sink.volume)

	sink.pos = sec(10)
	_, err := s.MarkA()
	require.NoError(t, err)
	sink.pos = sec(20)
	_, err = s.MarkB()
	require.NoError(t, err)
	assert.True(t, s.LoopActive())

	require.NoError(t, s.Open("/media/other.mp3"))
	assert.False(t, s.LoopActive())
	assert.Equal(t, abloop.State{Label: "not set"}, s.Loop())
	assert.Equal(t, 1, sink.stops, "previous file stopped")
}

func TestOpenFailureLeavesNoMedia(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	sink.loadErr = errors.New("corrupt")

	err := s.Open("/media/bad.mkv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.mkv")
	assert.Empty(t, s.Path())
	assert.ErrorIs(t, s.Play(), playback.ErrNotLoaded)
}

func TestOpenFactoryError(t *testing.T) {
	want := errors.New("no backend")
	s := New(func(string) (playback.Sink, error) { return nil, want }, Options{}, logging.Discard())
	assert.ErrorIs(t, s.Open("x.mp4"), want)
}

func TestWithoutMedia(t *testing.T) {
	s := New(func(string) (playback.Sink, error) { return &fakeSink{}, nil }, Options{}, logging.Discard())
	_, err := s.MarkA()
	assert.ErrorIs(t, err, playback.ErrNotLoaded)
	_, err = s.TogglePlay()
	assert.ErrorIs(t, err, playback.ErrNotLoaded)
	assert.ErrorIs(t, s.Forward(), playback.ErrNotLoaded)
	assert.NoError(t, s.Stop())
	snap := s.Tick()
	assert.Zero(t, snap.Position)
	assert.Equal(t, "00:00 / 00:00", snap.TimeLabel())
}

func TestTogglePlay(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)

	playing, err := s.TogglePlay()
	require.NoError(t, err)
	assert.True(t, playing)
	assert.True(t, sink.playing)

	playing, err = s.TogglePlay()
	require.NoError(t, err)
	assert.False(t, playing)
	assert.False(t, sink.playing)
}

func TestSkipClampsToBounds(t *testing.T) {
	sink := &fakeSink{dur: sec(60)}
	s := newTestSession(t, sink)

	sink.pos = sec(3)
	require.NoError(t, s.Rewind())
	assert.Equal(t, time.Duration(0), sink.pos)

	sink.pos = sec(58)
	require.NoError(t, s.Forward())
	assert.Equal(t, sec(60), sink.pos)

	sink.pos = sec(30)
	require.NoError(t, s.Skip(sec(5)))
	assert.Equal(t, sec(35), sink.pos)
}

func TestSeekRatio(t *testing.T) {
	sink := &fakeSink{dur: sec(200)}
	s := newTestSession(t, sink)
	require.NoError(t, s.SeekRatio(0.25))
	assert.Equal(t, sec(50), sink.pos)
	require.NoError(t, s.SeekRatio(7))
	assert.Equal(t, sec(200), sink.pos)
}

func TestSetSpeedClamps(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	got, err := s.SetSpeed(9)
	require.NoError(t, err)
	assert.Equal(t, playback.MaxRate, got)
	assert.Equal(t, playback.MaxRate, sink.rate)
	assert.Equal(t, playback.MaxRate, s.Tick().Speed)
}

func TestMarkBRejection(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)

	_, err := s.MarkB()
	assert.ErrorIs(t, err, abloop.ErrNoPointA)

	sink.pos = sec(10)
	_, err = s.MarkA()
	require.NoError(t, err)
	sink.pos = sec(5)
	_, err = s.MarkB()
	assert.ErrorIs(t, err, abloop.ErrInvalidLoopPoint)
	assert.False(t, s.Loop().HasB)
}

func TestTickLoopsBackToA(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	require.NoError(t, s.Play())

	sink.pos = sec(10)
	_, _ = s.MarkA()
	sink.pos = sec(20)
	_, err := s.MarkB()
	require.NoError(t, err)

	sink.pos = sec(19)
	snap := s.Tick()
	assert.False(t, snap.Jumped)
	assert.Equal(t, "00:19 / 02:00", snap.TimeLabel())

	sink.pos = sec(20.05)
	snap = s.Tick()
	assert.True(t, snap.Jumped)
	assert.Equal(t, sec(10), snap.Position)
	assert.Equal(t, []time.Duration{sec(10)}, sink.seeks)
	assert.InDelta(t, 10.0/120.0, snap.Progress(), 1e-9)
}

func TestTickSurvivesSeekError(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	sink.pos = sec(1)
	_, _ = s.MarkA()
	sink.pos = sec(2)
	_, _ = s.MarkB()

	sink.seekErr = errors.New("device busy")
	snap := s.Tick()
	assert.False(t, snap.Jumped)
	assert.Equal(t, sec(2), snap.Position)
}

func TestCycleLoop(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)

	sink.pos = sec(4)
	res, err := s.CycleLoop()
	require.NoError(t, err)
	assert.Equal(t, MarkedA, res)

	sink.pos = sec(2)
	res, err = s.CycleLoop()
	assert.Equal(t, MarkedB, res)
	assert.ErrorIs(t, err, abloop.ErrBNotAfterA)

	sink.pos = sec(8)
	res, err = s.CycleLoop()
	require.NoError(t, err)
	assert.Equal(t, MarkedB, res)
	assert.True(t, s.LoopActive())

	res, err = s.CycleLoop()
	require.NoError(t, err)
	assert.Equal(t, Suspended, res)
	assert.False(t, s.LoopActive())

	sink.pos = sec(30)
	assert.False(t, s.Tick().Jumped, "suspended loop does not seek")

	res, err = s.CycleLoop()
	require.NoError(t, err)
	assert.Equal(t, Resumed, res)
	assert.Equal(t, sec(4), sink.pos)
	assert.True(t, s.LoopActive())
}

func TestClearLoop(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	sink.pos = sec(1)
	_, _ = s.MarkA()
	sink.pos = sec(2)
	_, _ = s.MarkB()

	s.ClearLoop()
	sink.pos = sec(50)
	assert.False(t, s.Tick().Jumped)
	assert.False(t, s.Loop().HasA)
}

func TestRepeatRestartsFinishedFile(t *testing.T) {
	sink := &fakeSink{dur: sec(30)}
	s := newTestSession(t, sink)
	s.SetRepeat(true)
	require.NoError(t, s.Play())

	sink.playing = false
	sink.pos = sec(30)
	snap := s.Tick()
	assert.True(t, snap.Jumped)
	assert.True(t, snap.Repeat)
	assert.Equal(t, time.Duration(0), sink.pos)
	assert.True(t, sink.playing)
	assert.Equal(t, 2, sink.plays)
}

func TestNoRepeatStopsWanting(t *testing.T) {
	sink := &fakeSink{dur: sec(30)}
	s := newTestSession(t, sink)
	require.NoError(t, s.Play())

	sink.playing = false
	sink.pos = sec(30)
	assert.False(t, s.Tick().Jumped)

	s.SetRepeat(true)
	assert.False(t, s.Tick().Jumped, "finished file is not restarted after the fact")
}

func TestPausedFileIsNotRepeated(t *testing.T) {
	sink := &fakeSink{dur: sec(30)}
	s := newTestSession(t, sink)
	s.SetRepeat(true)
	require.NoError(t, s.Play())
	require.NoError(t, s.Pause())

	sink.pos = sec(29.9)
	assert.False(t, s.Tick().Jumped)
}

func TestTickWithPositionError(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	sink.posErr = errors.New("gone")
	snap := s.Tick()
	assert.Equal(t, "/media/lesson.mp4", snap.Path)
	assert.Zero(t, snap.Position)
}

func TestClose(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)
	require.NoError(t, s.Close())
	assert.True(t, sink.closed)
	assert.Nil(t, s.Sink())
	assert.NoError(t, s.Close())
}

func TestCloseDropsSuspendedLoop(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, sink)

	sink.pos = sec(10)
	_, err := s.CycleLoop()
	require.NoError(t, err)
	sink.pos = sec(20)
	_, err = s.CycleLoop()
	require.NoError(t, err)
	res, err := s.CycleLoop()
	require.NoError(t, err)
	require.Equal(t, Suspended, res)

	require.NoError(t, s.Close())
	assert.Equal(t, abloop.State{Label: "not set"}, s.Loop())
	assert.False(t, s.LoopActive())

	assert.NotPanics(t, func() {
		_, err = s.CycleLoop()
	})
	assert.ErrorIs(t, err, playback.ErrNotLoaded)
	assert.NotPanics(t, func() { s.Tick() })
}
