package ui

import (
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abplayer/internal/abloop"
	"abplayer/internal/app"
	"abplayer/internal/discord"
	"abplayer/internal/logging"
	"abplayer/internal/playback"
	"abplayer/internal/session"
)

type stubSink struct {
	pos     time.Duration
	dur     time.Duration
	playing bool
	rate    float64
}

func (s *stubSink) Load(string) error                { s.pos = 0; return nil }
func (s *stubSink) Play() error                      { s.playing = true; return nil }
func (s *stubSink) Pause() error                     { s.playing = false; return nil }
func (s *stubSink) Stop() error                      { s.playing = false; s.pos = 0; return nil }
func (s *stubSink) IsPlaying() bool                  { return s.playing }
func (s *stubSink) Position() (time.Duration, error) { return s.pos, nil }
func (s *stubSink) Duration() (time.Duration, error) { return s.dur, nil }
func (s *stubSink) SeekTo(d time.Duration) error     { s.pos = d; return nil }
func (s *stubSink) SetRate(r float64) error          { s.rate = r; return nil }
func (s *stubSink) SetVolume(float64) error          { return nil }
func (s *stubSink) Close() error                     { return nil }

type presenceLog struct {
	got    []discord.Activity
	clears int
}

func (p *presenceLog) Update(a discord.Activity) error { p.got = append(p.got, a); return nil }
func (p *presenceLog) Clear() error                    { p.clears++; return nil }

func newTestWindow(t *testing.T) (*Window, *stubSink, *presenceLog) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	sink := &stubSink{dur: 2 * time.Minute}
	pres := &presenceLog{}
	ctx := app.NewContext(logging.Discard(), "", nil, pres)
	sess := session.New(func(string) (playback.Sink, error) { return sink, nil },
		session.Options{Speed: 1, Volume: 0.5}, logging.Discard())
	return New(a, ctx, sess), sink, pres
}

func TestOpenStartsPlayback(t *testing.T) {
	w, sink, pres := newTestWindow(t)
	w.Open("/media/lesson.mp4")

	assert.True(t, sink.playing)
	assert.Equal(t, "lesson.mp4", w.fileLabel.Text)
	assert.False(t, w.progress.Disabled())
	assert.Equal(t, []string{"/media/lesson.mp4"}, w.ctx.Recent())
	assert.Equal(t, []string{"/media/lesson.mp4"}, w.recent.Options)
	require.NotEmpty(t, pres.got)
	assert.False(t, pres.got[len(pres.got)-1].Paused)
}

func TestABButtonCycle(t *testing.T) {
	w, sink, pres := newTestWindow(t)
	w.Open("/media/lesson.mp4")

	sink.pos = 10 * time.Second
	test.Tap(w.abBtn)
	assert.True(t, w.sess.Loop().HasA)
	assert.Contains(t, w.statusLabel.Text, "00:10")

	sink.pos = 5 * time.Second
	test.Tap(w.abBtn)
	assert.False(t, w.sess.Loop().HasB, "B before A is rejected")

	sink.pos = 20 * time.Second
	test.Tap(w.abBtn)
	assert.True(t, w.sess.LoopActive())
	assert.True(t, w.loopBadge.Visible())
	assert.Equal(t, "00:10 - 00:20", pres.got[len(pres.got)-1].Loop)

	sink.pos = 21 * time.Second
	w.render(w.sess.Tick())
	assert.Equal(t, 10*time.Second, sink.pos)

	test.Tap(w.abBtn)
	assert.False(t, w.sess.LoopActive())
	assert.False(t, w.loopBadge.Visible())

	test.Tap(w.clearBtn)
	assert.False(t, w.sess.Loop().HasA)
}

func TestKeyboardShortcuts(t *testing.T) {
	w, sink, _ := newTestWindow(t)
	w.Open("/media/lesson.mp4")

	sink.pos = 30 * time.Second
	w.handleKey(&fyne.KeyEvent{Name: fyne.KeyRight})
	assert.Equal(t, 35*time.Second, sink.pos)
	w.handleKey(&fyne.KeyEvent{Name: fyne.KeyLeft})
	assert.Equal(t, 30*time.Second, sink.pos)

	w.handleKey(&fyne.KeyEvent{Name: fyne.KeyA})
	sink.pos = 40 * time.Second
	w.handleKey(&fyne.KeyEvent{Name: fyne.KeyB})
	st := w.sess.Loop()
	assert.Equal(t, 30.0, st.A)
	assert.Equal(t, 40.0, st.B)

	w.handleKey(&fyne.KeyEvent{Name: fyne.KeySpace})
	assert.False(t, sink.playing)
	w.handleKey(&fyne.KeyEvent{Name: fyne.KeySpace})
	assert.True(t, sink.playing)
}

func TestSpeedPresetAppliesRate(t *testing.T) {
	w, sink, _ := newTestWindow(t)
	w.Open("/media/lesson.mp4")

	w.speedSlider.SetValue(2)
	assert.Equal(t, 2.0, sink.rate)
	assert.Equal(t, "2.0x", w.speedLabel.Text)
}

func TestStopResetsProgress(t *testing.T) {
	w, sink, _ := newTestWindow(t)
	w.Open("/media/lesson.mp4")
	sink.pos = time.Minute
	w.render(w.sess.Tick())
	assert.InDelta(t, 0.5, w.progress.Value, 0.001)
	assert.Equal(t, "01:00 / 02:00", w.timeLabel.Text)

	test.Tap(w.stopBtn)
	assert.Equal(t, 0.0, w.progress.Value)
	assert.False(t, sink.playing)
}

func TestStopAndCloseClearPresence(t *testing.T) {
	w, _, pres := newTestWindow(t)
	w.Open("/media/lesson.mp4")
	require.NotEmpty(t, pres.got)
	assert.Zero(t, pres.clears)

	test.Tap(w.stopBtn)
	assert.Equal(t, 1, pres.clears)

	w.Window().Close()
	assert.Equal(t, 2, pres.clears)
}

func TestScreenshotNeedsVideo(t *testing.T) {
	w, _, _ := newTestWindow(t)
	w.Open("/media/song.mp3")
	before := w.statusLabel.Text
	test.Tap(w.shotBtn)
	assert.NotEqual(t, before, w.statusLabel.Text)
}

func TestScreenshotPath(t *testing.T) {
	now := time.Date(2026, 10, 19, 13, 4, 5, 0, time.UTC)
	p := screenshotPath(now)
	assert.True(t, strings.HasSuffix(p, "screenshot_20261019_130405.png"), p)
}

func TestLoopLabel(t *testing.T) {
	var c abloop.Controller
	assert.Equal(t, "not set", loopLabel(c.State()))
	c.MarkA(65 * time.Second)
	assert.Equal(t, "A=01:05, set B", loopLabel(c.State()))
	require.NoError(t, c.MarkB(70*time.Second))
	assert.Equal(t, "01:05 - 01:10", loopLabel(c.State()))
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "0.5x", formatSpeed(0.5))
	assert.Equal(t, "1.0x", formatSpeed(1))
}
