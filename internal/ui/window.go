// Package ui is the fyne desktop player window.
package ui

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"abplayer/internal/abloop"
	"abplayer/internal/app"
	"abplayer/internal/discord"
	"abplayer/internal/library"
	"abplayer/internal/session"
	"abplayer/internal/state"
)

var speedPresets = []float64{0.5, 1.0, 1.5, 2.0}

// snapshotter is implemented by sinks that can grab a video frame.
type snapshotter interface {
	Snapshot() (image.Image, error)
}

// visualizer is implemented by sinks that render video into the window.
type visualizer interface {
	Visual() fyne.CanvasObject
}

type Window struct {
	ctx  *app.Context
	fapp fyne.App
	win  fyne.Window
	sess *session.Session

	fileLabel   *widget.Label
	timeLabel   *widget.Label
	statusLabel *widget.Label
	abLabel     *widget.Label
	loopBadge   *widget.Label
	speedLabel  *widget.Label

	progress    *widget.Slider
	speedSlider *widget.Slider
	volSlider   *widget.Slider
	repeatCheck *widget.Check
	recent      *widget.Select

	openBtn  *widget.Button
	playBtn  *widget.Button
	stopBtn  *widget.Button
	backBtn  *widget.Button
	fwdBtn   *widget.Button
	abBtn    *widget.Button
	clearBtn *widget.Button
	shotBtn  *widget.Button
	fullBtn  *widget.Button

	cover    *canvas.Image
	videoBox *fyne.Container

	// guards against feedback when sliders are moved programmatically
	updatingProgress bool
	lastPlaying      bool
	lastLoopActive   bool

	done chan struct{}
}

func New(a fyne.App, ctx *app.Context, sess *session.Session) *Window {
	w := &Window{
		ctx:  ctx,
		fapp: a,
		win:  a.NewWindow(lang.L("AB Player")),
		sess: sess,
		done: make(chan struct{}),
	}
	w.win.Resize(fyne.NewSize(1000, 700))
	w.applyTheme(ctx.Settings().Theme)
	w.build()
	w.bindKeys()
	w.win.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) > 0 {
			w.Open(uris[0].Path())
		}
	})
	w.win.SetOnClosed(func() {
		close(w.done)
		w.ctx.ClearPresence()
	})
	return w
}

func (w *Window) Window() fyne.Window { return w.win }

func (w *Window) build() {
	settings := w.ctx.Settings()

	w.fileLabel = widget.NewLabel(lang.L("No file selected"))
	w.fileLabel.Truncation = fyne.TextTruncateEllipsis
	w.timeLabel = widget.NewLabelWithStyle("00:00 / 00:00", fyne.TextAlignTrailing, fyne.TextStyle{Monospace: true})
	w.loopBadge = widget.NewLabelWithStyle(lang.L("AB loop on"), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	w.loopBadge.Importance = widget.SuccessImportance
	w.loopBadge.Hide()
	w.statusLabel = widget.NewLabel(lang.L("Ready - drop a file on the window to play"))
	w.abLabel = widget.NewLabel("")

	w.progress = widget.NewSlider(0, 1)
	w.progress.Step = 0.001
	w.progress.OnChanged = func(v float64) {
		if w.updatingProgress {
			return
		}
		if err := w.sess.SeekRatio(v); err != nil {
			w.ctx.Log.Debug("seek", "err", err)
		}
	}
	w.progress.Disable()

	w.openBtn = widget.NewButtonWithIcon(lang.L("Open"), theme.FolderOpenIcon(), w.showOpenDialog)
	w.playBtn = widget.NewButtonWithIcon(lang.L("Play"), theme.MediaPlayIcon(), w.togglePlay)
	w.stopBtn = widget.NewButtonWithIcon(lang.L("Stop"), theme.MediaStopIcon(), w.stop)
	w.backBtn = widget.NewButtonWithIcon("", theme.MediaFastRewindIcon(), func() { w.report(w.sess.Rewind()) })
	w.fwdBtn = widget.NewButtonWithIcon("", theme.MediaFastForwardIcon(), func() { w.report(w.sess.Forward()) })
	w.abBtn = widget.NewButtonWithIcon(lang.L("Set A"), theme.MediaReplayIcon(), w.cycleLoop)
	w.abBtn.Importance = widget.HighImportance
	w.clearBtn = widget.NewButton(lang.L("Clear AB"), w.clearLoop)
	w.repeatCheck = widget.NewCheck(lang.L("Repeat"), func(on bool) { w.sess.SetRepeat(on) })

	w.speedLabel = widget.NewLabel(formatSpeed(settings.Speed))
	w.speedSlider = widget.NewSlider(0.1, 4)
	w.speedSlider.Step = 0.1
	w.speedSlider.Value = settings.Speed
	w.speedSlider.OnChanged = w.setSpeed
	w.speedSlider.OnChangeEnded = func(v float64) {
		w.ctx.Update(func(s *state.State) { s.Settings.Speed = v })
	}
	presets := container.NewHBox()
	for _, v := range speedPresets {
		presets.Add(widget.NewButton(formatSpeed(v), func() {
			w.speedSlider.SetValue(v)
			w.ctx.Update(func(s *state.State) { s.Settings.Speed = v })
		}))
	}

	w.volSlider = widget.NewSlider(0, 1)
	w.volSlider.Step = 0.01
	w.volSlider.Value = settings.Volume
	w.volSlider.OnChanged = func(v float64) { w.report(w.sess.SetVolume(v)) }
	w.volSlider.OnChangeEnded = func(v float64) {
		w.ctx.Update(func(s *state.State) { s.Settings.Volume = v })
	}

	w.shotBtn = widget.NewButtonWithIcon(lang.L("Screenshot"), theme.MediaPhotoIcon(), w.screenshot)
	w.fullBtn = widget.NewButtonWithIcon(lang.L("Fullscreen"), theme.ViewFullScreenIcon(), func() {
		w.win.SetFullScreen(!w.win.FullScreen())
	})

	themeSelect := widget.NewSelect([]string{lang.L("Dark"), lang.L("Light")}, func(v string) {
		name := "dark"
		if v == lang.L("Light") {
			name = "light"
		}
		w.applyTheme(name)
		w.ctx.Update(func(s *state.State) { s.Settings.Theme = name })
	})
	if settings.Theme == "light" {
		themeSelect.SetSelected(lang.L("Light"))
	} else {
		themeSelect.SetSelected(lang.L("Dark"))
	}

	w.recent = widget.NewSelect(w.ctx.Recent(), func(p string) {
		if p != "" && p != w.sess.Path() {
			w.Open(p)
		}
	})
	w.recent.PlaceHolder = lang.L("Recent files")

	w.cover = canvas.NewImageFromResource(theme.MediaMusicIcon())
	w.cover.FillMode = canvas.ImageFillContain
	w.cover.SetMinSize(fyne.NewSize(480, 270))
	w.videoBox = container.NewStack()
	w.videoBox.Hide()
	visual := container.NewStack(w.cover, w.videoBox)

	info := container.NewBorder(nil, nil, w.fileLabel, w.timeLabel, w.loopBadge)
	transport := container.NewHBox(
		w.openBtn, widget.NewSeparator(),
		w.backBtn, w.playBtn, w.stopBtn, w.fwdBtn, widget.NewSeparator(),
		w.abBtn, w.clearBtn, w.repeatCheck,
	)
	advanced := widget.NewCard("", lang.L("Advanced"), container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel(lang.L("Speed")), container.NewHBox(w.speedLabel, presets), w.speedSlider),
		container.NewBorder(nil, nil, widget.NewLabel(lang.L("Volume")), nil, w.volSlider),
		container.NewHBox(w.shotBtn, w.fullBtn, themeSelect, w.recent),
	))
	bottom := container.NewVBox(info, w.progress, transport, advanced, w.abLabel, widget.NewSeparator(), w.statusLabel)

	w.win.SetContent(container.NewBorder(nil, bottom, nil, nil, visual))
	w.render(w.sess.Tick())
}

func (w *Window) applyTheme(name string) {
	if name == "light" {
		w.fapp.Settings().SetTheme(theme.LightTheme())
		return
	}
	w.fapp.Settings().SetTheme(theme.DarkTheme())
}

func (w *Window) setStatus(msg string) {
	w.statusLabel.SetText(msg)
}

// report shows err in the status line; nil is ignored.
func (w *Window) report(err error) {
	if err != nil {
		w.setStatus(err.Error())
	}
}

func (w *Window) showOpenDialog() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w.win)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		_ = r.Close()
		w.Open(path)
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter(library.DialogFilter()))
	if dir := w.ctx.Settings().LastDir; dir != "" {
		if l, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			d.SetLocation(l)
		}
	}
	d.Resize(fyne.NewSize(800, 560))
	d.Show()
}

// Open loads path and starts playing it.
func (w *Window) Open(path string) {
	if err := w.sess.Open(path); err != nil {
		w.ctx.Log.Warn("open failed", "file", path, "err", err)
		dialog.ShowError(err, w.win)
		return
	}
	w.showVisual()
	w.fileLabel.SetText(filepath.Base(path))
	w.progress.Enable()
	w.setStatus(lang.L("Loaded") + ": " + path)
	w.ctx.Update(func(s *state.State) { s.AddRecent(path) })
	w.recent.SetOptions(w.ctx.Recent())

	if err := w.sess.Play(); err != nil {
		w.report(err)
	}
	w.publish()
	w.render(w.sess.Tick())
}

func (w *Window) showVisual() {
	v, ok := w.sess.Sink().(visualizer)
	if !ok {
		w.videoBox.Hide()
		w.cover.Show()
		return
	}
	if len(w.videoBox.Objects) == 0 {
		w.videoBox.Objects = []fyne.CanvasObject{v.Visual()}
		w.videoBox.Refresh()
	}
	w.cover.Hide()
	w.videoBox.Show()
}

func (w *Window) togglePlay() {
	if w.sess.Path() == "" {
		dialog.ShowInformation(lang.L("Info"), lang.L("Please open a media file first."), w.win)
		return
	}
	if _, err := w.sess.TogglePlay(); err != nil {
		w.report(err)
	}
	w.publish()
	w.render(w.sess.Tick())
}

func (w *Window) stop() {
	w.report(w.sess.Stop())
	w.updatingProgress = true
	w.progress.SetValue(0)
	w.updatingProgress = false
	w.ctx.ClearPresence()
}

func (w *Window) setSpeed(v float64) {
	got, err := w.sess.SetSpeed(v)
	w.speedLabel.SetText(formatSpeed(got))
	w.report(err)
}

func (w *Window) markA() {
	pos, err := w.sess.MarkA()
	if err != nil {
		w.report(err)
		return
	}
	w.setStatus(lang.L("A point set") + ": " + abloop.FormatDuration(pos))
	w.render(w.sess.Tick())
}

func (w *Window) markB() {
	pos, err := w.sess.MarkB()
	if err != nil {
		w.reportLoopError(err)
		return
	}
	w.setStatus(lang.L("B point set") + ": " + abloop.FormatDuration(pos) + " - " + lang.L("AB loop started"))
	w.publish()
	w.render(w.sess.Tick())
}

func (w *Window) reportLoopError(err error) {
	switch {
	case errors.Is(err, abloop.ErrNoPointA):
		w.setStatus(lang.L("Set the A point first!"))
	case errors.Is(err, abloop.ErrBNotAfterA):
		w.setStatus(lang.L("B must be after A!"))
	default:
		w.report(err)
	}
}

func (w *Window) cycleLoop() {
	res, err := w.sess.CycleLoop()
	switch {
	case res == session.MarkedB && err != nil:
		w.reportLoopError(err)
		return
	case err != nil:
		w.report(err)
		return
	}
	loop := w.sess.Loop()
	switch res {
	case session.MarkedA:
		w.setStatus(lang.L("A point set") + ": " + abloop.FormatTime(loop.A))
	case session.MarkedB:
		w.setStatus(lang.L("B point set") + ": " + abloop.FormatTime(loop.B) + " - " + lang.L("AB loop started"))
	case session.Suspended:
		w.setStatus(lang.L("AB loop off"))
	case session.Resumed:
		w.setStatus(lang.L("AB loop on") + ": " + loop.Label)
	}
	w.publish()
	w.render(w.sess.Tick())
}

func (w *Window) clearLoop() {
	w.sess.ClearLoop()
	w.setStatus(lang.L("AB points cleared"))
	w.publish()
	w.render(w.sess.Tick())
}

func (w *Window) screenshot() {
	shooter, ok := w.sess.Sink().(snapshotter)
	if !ok {
		w.setStatus(lang.L("Screenshots are only available for video"))
		return
	}
	img, err := shooter.Snapshot()
	if err != nil {
		w.report(err)
		return
	}
	path := screenshotPath(time.Now())
	if err := savePNG(path, img); err != nil {
		dialog.ShowError(err, w.win)
		return
	}
	w.setStatus(lang.L("Screenshot saved") + ": " + path)
}

// screenshotPath names a file on the desktop, falling back to the home
// directory when there is no Desktop folder.
func screenshotPath(now time.Time) string {
	name := fmt.Sprintf("screenshot_%s.png", now.Format("20060102_150405"))
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	desk := filepath.Join(home, "Desktop")
	if st, err := os.Stat(desk); err == nil && st.IsDir() {
		return filepath.Join(desk, name)
	}
	return filepath.Join(home, name)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func (w *Window) publish() {
	path := w.sess.Path()
	if path == "" {
		return
	}
	a := discord.Activity{Path: path, Paused: true}
	if sink := w.sess.Sink(); sink != nil {
		a.Paused = !sink.IsPlaying()
	}
	if w.sess.LoopActive() {
		a.Loop = w.sess.Loop().Label
	}
	w.ctx.Publish(a)
}

// render draws a session snapshot. Must run on the fyne goroutine.
func (w *Window) render(snap session.Snapshot) {
	w.timeLabel.SetText(snap.TimeLabel())
	w.updatingProgress = true
	w.progress.SetValue(snap.Progress())
	w.updatingProgress = false

	if snap.Playing != w.lastPlaying || w.playBtn.Text == "" {
		w.lastPlaying = snap.Playing
		if snap.Playing {
			w.playBtn.SetText(lang.L("Pause"))
			w.playBtn.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playBtn.SetText(lang.L("Play"))
			w.playBtn.SetIcon(theme.MediaPlayIcon())
		}
	}

	w.abBtn.SetText(abButtonText(snap))
	w.abLabel.SetText(lang.L("AB loop") + ": " + loopLabel(snap.Loop))
	if snap.LoopActive != w.lastLoopActive {
		w.lastLoopActive = snap.LoopActive
		if snap.LoopActive {
			w.loopBadge.Show()
		} else {
			w.loopBadge.Hide()
		}
	}
}

func abButtonText(snap session.Snapshot) string {
	switch {
	case !snap.Loop.HasA:
		return lang.L("Set A")
	case !snap.Loop.HasB:
		return lang.L("Set B")
	case snap.LoopActive:
		return "AB " + snap.Loop.Label
	default:
		return lang.L("AB loop off")
	}
}

func loopLabel(st abloop.State) string {
	switch {
	case !st.HasA:
		return lang.L("not set")
	case !st.HasB:
		return "A=" + abloop.FormatTime(st.A) + ", " + lang.L("set B")
	default:
		return st.Label
	}
}

func formatSpeed(v float64) string {
	return fmt.Sprintf("%.1fx", v)
}

// Run shows the window, polls the session every tick and blocks until the
// window is closed.
func (w *Window) Run() {
	go w.poll()
	w.win.ShowAndRun()
}

func (w *Window) poll() {
	ticker := time.NewTicker(session.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			snap := w.sess.Tick()
			fyne.Do(func() { w.render(snap) })
		}
	}
}
