package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

func (w *Window) bindKeys() {
	c := w.win.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { w.showOpenDialog() })
	c.SetOnTypedKey(w.handleKey)
}

func (w *Window) handleKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeySpace:
		w.togglePlay()
	case fyne.KeyLeft:
		w.report(w.sess.Rewind())
	case fyne.KeyRight:
		w.report(w.sess.Forward())
	case fyne.KeyA:
		w.markA()
	case fyne.KeyB:
		w.markB()
	case fyne.KeyEscape:
		if w.win.FullScreen() {
			w.win.SetFullScreen(false)
		}
	}
}
