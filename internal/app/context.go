// Package app holds the state shared by the desktop window and the web
// server, passed to them explicitly instead of living in globals.
package app

import (
	"log/slog"
	"sync"

	"abplayer/internal/discord"
	"abplayer/internal/state"
)

// Presence receives playback activity; discord.Client implements it.
type Presence interface {
	Update(discord.Activity) error
	Clear() error
}

type Context struct {
	Log       *slog.Logger
	StatePath string
	Presence  Presence

	mu    sync.Mutex
	state *state.State
}

func NewContext(log *slog.Logger, statePath string, st *state.State, presence Presence) *Context {
	if st == nil {
		st = state.Default()
	}
	if presence == nil {
		presence = nopPresence{}
	}
	return &Context{Log: log, StatePath: statePath, Presence: presence, state: st}
}

// Settings returns a copy of the persisted settings.
func (c *Context) Settings() state.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Settings
}

func (c *Context) Recent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.state.Recent...)
}

// Update mutates the state under lock and writes it to disk. Write failures
// are logged; the in-memory state keeps the change.
func (c *Context) Update(fn func(*state.State)) {
	c.mu.Lock()
	fn(c.state)
	snapshot := *c.state
	snapshot.Recent = append([]string(nil), c.state.Recent...)
	c.mu.Unlock()

	if c.StatePath == "" {
		return
	}
	if err := state.Save(c.StatePath, &snapshot); err != nil {
		c.Log.Warn("save state", "path", c.StatePath, "err", err)
	}
}

// Publish forwards activity to the presence client, logging failures.
func (c *Context) Publish(a discord.Activity) {
	if err := c.Presence.Update(a); err != nil {
		c.Log.Debug("presence update", "err", err)
	}
}

// ClearPresence removes the published activity, as when playback stops or
// the player exits.
func (c *Context) ClearPresence() {
	if err := c.Presence.Clear(); err != nil {
		c.Log.Debug("presence clear", "err", err)
	}
}

type nopPresence struct{}

func (nopPresence) Update(discord.Activity) error { return nil }
func (nopPresence) Clear() error                  { return nil }
