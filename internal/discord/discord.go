//go:build !android && !ios

// Package discord publishes the currently playing file to Discord Rich
// Presence. Every failure is swallowed or returned for logging; playback
// never depends on it.
package discord

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hugolgst/rich-go/client"
)

const reconnectBackoff = 2 * time.Second

// ErrNoAppID is returned by Connect when no Discord application id is set.
var ErrNoAppID = errors.New("discord application id not configured")

// Activity describes what the player is doing.
type Activity struct {
	Path   string
	Paused bool
	// Loop is the loop range label, empty when no loop is active.
	Loop string
}

type Client struct {
	appID string

	mu                 sync.Mutex
	connected          bool
	lastTrack          string
	startTime          time.Time
	lastConnectAttempt time.Time

	// swapped in tests
	login       func(string) error
	logout      func()
	setActivity func(client.Activity) error
	ipcReady    func() bool
}

// New returns a client publishing under the Discord application appID.
func New(appID string) *Client {
	return &Client{
		appID:       appID,
		login:       client.Login,
		logout:      client.Logout,
		setActivity: client.SetActivity,
		ipcReady:    ipcAvailable,
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if c.appID == "" {
		return ErrNoAppID
	}
	c.lastConnectAttempt = time.Now()
	if err := c.login(c.appID); err != nil {
		return fmt.Errorf("discord login: %w", err)
	}
	c.connected = true
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// tryReconnectLocked logs in again at most once per reconnectBackoff.
func (c *Client) tryReconnectLocked() bool {
	if c.appID == "" || time.Since(c.lastConnectAttempt) <= reconnectBackoff || !c.ipcReady() {
		return false
	}
	c.lastConnectAttempt = time.Now()
	if err := c.login(c.appID); err != nil {
		return false
	}
	c.connected = true
	return true
}

func (c *Client) Update(a Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected && !c.tryReconnectLocked() {
		return nil
	}
	if c.lastTrack != a.Path {
		c.startTime = time.Now()
		c.lastTrack = a.Path
	}

	act := buildActivity(a, c.startTime)
	if err := c.setActivity(act); err != nil {
		if !isPipeError(err) {
			return err
		}
		// Discord restarted: reconnect once and retry
		c.logout()
		c.connected = false
		if c.tryReconnectLocked() {
			_ = c.setActivity(act)
		}
	}
	return nil
}

func buildActivity(a Activity, start time.Time) client.Activity {
	base := filepath.Base(a.Path)
	act := client.Activity{
		Details:    strings.TrimSuffix(base, filepath.Ext(base)),
		State:      "AB Player",
		LargeImage: "abplayer_logo",
		LargeText:  "AB Player",
		Timestamps: &client.Timestamps{Start: &start},
	}
	if a.Loop != "" {
		act.State = "Looping " + a.Loop
	}
	if a.Paused {
		act.SmallImage = "pause"
		act.SmallText = "Paused"
	} else {
		act.SmallImage = "play"
		act.SmallText = "Playing"
	}
	return act
}

func (c *Client) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTrack = ""
	if !c.connected {
		return nil
	}
	if err := c.setActivity(client.Activity{}); err != nil {
		if isPipeError(err) {
			c.logout()
			c.connected = false
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		c.logout()
		c.connected = false
	}
}

func isPipeError(err error) bool {
	s := strings.ToLower(err.Error())
	for _, needle := range []string{"broken pipe", "use of closed network connection", "connection reset", "eof"} {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

// ipcAvailable checks for a Discord IPC socket on this OS.
func ipcAvailable() bool {
	var pattern string
	switch runtime.GOOS {
	case "linux":
		pattern = filepath.Join(fmt.Sprintf("/run/user/%d", os.Getuid()), "discord-ipc-*")
	case "darwin":
		pattern = "/tmp/discord-ipc-*"
	default:
		return true
	}
	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		if conn, err := net.DialTimeout("unix", m, 200*time.Millisecond); err == nil {
			_ = conn.Close()
			return true
		}
	}
	return false
}
