package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// MaxRecent bounds the recent files list.
const MaxRecent = 10

type State struct {
	Recent   []string `json:"recent"`
	Settings Settings `json:"settings"`
}

type Settings struct {
	Theme       string  `json:"theme"`        // "light" or "dark"
	Volume      float64 `json:"volume"`       // [0..1]
	Speed       float64 `json:"speed"`        // initial playback rate
	SkipSeconds int     `json:"skip_seconds"` // arrow-key jump
	LastDir     string  `json:"last_dir"`
}

func Default() *State {
	return &State{
		Recent: []string{},
		Settings: Settings{
			Theme:       "dark",
			Volume:      0.5,
			Speed:       1,
			SkipSeconds: 5,
		},
	}
}

// DefaultPath is the state file under the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("data", "state.json")
	}
	return filepath.Join(dir, "abplayer", "state.json")
}

func EnsureDir(path string) error {
	d := filepath.Dir(path)
	if d == "." || d == "" {
		return nil
	}
	return os.MkdirAll(d, 0o755)
}

// Load reads the state file. A missing file yields defaults; invalid
// settings fall back to their defaults individually.
func Load(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	s.normalize()
	return &s, nil
}

func (s *State) normalize() {
	def := Default().Settings
	if s.Recent == nil {
		s.Recent = []string{}
	}
	if len(s.Recent) > MaxRecent {
		s.Recent = s.Recent[:MaxRecent]
	}
	if s.Settings.Theme != "dark" && s.Settings.Theme != "light" {
		s.Settings.Theme = def.Theme
	}
	if s.Settings.Volume < 0 || s.Settings.Volume > 1 {
		s.Settings.Volume = def.Volume
	}
	if s.Settings.Speed < 0.1 || s.Settings.Speed > 4 {
		s.Settings.Speed = def.Speed
	}
	if s.Settings.SkipSeconds <= 0 {
		s.Settings.SkipSeconds = def.SkipSeconds
	}
}

// AddRecent moves path to the front of the recent list.
func (s *State) AddRecent(path string) {
	s.Recent = slices.DeleteFunc(s.Recent, func(p string) bool { return p == path })
	s.Recent = slices.Insert(s.Recent, 0, path)
	if len(s.Recent) > MaxRecent {
		s.Recent = s.Recent[:MaxRecent]
	}
	s.Settings.LastDir = filepath.Dir(path)
}

func Save(path string, s *State) error {
	if err := EnsureDir(path); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
