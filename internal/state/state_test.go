package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := Default()
	s.Settings.Theme = "light"
	s.Settings.Speed = 1.5
	s.AddRecent("/media/a.mp4")

	require.NoError(t, Save(path, s))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestLoadNormalizesInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	raw := `{"settings":{"theme":"neon","volume":3,"speed":9,"skip_seconds":-1}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	def := Default().Settings
	assert.Equal(t, def.Theme, s.Settings.Theme)
	assert.Equal(t, def.Volume, s.Settings.Volume)
	assert.Equal(t, def.Speed, s.Settings.Speed)
	assert.Equal(t, def.SkipSeconds, s.Settings.SkipSeconds)
	assert.NotNil(t, s.Recent)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestAddRecent(t *testing.T) {
	s := Default()
	s.AddRecent("/a/one.mp3")
	s.AddRecent("/b/two.mp4")
	s.AddRecent("/a/one.mp3")
	assert.Equal(t, []string{"/a/one.mp3", "/b/two.mp4"}, s.Recent)
	assert.Equal(t, "/a", s.Settings.LastDir)

	for i := 0; i < MaxRecent+5; i++ {
		s.AddRecent(fmt.Sprintf("/x/%d.mp3", i))
	}
	assert.Len(t, s.Recent, MaxRecent)
	assert.Equal(t, fmt.Sprintf("/x/%d.mp3", MaxRecent+4), s.Recent[0])
}
