// Package library finds the media files a player can open.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	VideoExtensions = map[string]bool{
		".mp4": true, ".avi": true, ".mkv": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	}
	AudioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".flac": true, ".aac": true,
		".m4a": true, ".ogg": true, ".wma": true,
	}
)

func ext(path string) string { return strings.ToLower(filepath.Ext(path)) }

func IsVideo(path string) bool { return VideoExtensions[ext(path)] }

func IsAudio(path string) bool { return AudioExtensions[ext(path)] }

func IsMedia(path string) bool { return IsVideo(path) || IsAudio(path) }

// Scan lists the media files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsMedia(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// DialogFilter is the extension list used by file pickers.
func DialogFilter() []string {
	out := make([]string, 0, len(VideoExtensions)+len(AudioExtensions))
	for e := range VideoExtensions {
		out = append(out, e)
	}
	for e := range AudioExtensions {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
