package ui

import (
	"sync"

	"abplayer/internal/playback"
	"abplayer/internal/player"
	"abplayer/internal/video"
)

// Sinks routes files to the beep audio player or the libVLC player. The
// video player is created on first use, libVLC init is slow.
type Sinks struct {
	mu    sync.Mutex
	audio *player.Player
	video *video.Player
}

func NewSinks() *Sinks {
	return &Sinks{audio: player.New()}
}

// For is a session.SinkFactory.
func (s *Sinks) For(path string) (playback.Sink, error) {
	if player.CanPlay(path) {
		return s.audio, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.video == nil {
		v, err := video.New()
		if err != nil {
			return nil, err
		}
		s.video = v
	}
	return s.video, nil
}

func (s *Sinks) Close() {
	_ = s.audio.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.video != nil {
		_ = s.video.Close()
		s.video = nil
	}
}
