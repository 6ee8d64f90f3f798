package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"abplayer/internal/abloop"
)

type loopSession struct {
	loop abloop.Controller
	seen time.Time
}

type positionRequest struct {
	Position float64 `json:"position"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) newSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.addSessionLocked(id, time.Now())
	s.mu.Unlock()
	return id
}

// addSessionLocked stores a fresh session, evicting the least recently used
// one when the table is full.
func (s *Server) addSessionLocked(id string, now time.Time) *loopSession {
	if len(s.sessions) >= s.maxSessions {
		var (
			oldestID string
			oldest   time.Time
		)
		for sid, ls := range s.sessions {
			if oldestID == "" || ls.seen.Before(oldest) {
				oldestID, oldest = sid, ls.seen
			}
		}
		delete(s.sessions, oldestID)
		s.log.Debug("evicted loop session", "id", oldestID)
	}
	ls := &loopSession{seen: now}
	s.sessions[id] = ls
	return ls
}

// withSession runs fn on the loop session named by the {id} path value under
// the server lock. Well-formed ids the server has forgotten (idle expiry or a
// restart) start over with an empty loop, within the MaxSessions cap.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*loopSession) error) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return
	}

	now := time.Now()
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = s.addSessionLocked(id, now)
	}
	sess.seen = now
	err := fn(sess)
	st := sess.loop.State()
	s.mu.Unlock()

	switch {
	case errors.Is(err, abloop.ErrInvalidLoopPoint):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleGetLoop(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(*loopSession) error { return nil })
}

func (s *Server) handleClearLoop(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ls *loopSession) error {
		ls.loop.Reset()
		return nil
	})
}

func (s *Server) handleMarkA(w http.ResponseWriter, r *http.Request) {
	pos, err := readPosition(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.withSession(w, r, func(ls *loopSession) error {
		ls.loop.MarkA(pos)
		return nil
	})
}

func (s *Server) handleMarkB(w http.ResponseWriter, r *http.Request) {
	pos, err := readPosition(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.withSession(w, r, func(ls *loopSession) error {
		return ls.loop.MarkB(pos)
	})
}

func readPosition(w http.ResponseWriter, r *http.Request) (time.Duration, error) {
	var req positionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		return 0, errors.New("invalid request body")
	}
	if math.IsNaN(req.Position) || math.IsInf(req.Position, 0) || req.Position < 0 {
		return 0, errors.New("position must be a non-negative number of seconds")
	}
	return time.Duration(req.Position * float64(time.Second)), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) sessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// pruneSessions drops sessions untouched since before now-ttl.
func (s *Server) pruneSessions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, ls := range s.sessions {
		if now.Sub(ls.seen) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// cleanupIdleSessions periodically removes expired loop sessions.
func (s *Server) cleanupIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.pruneSessions(now); n > 0 {
				s.log.Debug("expired loop sessions", "count", n)
			}
		}
	}
}
