// Package server is the browser variant of the player: it lists the media in
// one directory, streams them with range support and keeps an AB loop per
// page session behind a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"abplayer/internal/library"
	"abplayer/web"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 5000

	// DefaultSessionTTL is how long an untouched loop session survives.
	DefaultSessionTTL = 12 * time.Hour
	// DefaultMaxSessions bounds the loop session table.
	DefaultMaxSessions = 1024
)

// Speeds offered as buttons on the page.
var Speeds = []float64{0.5, 1.0, 1.5, 2.0}

// Library is the media listing the server publishes.
type Library interface {
	Files() []string
	Contains(name string) bool
}

// Config holds server configuration options.
type Config struct {
	Host       string
	Port       int
	Dir        string
	SessionTTL time.Duration
	// MaxSessions caps live loop sessions; the least recently used one is
	// evicted to make room.
	MaxSessions int
}

type Server struct {
	addr        string
	ttl         time.Duration
	maxSessions int
	log         *slog.Logger
	lib         Library

	root *os.Root
	page *template.Template

	server   *http.Server
	listener net.Listener

	mu       sync.RWMutex
	sessions map[string]*loopSession
	started  bool
}

// NewServer creates a Server publishing lib, whose names resolve inside
// cfg.Dir.
func NewServer(cfg *Config, lib Library, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if lib == nil {
		return nil, errors.New("library is required")
	}
	if log == nil {
		log = slog.Default()
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open media dir: %w", err)
	}

	page, err := web.Templates()
	if err != nil {
		_ = root.Close()
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	return &Server{
		addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		ttl:         ttl,
		maxSessions: maxSessions,
		log:         log,
		lib:         lib,
		root:        root,
		page:        page,
		sessions:    make(map[string]*loopSession),
	}, nil
}

// Start listens and serves until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// no WriteTimeout: media responses can stream for as long as the file plays
		IdleTimeout: 120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go s.cleanupIdleSessions(ctx)
	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.log.Warn("shutdown", "err", err)
		}
	}()

	s.log.Info("serving", "addr", listener.Addr().String())
	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.started = false
	return s.root.Close()
}

// ListenAddr returns the address the server is listening on, or "" before
// Start.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return s.logRequests(mux)
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	mux.HandleFunc("GET /media/{name...}", s.handleMedia)

	mux.HandleFunc("GET /api/files", s.handleFiles)
	mux.HandleFunc("GET /api/sessions/{id}/loop", s.handleGetLoop)
	mux.HandleFunc("DELETE /api/sessions/{id}/loop", s.handleClearLoop)
	mux.HandleFunc("POST /api/sessions/{id}/loop/a", s.handleMarkA)
	mux.HandleFunc("POST /api/sessions/{id}/loop/b", s.handleMarkB)
}

type indexData struct {
	SessionID string
	Files     []string
	Speeds    []float64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		SessionID: s.newSession(),
		Files:     s.lib.Files(),
		Speeds:    Speeds,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"files": s.lib.Files()})
}

// handleMedia streams one listed file. Names outside the listing, and any
// path escaping the media root, are not found.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !library.IsMedia(name) || !s.lib.Contains(name) {
		http.NotFound(w, r)
		return
	}

	f, err := s.root.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
		)
	})
}

// LocalIP returns the address other machines on the LAN can reach this host
// on, falling back to loopback. No packets are sent.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && !addr.IP.IsUnspecified() {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
