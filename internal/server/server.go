// Package server exposes the assistant over a small JSON HTTP API.
//
// Endpoints:
//
//	POST /chat     {"message", "session_id"?} → {"session_id", "response", "stage"}
//	GET  /healthz  → {"status", "sessions", "uptime_seconds"}
//
// Each session ID names its own conversation with its own chat log. Unknown
// or expired IDs start a fresh session and the new ID is returned.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rcliao/alphamind/internal/assistant"
	"github.com/rcliao/alphamind/internal/session"
)

// maxBodyBytes caps the request body.
const maxBodyBytes = 64 * 1024

// Handler answers one input within a session. *assistant.Assistant
// satisfies it.
type Handler interface {
	Handle(ctx context.Context, sess *session.Session, input string) (assistant.Reply, error)
}

// Options configures a Server.
type Options struct {
	Addr         string
	ChatDir      string
	HistoryDepth int
	// RateLimit is the sustained requests per second across all clients.
	// Zero disables limiting.
	RateLimit  float64
	Burst      int
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Stage     string `json:"stage,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status     string  `json:"status"`
	Sessions   int     `json:"sessions"`
	UptimeSecs float64 `json:"uptime_seconds"`
}

type entry struct {
	sess     *session.Session
	lastUsed time.Time
}

// Server serves the chat API.
type Server struct {
	opts      Options
	handler   Handler
	limiter   *rate.Limiter
	log       *slog.Logger
	mux       *http.ServeMux
	startedAt time.Time
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry

	server *http.Server
}

// New creates a Server. It does not start listening.
func New(h Handler, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		opts:      opts,
		handler:   h,
		log:       log.With("component", "server"),
		mux:       http.NewServeMux(),
		startedAt: time.Now(),
		now:       time.Now,
		sessions:  make(map[string]*entry),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		return
	}
	s.mux.ServeHTTP(w, r)
}

// Run listens on opts.Addr and serves until ctx is cancelled, then shuts
// down gracefully and closes all sessions.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown error", "error", err)
		}
	}()

	if s.opts.SessionTTL > 0 {
		go s.reap(ctx)
	}

	s.log.Info("listening", "addr", ln.Addr().String())
	err := s.server.Serve(ln)
	s.closeAll()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	id, sess, err := s.session(req.SessionID)
	if err != nil {
		s.log.Error("start session", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not start session"})
		return
	}

	reply, err := s.handler.Handle(r.Context(), sess, req.Message)
	if err != nil {
		s.log.Error("handle message", "session", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: id,
		Response:  reply.Text,
		Stage:     string(reply.Stage),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Sessions:   n,
		UptimeSecs: time.Since(s.startedAt).Seconds(),
	})
}

// session returns the live session for id, or starts a new one.
func (s *Server) session(id string) (string, *session.Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		if !s.expired(e, now) {
			e.lastUsed = now
			return id, e.sess, nil
		}
		s.drop(id, e)
	}

	var (
		sess *session.Session
		err  error
	)
	if s.opts.ChatDir == "" {
		sess = session.Memory(s.opts.HistoryDepth)
	} else {
		sess, err = session.New(s.opts.ChatDir, s.opts.HistoryDepth, now)
		if err != nil {
			return "", nil, err
		}
	}
	newID := uuid.NewString()
	s.sessions[newID] = &entry{sess: sess, lastUsed: now}
	s.log.Debug("session started", "session", newID, "log", sess.LogPath())
	return newID, sess, nil
}

func (s *Server) expired(e *entry, now time.Time) bool {
	return s.opts.SessionTTL > 0 && now.Sub(e.lastUsed) > s.opts.SessionTTL
}

// Sweep closes and forgets sessions idle for longer than the TTL and
// returns how many were removed.
func (s *Server) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !s.expired(e, now) {
			continue
		}
		s.drop(id, e)
		removed++
	}
	return removed
}

// drop closes and forgets one session. Callers hold s.mu.
func (s *Server) drop(id string, e *entry) {
	if err := e.sess.Close(); err != nil {
		s.log.Warn("close session", "session", id, "error", err)
	}
	delete(s.sessions, id)
}

func (s *Server) reap(ctx context.Context) {
	interval := s.opts.SessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("sessions expired", "count", n)
			}
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		if err := e.sess.Close(); err != nil {
			s.log.Warn("close session", "session", id, "error", err)
		}
		delete(s.sessions, id)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode JSON response", "error", err)
	}
}
