// Package api provides the local HTTP API and status stream for the recorder.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"mousereplay/internal/controller"
	"mousereplay/internal/schedule"
	"mousereplay/internal/store"
)

// Recorder is the set of controller operations the API exposes
type Recorder interface {
	Snapshot() controller.Snapshot
	Subscribe() (<-chan controller.Update, func())
	StartRecording() error
	StopRecording() error
	ToggleRecording() error
	TriggerReplayNow() error
	StopReplay(ctx context.Context) error
	ToggleAutoReplay(ctx context.Context) (bool, error)
	SetAutoInterval(d time.Duration) error
	AddScheduleEntry(text string) (schedule.Entry, error)
	RemoveScheduleEntry(key string) error
	ScheduleEntries() []schedule.Entry
}

// stopTimeout bounds how long a stop request waits for the replay to end
const stopTimeout = 5 * time.Second

// Options configure a Server
type Options struct {
	// Token, when set, must be sent as "Authorization: Bearer <token>"
	Token string

	// Page serves the control window at "/"
	Page http.Handler
}

// Server provides the HTTP API for local control
type Server struct {
	rec    Recorder
	token  string
	page   http.Handler
	wsMgr  *WSManager
	server *http.Server
}

// NewServer creates a new API server
func NewServer(rec Recorder, opts Options) *Server {
	s := &Server{
		rec:   rec,
		token: opts.Token,
		page:  opts.Page,
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Handler returns the full middleware-wrapped route table. It starts the
// WebSocket hub on first use.
func (s *Server) Handler() http.Handler {
	s.wsMgr.ensureStarted()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/record/start", s.post(s.rec.StartRecording))
	mux.HandleFunc("/api/record/stop", s.post(s.rec.StopRecording))
	mux.HandleFunc("/api/record/toggle", s.post(s.rec.ToggleRecording))
	mux.HandleFunc("/api/replay", s.post(s.rec.TriggerReplayNow))
	mux.HandleFunc("/api/replay/stop", s.post(s.stopReplay))
	mux.HandleFunc("/api/replay/auto", s.handleAuto)
	mux.HandleFunc("/api/schedules", s.handleSchedules)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.page != nil {
		mux.Handle("/", s.page)
	}

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves on addr until Shutdown is called. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("API: Failed to listen on %s: %v", addr, err)
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("API: Listening on http://%s", ln.Addr())
	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("API: Server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the WebSocket hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMgr.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("API: Recovered from panic in %s: %v", r.URL.Path, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		// Skip auth for health check
		if r.URL.Path == "/health" || s.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Browsers cannot set headers on WebSocket upgrades
		if r.Header.Get("Authorization") != "Bearer "+s.token && r.URL.Query().Get("token") != s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) stopReplay() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.rec.StopReplay(ctx)
}

// post adapts a controller operation to a POST handler returning the new status
func (s *Server) post(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := op(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.rec.Snapshot())
	}
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.rec.Snapshot())
}

type autoRequest struct {
	Interval string `json:"interval"`
}

// handleAuto handles POST (toggle) and PUT (set interval) /api/replay/auto
func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
		defer cancel()

		on, err := s.rec.ToggleAutoReplay(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"auto_replay": on,
			"status":      s.rec.Snapshot(),
		})

	case http.MethodPut:
		var req autoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.setAutoInterval(req.Interval); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.rec.Snapshot())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) setAutoInterval(text string) error {
	d, err := schedule.ParseInterval(text)
	if err != nil {
		return err
	}
	return s.rec.SetAutoInterval(d)
}

type scheduleRequest struct {
	Entry string `json:"entry"`
}

type scheduleView struct {
	Key  string        `json:"key"`
	Kind schedule.Kind `json:"kind"`
}

// handleSchedules handles GET, POST and DELETE /api/schedules
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := s.rec.ScheduleEntries()
		views := make([]scheduleView, 0, len(entries))
		for _, e := range entries {
			views = append(views, scheduleView{Key: e.Key(), Kind: e.Kind})
		}
		writeJSON(w, http.StatusOK, views)

	case http.MethodPost:
		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		e, err := s.rec.AddScheduleEntry(req.Entry)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, scheduleView{Key: e.Key(), Kind: e.Kind})

	case http.MethodDelete:
		key := strings.TrimSpace(r.URL.Query().Get("key"))
		if key == "" {
			http.Error(w, "Missing key parameter", http.StatusBadRequest)
			return
		}
		if err := s.rec.RemoveScheduleEntry(key); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrBusy), errors.Is(err, controller.ErrIdle), errors.Is(err, schedule.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrInvalidEntry):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrUnknownEntry), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("API: Request failed: %v", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
