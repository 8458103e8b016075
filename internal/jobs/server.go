package jobs

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/marwanayman128/TaskFlow-sub001/internal/session"
)

// Server exposes the job entry points to the external cron scheduler
// and the session lifecycle to the operator console. Job failures
// surface as non-2xx responses so the scheduler can alert.
type Server struct {
	runner  *Runner
	session *session.Manager
	logger  *slog.Logger
}

func NewServer(runner *Runner, mgr *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, session: mgr, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/reminders", func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.runner.DispatchReminders(r.Context())
		s.writeJobResult(w, "reminders", counts, err)
	})
	mux.HandleFunc("POST /jobs/recurrence", func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.runner.ExpandRecurrences(r.Context())
		s.writeJobResult(w, "recurrence", counts, err)
	})
	mux.HandleFunc("POST /jobs/digest", func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.runner.ComposeDigests(r.Context())
		s.writeJobResult(w, "digest", counts, err)
	})

	mux.HandleFunc("GET /session/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"state": string(s.session.Status())})
	})
	mux.HandleFunc("GET /session/qr", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"qr": s.session.CurrentQR()})
	})
	mux.HandleFunc("POST /session/connect", func(w http.ResponseWriter, r *http.Request) {
		if err := s.session.Initialize(r.Context()); err != nil {
			s.logger.Error("session initialize failed", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": string(s.session.Status())})
	})
	mux.HandleFunc("POST /session/logout", func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": string(s.session.Status())})
	})
	return mux
}

func (s *Server) writeJobResult(w http.ResponseWriter, name string, counts any, err error) {
	if err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "counts": counts})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
