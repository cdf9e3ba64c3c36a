package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"calagent/internal/command"
	"calagent/internal/config"
	"calagent/internal/ics"
	appLog "calagent/internal/log"
	"calagent/internal/model"
	"calagent/internal/store"
)

// Server exposes the calendar over a small JSON API plus an ICS export.
// It shares the process's single Store with the interactive CLI path and
// the reminder loop; handlers run on their own request goroutines and
// rely on the Store's internal locking, so none of them take extra
// synchronization here.
type Server struct {
	cfg *config.Config
	st  *store.Store
	mux *http.ServeMux
}

// NewServer constructs a new Server around the shared store.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg: cfg,
		st:  st,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server, wrapped with basic
// auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 사용자명이나 비밀번호가 비어 있으면 인증을 꺼진 것으로 본다.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health 만큼은 인증 없이 열어 둔다 (모니터링용).
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calagent", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/command", s.handleCommand)
	s.mux.HandleFunc("/calendar.ics", s.handleExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents serves the event collection:
//
//	GET    /api/events[?date=YYYY-MM-DD]  list (optionally exact-date filtered)
//	POST   /api/events                    add one event (JSON body)
//	DELETE /api/events?title=<title>      remove all events with that title
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := r.URL.Query().Get("date")
		var events []model.Event
		if date != "" {
			events = s.st.EventsOn(date)
		} else {
			events = s.st.Events()
		}
		writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})

	case http.MethodPost:
		var ev model.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.st.Add(ev); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, ev)

	case http.MethodDelete:
		title := r.URL.Query().Get("title")
		if title == "" {
			writeError(w, http.StatusBadRequest, "title query parameter is required")
			return
		}
		n, err := s.st.Remove(title)
		if err != nil {
			appLog.Error("api: remove failed", err, "title", title)
			writeError(w, http.StatusInternalServerError, "failed to persist calendar")
			return
		}
		writeJSON(w, http.StatusOK, removeResponse{Title: title, Removed: n})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCommand accepts one free-text command and applies it to the store.
//
//	POST /api/command  {"text": "add event lunch on 2024-04-20 12:30"}
//
// Unrecognized text is not an error; the response just says "ignored".
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cmd, err := command.Parse(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := command.Apply(cmd, s.st)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Result: outcome})
}

// handleExport serves the whole calendar as an ICS payload.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := ics.Export(s.st.Events())
	if err != nil {
		appLog.Error("api: ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
	Count  int           `json:"count"`
}

type removeResponse struct {
	Title   string `json:"title"`
	Removed int    `json:"removed"`
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Result string `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
