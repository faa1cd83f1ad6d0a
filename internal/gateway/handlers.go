package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"stockpulse/internal/model"
	redisstore "stockpulse/internal/store/redis"
	sqlitestore "stockpulse/internal/store/sqlite"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Server is the gateway HTTP server: REST endpoints over the stores plus the
// websocket stream fed by the hub.
type Server struct {
	hub    *Hub
	rstore *redisstore.Store
	store  *sqlitestore.Store
	srv    *http.Server
}

// NewServer builds the gateway server with all routes registered.
func NewServer(addr string, hub *Hub, rstore *redisstore.Store, store *sqlitestore.Store) *Server {
	s := &Server{hub: hub, rstore: rstore, store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/symbols", s.handleSymbols)
	mux.HandleFunc("/api/v1/analysis/", s.handleAnalysis)
	mux.HandleFunc("/api/v1/bars/", s.handleBars)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("gateway listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("gateway server error", "err", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.store.Symbols(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbols": symbols})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/v1/analysis/")
	if symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}
	if s.rstore == nil {
		http.Error(w, "snapshots unavailable: no redis configured", http.StatusServiceUnavailable)
		return
	}

	snap, err := s.rstore.GetLatest(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		http.Error(w, "no analysis for symbol", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/v1/bars/")
	if symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := s.store.ReadRange(r.Context(), symbol, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if series == nil {
		http.Error(w, "no bars for symbol in range", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	client := NewClient(s.hub, conn)
	s.hub.AddClient(client)
	client.Start()
	slog.Debug("ws client connected", "remote", conn.RemoteAddr().String())
}

// parseRange reads optional from/to query params (2006-01-02), defaulting to
// the last year.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	to := model.Day(time.Now())
	from := to.AddDate(-1, 0, 0)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	slog.Error("gateway handler error", "err", err)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
