package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/levelbot/backend/internal/leveling"
)

// genericFailure is the user-visible message for any internal error; the
// adapter relays it verbatim, details stay in the server log.
const genericFailure = "an error occurred"

// noDataMessage is the reply for a stats query about an unknown user.
const noDataMessage = "This user has no data yet. They should send some messages to earn XP!"

const panelColor = 0x0099ff

// Server is the HTTP+WS surface the platform adapter talks to: event
// ingest, stats queries, the command definition to register upstream,
// and a websocket for level-up notifications.
type Server struct {
	engine      *leveling.Engine
	broadcaster *Broadcaster
	log         *zap.Logger
	authToken   string
}

func NewServer(engine *leveling.Engine, broadcaster *Broadcaster, log *zap.Logger, authToken string) *Server {
	return &Server{
		engine:      engine,
		broadcaster: broadcaster,
		log:         log,
		authToken:   authToken,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if req.UserID == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "userId and username are required")
		return
	}

	at := time.Now()
	if req.Timestamp > 0 {
		at = time.UnixMilli(req.Timestamp)
	}

	res, err := s.engine.Grant(r.Context(), leveling.Event{
		UserID:   req.UserID,
		Username: req.Username,
		At:       at,
		Bot:      req.Bot,
	})
	if err != nil {
		s.log.Error("grant failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, genericFailure)
		return
	}

	resp := EventResponse{Awarded: res.Awarded}
	if res.Awarded {
		resp.Level = res.Snapshot.Level
		resp.XP = res.Snapshot.XP
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The optional target falls back to the requesting user.
	target := r.URL.Query().Get("user")
	if target == "" {
		target = r.URL.Query().Get("requester")
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, "user or requester is required")
		return
	}

	snap, ok, err := s.engine.Stats(r.Context(), target)
	if err != nil {
		s.log.Error("stats query failed", zap.String("user_id", target), zap.Error(err))
		writeError(w, http.StatusInternalServerError, genericFailure)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": noDataMessage})
		return
	}

	writeJSON(w, http.StatusOK, StatsPanel{
		Title: fmt.Sprintf("Stats for %s", snap.Username),
		Fields: []PanelField{
			{Name: "Level", Value: strconv.Itoa(snap.Level), Inline: true},
			{Name: "XP", Value: strconv.Itoa(snap.XP), Inline: true},
		},
		Color: panelColor,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, CommandDefinition{
		Name:        "stats",
		Description: "Check your stats",
		Options: []CommandOption{
			{
				Name:        "user",
				Description: "The user whose stats you want to check",
				Type:        6, // USER option type
				Required:    false,
			},
		},
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		// Adapter connections are authenticated by token, not origin.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade error", zap.Error(err))
		return
	}

	s.log.Info("adapter connected", zap.String("remote", r.RemoteAddr))
	c := s.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			s.log.Info("adapter disconnected", zap.String("remote", r.RemoteAddr))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	if r.Header.Get("X-LevelBot-Token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe starts the HTTP server on host:port.
func ListenAndServe(host string, port int, mux *http.ServeMux, log *zap.Logger) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Info("server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
