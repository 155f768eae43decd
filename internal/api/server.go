package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"vigil/internal/command"
	"vigil/internal/event"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/watcher"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
	maxReplayCount    = 256
)

// Server exposes the read-only feed: live events over websocket, a JSON
// status snapshot, and Prometheus metrics.
type Server struct {
	logger   *logging.Logger
	registry *metrics.Registry
	bus      *event.Bus[StreamEvent]
	watcher  *watcher.Watcher
	tracker  *command.Tracker
	token    string
	started  time.Time
}

type ServerOptions struct {
	Logger   *logging.Logger
	Registry *metrics.Registry
	Bus      *event.Bus[StreamEvent]
	Watcher  *watcher.Watcher
	Tracker  *command.Tracker
	Token    string
}

func NewServer(options ServerOptions) *Server {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewEntryBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	return &Server{
		logger:   logger.With(map[string]string{"component": "api"}),
		registry: registry,
		bus:      options.Bus,
		watcher:  options.Watcher,
		tracker:  options.Tracker,
		token:    options.Token,
		started:  time.Now().UTC(),
	}
}

func (server *Server) RegisterRoutes(mux *http.ServeMux) {
	if server == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/events", server.handleEvents)
	mux.HandleFunc("/api/status", server.handleStatus)
	mux.HandleFunc("/metrics", server.handleMetrics)
}

func (server *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, server.token) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if server.bus == nil {
		http.Error(w, "event feed unavailable", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Warn("websocket upgrade failed", map[string]string{
			"remote_addr": r.RemoteAddr,
			"error":       err.Error(),
		})
		return
	}
	defer conn.Close()

	output, cancel := server.bus.Subscribe()
	defer cancel()

	if count := replayCount(r); count > 0 {
		for _, past := range server.replay(count) {
			if err := writeStreamEvent(conn, past); err != nil {
				return
			}
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case streamEvent, ok := <-output:
			if !ok {
				return
			}
			if err := writeStreamEvent(conn, streamEvent); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (server *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, server.token) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = server.registry.WritePrometheus(w)
}

func (server *Server) replay(count int) []StreamEvent {
	buffered := make(chan StreamEvent, count)
	server.bus.ReplayLast(count, buffered)

	events := make([]StreamEvent, 0, count)
	for {
		select {
		case streamEvent := <-buffered:
			events = append(events, streamEvent)
		default:
			return events
		}
	}
}

func writeStreamEvent(conn *websocket.Conn, streamEvent StreamEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(streamEvent)
}

func replayCount(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("replay"))
	if raw == "" {
		return 0
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0
	}
	if count > maxReplayCount {
		count = maxReplayCount
	}
	return count
}

func validateToken(r *http.Request, token string) bool {
	if token == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ") == token
	}

	queryToken := r.URL.Query().Get("token")
	if queryToken != "" {
		return queryToken == token
	}

	return false
}
