package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.provision/pkg/logging"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Message is the envelope written to WebSocket clients.
type Message struct {
	Kind      string     `json:"kind"`
	Event     *TaskEvent `json:"event,omitempty"`
	Dashboard *Dashboard `json:"dashboard,omitempty"`
}

// Message kinds.
const (
	KindDashboard = "dashboard"
	KindEvent     = "event"
)

// Server streams live pass events over WebSocket (/ws) and
// Server-Sent Events (/events), and serves the dashboard
// snapshot as JSON (/dashboard).
type Server struct {
	mu        sync.RWMutex
	collector *EventCollector
	dashboard *DashboardData
	clients   map[chan TaskEvent]struct{}
	addr      string
	server    *http.Server
	listener  net.Listener
	logger    logging.Logger
	upgrader  websocket.Upgrader
	quit      chan struct{}
	quitOnce  sync.Once
	mounts    map[string]http.Handler
}

// NewServer creates a monitor server and subscribes it to the
// collector.
func NewServer(
	addr string,
	collector *EventCollector,
	dashboard *DashboardData,
	logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		addr:      addr,
		collector: collector,
		dashboard: dashboard,
		clients:   make(map[chan TaskEvent]struct{}),
		logger:    logger,
		quit:      make(chan struct{}),
		mounts:    make(map[string]http.Handler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	collector.OnEvent(s.publish)
	return s
}

// Mount serves h under pattern alongside the built-in
// endpoints. It must be called before Start.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts[pattern] = h
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.mu.RLock()
	for pattern, h := range s.mounts {
		mux.Handle(pattern, h)
	}
	s.mu.RUnlock()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/events", s.handleSSE)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Listen binds the configured address without serving. Start
// serves on this listener; calling Listen first lets a caller
// surface bind failures before any other work begins.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("monitor server: %w", err)
	}
	s.listener = ln
	return nil
}

// Start serves until ctx is cancelled or Stop is called,
// binding the configured address first unless Listen already
// did.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("monitor_listening",
		logging.StringField("addr", ln.Addr().String()),
	)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.closeClients()
			_ = srv.Close()
		case <-done:
		}
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server: %w", err)
	}
	return nil
}

// Addr returns the bound address once the server is listening, or
// the configured address before that.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop disconnects streaming clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.closeClients()
	s.mu.RLock()
	srv, ln := s.server, s.listener
	s.mu.RUnlock()
	switch {
	case srv != nil:
		return srv.Shutdown(ctx)
	case ln != nil:
		// Bound by Listen but never served.
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}
	return nil
}

func (s *Server) closeClients() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// ClientCount returns the number of connected streaming clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) subscribe() (chan TaskEvent, func()) {
	ch := make(chan TaskEvent, clientBuffer)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
	}
}

func (s *Server) publish(event TaskEvent) {
	s.dashboard.UpdateFromEvent(event)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.clients {
		select {
		case ch <- event:
		default:
			// Client too slow, skip
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("monitor_upgrade_failed", logging.ErrorField(err))
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.subscribe()
	defer unsubscribe()

	// Reads are only used to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	snap := s.dashboard.Snapshot()
	if err := s.writeWS(conn, Message{Kind: KindDashboard, Dashboard: &snap}); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case <-s.quit:
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(writeTimeout),
			)
			return
		case event := <-ch:
			if err := s.writeWS(conn, Message{Kind: KindEvent, Event: &event}); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch, unsubscribe := s.subscribe()
	defer unsubscribe()

	snap := s.dashboard.Snapshot()
	if data, err := json.Marshal(snap); err == nil {
		fmt.Fprintf(w, "event: dashboard\ndata: %s\n\n", data)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.quit:
			return
		case event := <-ch:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: task\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.dashboard.Snapshot())
}
