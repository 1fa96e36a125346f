// Package server publishes generation and sync progress to WebSocket
// clients and serves Prometheus metrics.
//
//	GET /ws       JSON envelopes {"type":"generation"|"sync", ...}
//	GET /health   {"status":"ok","clients":N}
//	GET /metrics  Prometheus text format
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/hammamikhairi/snapcook/internal/dualstore"
	"github.com/hammamikhairi/snapcook/internal/engine"
	"github.com/hammamikhairi/snapcook/internal/logger"
	"github.com/hammamikhairi/snapcook/internal/metrics"
)

// MessageType names an envelope's payload.
type MessageType string

const (
	MessageTypeGeneration MessageType = "generation"
	MessageTypeSync       MessageType = "sync"
)

// Envelope is one message on the feed.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RecipeSummary identifies a generated recipe.
type RecipeSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerationData mirrors an orchestrator state.
type GenerationData struct {
	Phase     string          `json:"phase"`
	Loading   bool            `json:"loading"`
	RequestID string          `json:"request_id,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
	Recipes   []RecipeSummary `json:"recipes,omitempty"`
}

// SyncData mirrors a sync engine event.
type SyncData struct {
	Kind    string `json:"kind"`
	Owner   string `json:"owner"`
	Recipes int    `json:"recipes"`
	Error   string `json:"error,omitempty"`
}

// Server fans feed envelopes out to every connected client.
type Server struct {
	log     *logger.Logger
	metrics *metrics.Metrics

	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	last      *Envelope

	broadcast chan Envelope

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a feed server. m may be nil, which serves the default
// Prometheus registry.
func New(log *logger.Logger, m *metrics.Metrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		log:       log,
		metrics:   m,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Envelope, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.wg.Add(1)
	go s.broadcastLoop()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("server: listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := s.server.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("server: shutdown: %w", serr)
		}
	}
	s.wg.Wait()
	s.log.Info("server: stopped")
	return err
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// ── Feeds ────────────────────────────────────────────────────────

// FollowGeneration forwards orchestrator states until ch closes or ctx ends.
func (s *Server) FollowGeneration(ctx context.Context, ch <-chan engine.State) {
	follow(ctx, s, ch, func(st engine.State) Envelope {
		return envelope(MessageTypeGeneration, generationData(st))
	})
}

// FollowSync forwards sync events until ch closes or ctx ends.
func (s *Server) FollowSync(ctx context.Context, ch <-chan dualstore.Event) {
	follow(ctx, s, ch, func(ev dualstore.Event) Envelope {
		return envelope(MessageTypeSync, syncData(ev))
	})
}

func follow[T any](ctx context.Context, s *Server, ch <-chan T, conv func(T) Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			s.Broadcast(conv(v))
		}
	}
}

// Broadcast queues env for every client. A full queue drops env.
func (s *Server) Broadcast(env Envelope) {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	select {
	case s.broadcast <- env:
	case <-s.ctx.Done():
	default:
		s.log.Warn("server: broadcast queue full, dropping %s envelope", env.Type)
	}
}

func generationData(st engine.State) GenerationData {
	d := GenerationData{Phase: st.Phase.String(), Loading: st.Loading}
	if st.Request != nil {
		d.RequestID = st.Request.ID
		d.Kind = st.Request.Kind.String()
	}
	if st.LastError != nil {
		d.Error = st.LastError.Error()
		d.Message = st.Message()
	}
	for _, r := range st.LastResult {
		d.Recipes = append(d.Recipes, RecipeSummary{ID: r.ID, Name: r.Name})
	}
	return d
}

func syncData(ev dualstore.Event) SyncData {
	d := SyncData{Kind: ev.Kind.String(), Owner: ev.Owner, Recipes: ev.Recipes}
	if ev.Err != nil {
		d.Error = ev.Err.Error()
	}
	return d
}

func envelope(t MessageType, payload any) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{Type: t, Timestamp: time.Now(), Data: data}
}

// ── Connections ──────────────────────────────────────────────────

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case env := <-s.broadcast:
			data, err := json.Marshal(env)
			if err != nil {
				s.log.Error("server: marshal envelope: %v", err)
				continue
			}

			s.clientsMu.Lock()
			if env.Type == MessageTypeGeneration {
				s.last = &env
			}
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.Unlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					s.log.Debug("server: send failed: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.log.Warn("server: websocket upgrade: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	last := s.last
	s.clientsMu.Unlock()
	s.log.Debug("server: client connected (total: %d)", count)

	// Late joiners start from the latest generation state.
	if last != nil {
		if data, err := json.Marshal(last); err == nil {
			_ = s.write(conn, data)
		}
	}

	s.readLoop(conn)
}

// readLoop discards client messages and returns on disconnect.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	count := len(s.clients)
	s.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.log.Debug("server: client disconnected (total: %d)", count)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}
