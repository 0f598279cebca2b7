// Package server streams diagnostics events to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/dodgebot/internal/core/events/bus"
	"github.com/zeusync/dodgebot/internal/core/observability/log"
)

type Config struct {
	Addr string
	// SendBuffer is the number of queued messages per client; a client
	// whose queue is full is dropped.
	SendBuffer   int
	MaxClients   int
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8089",
		SendBuffer:   64,
		MaxClients:   32,
		WriteTimeout: 5 * time.Second,
	}
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data,omitempty"`
}

type client struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Server fans bus events out to websocket clients. Publishing never
// blocks on a client.
type Server struct {
	cfg      Config
	logger   log.Log
	events   bus.EventBus
	sub      bus.Subscription
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	nextID  uint64
	closed  bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New subscribes to every event on events.
func New(cfg Config, events bus.EventBus, logger log.Log) (*Server, error) {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.With(log.String("component", "diagnostics")),
		events:  events,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	sub, err := events.Subscribe(bus.Wildcard, s.broadcast)
	if err != nil {
		return nil, fmt.Errorf("server: subscribe: %w", err)
	}
	s.sub = sub
	return s, nil
}

// Handler serves /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Run listens on cfg.Addr and serves until ctx is done, then shuts down
// and disconnects every client.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("diagnostics listening", log.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		err = srv.Shutdown(shutdownCtx)
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			err = errors.Join(err, serveErr)
		}
	}
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close unsubscribes from the bus and disconnects all clients.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	_ = s.events.Unsubscribe(s.sub)
	for c := range clients {
		c.close()
	}
}

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) register(conn *websocket.Conn) (*client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServerClosed
	}
	if len(s.clients) >= s.cfg.MaxClients {
		return nil, ErrMaxClientsReached
	}
	s.nextID++
	c := &client{id: s.nextID, conn: conn, send: make(chan []byte, s.cfg.SendBuffer)}
	s.clients[c] = struct{}{}
	return c, nil
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

func (s *Server) broadcast(e bus.Event) error {
	payload, err := json.Marshal(Message{Type: e.Type(), Source: e.Source(), Time: e.Timestamp(), Data: e.Data()})
	if err != nil {
		return fmt.Errorf("server: encode %s: %w", e.Type(), err)
	}

	var slow []*client
	s.mu.Lock()
	for c := range s.clients {
		select {
		case c.send <- payload:
			s.sent.Add(1)
		default:
			slow = append(slow, c)
			delete(s.clients, c)
		}
	}
	s.mu.Unlock()

	for _, c := range slow {
		s.dropped.Add(1)
		s.logger.Warn("dropping slow client", log.Uint64("client", c.id))
		c.close()
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c, err := s.register(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		_ = conn.Close()
		return
	}
	s.logger.Debug("client connected", log.Uint64("client", c.id), log.String("remote", conn.RemoteAddr().String()))

	go s.readLoop(c)
	s.writeLoop(c)
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(c *client) {
	defer s.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer s.unregister(c)
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Debug("client write failed", log.Uint64("client", c.id), log.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

type health struct {
	Status    string `json:"status"`
	Clients   int    `json:"clients"`
	Published uint64 `json:"published"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := health{
		Status:    "ok",
		Clients:   s.Clients(),
		Published: s.events.Stats().Published,
		Sent:      s.sent.Load(),
		Dropped:   s.dropped.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h)
}
