package relay

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"golang.org/x/net/websocket"
)

const maxInboundFrameBytes = 4 << 10

var errOriginNotAllowed = errors.New("websocket origin not allowed")

type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) send(msg Message, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if timeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return websocket.JSON.Send(p.conn, msg)
}

// Hub tracks connected websocket sessions and fans messages out to them.
type Hub struct {
	mu             sync.RWMutex
	peers          map[*peer]struct{}
	closed         bool
	writeTimeout   time.Duration
	allowedOrigins []string
}

// NewHub creates a hub. allowedOrigins is a comma separated list; empty or "*" accepts any origin.
func NewHub(writeTimeout time.Duration, allowedOrigins string) *Hub {
	h := &Hub{
		peers:        make(map[*peer]struct{}),
		writeTimeout: writeTimeout,
	}
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			h.allowedOrigins = nil
			break
		}
		if o != "" {
			h.allowedOrigins = append(h.allowedOrigins, strings.ToLower(o))
		}
	}
	return h
}

// Handler returns the websocket endpoint. Incoming frames are read and discarded.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{
		Handshake: h.handshake,
		Handler:   h.serve,
	}
}

func (h *Hub) handshake(cfg *websocket.Config, req *http.Request) error {
	if len(h.allowedOrigins) == 0 {
		return nil
	}
	raw := req.Header.Get("Origin")
	if raw == "" {
		// non-browser clients do not send an origin
		return nil
	}
	origin, err := url.Parse(raw)
	if err != nil {
		return err
	}
	cfg.Origin = origin
	candidate := strings.ToLower(origin.Scheme + "://" + origin.Host)
	for _, allowed := range h.allowedOrigins {
		if candidate == allowed {
			return nil
		}
	}
	logger.WithComponent("relay").Warnf("rejected websocket from origin %s", raw)
	return errOriginNotAllowed
}

func (h *Hub) serve(conn *websocket.Conn) {
	log := logger.WithComponent("relay")
	defer conn.Close()

	conn.MaxPayloadBytes = maxInboundFrameBytes
	p := &peer{conn: conn}
	if !h.add(p) {
		return
	}
	defer h.remove(p)
	log.Debugf("websocket session opened from %s (%d active)", conn.Request().RemoteAddr, h.Count())

	for {
		var discard string
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			log.Debugf("websocket session closed: %v", err)
			return
		}
	}
}

func (h *Hub) add(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p] = struct{}{}
	return true
}

func (h *Hub) remove(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return false
	}
	delete(h.peers, p)
	return true
}

// Broadcast sends msg to every session and returns how many received it.
// Sessions that fail or exceed the write timeout are dropped.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.RUnlock()

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for _, p := range targets {
		wg.Add(1)
		go func(p *peer) {
			defer wg.Done()
			if err := p.send(msg, h.writeTimeout); err != nil {
				logger.WithComponent("relay").Debugf("dropping websocket session: %v", err)
				if h.remove(p) {
					_ = p.conn.Close()
				}
				return
			}
			delivered.Add(1)
		}(p)
	}
	wg.Wait()
	return int(delivered.Load())
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every session and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*peer]struct{})
	h.closed = true
	h.mu.Unlock()

	for p := range peers {
		_ = p.conn.Close()
	}
}
