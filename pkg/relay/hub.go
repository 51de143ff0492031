package relay

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const writeWait = 5 * time.Second

// HubConfig holds the hub's options.
type HubConfig struct {
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Namespace string
}

// HubOption configures a Hub.
type HubOption func(*HubConfig)

// WithHubLogger sets the hub's logger.
func WithHubLogger(l *slog.Logger) HubOption {
	return func(c *HubConfig) { c.Logger = l }
}

// WithRegistry registers the hub's metrics on reg and serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) HubOption {
	return func(c *HubConfig) { c.Registry = reg }
}

// WithMetricsNamespace sets the Prometheus namespace. Default "nanostore".
func WithMetricsNamespace(ns string) HubOption {
	return func(c *HubConfig) { c.Namespace = ns }
}

type peer struct {
	conn    *websocket.Conn
	origin  string
	writeMu sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans events out between connected clients. Every frame a client sends
// is forwarded to all other clients, never back to the sender.
type Hub struct {
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.RWMutex
	peers  map[*peer]struct{}
	closed bool

	clients prometheus.Gauge
	relayed *prometheus.CounterVec
}

// NewHub creates a hub. Serve it with any http.Server; it routes /ws,
// /healthz and /metrics.
func NewHub(opts ...HubOption) *Hub {
	cfg := HubConfig{Namespace: "nanostore"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)
	h := &Hub{
		logger: cfg.Logger,
		peers:  make(map[*peer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "relay",
			Name:      "clients",
			Help:      "Number of connected relay clients",
		}),
		relayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Events received by the relay hub",
		}, []string{"result"}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", h.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("relay upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	p := &peer{conn: conn, origin: r.URL.Query().Get("origin")}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.peers[p] = struct{}{}
	h.mu.Unlock()
	h.clients.Inc()
	h.logger.Debug("relay client connected", "origin", p.origin, "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		msg, err := decodeMessage(data)
		if err != nil {
			h.relayed.WithLabelValues("dropped").Inc()
			h.logger.Warn("relay dropped malformed frame", "origin", p.origin, "error", err)
			continue
		}
		if msg.Origin == "" {
			msg.Origin = p.origin
		}
		h.broadcast(msg, p)
	}

	h.remove(p)
	h.logger.Debug("relay client disconnected", "origin", p.origin)
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	h.mu.Unlock()
	if ok {
		h.clients.Dec()
	}
	p.conn.Close()
}

// broadcast sends msg to every peer except from.
func (h *Hub) broadcast(msg Message, from *peer) {
	data, err := encodeMessage(msg)
	if err != nil {
		h.relayed.WithLabelValues("dropped").Inc()
		return
	}
	h.relayed.WithLabelValues("relayed").Inc()

	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		if p != from {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range targets {
		if err := p.write(data); err != nil {
			h.logger.Error("relay write failed", "origin", p.origin, "error", err)
			h.remove(p)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		h.remove(p)
	}
}
