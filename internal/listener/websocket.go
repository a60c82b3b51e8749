package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pixil98/go-arena/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// WebsocketListener serves the game websocket endpoint together with health
// and metrics routes.
type WebsocketListener struct {
	address string
	port    uint16
	cm      *ConnectionManager
	ready   <-chan struct{}
	metrics *metrics.Registry

	keepalive  time.Duration
	deadPeer   time.Duration
	sendBuffer int

	upgrader websocket.Upgrader
	wg       sync.WaitGroup
}

type WebsocketListenerOpt func(*WebsocketListener)

func WithAddress(address string) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.address = address
	}
}

// WithReady delays accepting connections until ready is closed.
func WithReady(ready <-chan struct{}) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.ready = ready
	}
}

func WithKeepalive(interval, deadPeer time.Duration) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.keepalive = interval
		l.deadPeer = deadPeer
	}
}

func WithSendBuffer(n int) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.sendBuffer = n
	}
}

func WithMetrics(r *metrics.Registry) WebsocketListenerOpt {
	return func(l *WebsocketListener) {
		l.metrics = r
	}
}

func NewWebsocketListener(port uint16, cm *ConnectionManager, opts ...WebsocketListenerOpt) *WebsocketListener {
	l := &WebsocketListener{
		port:       port,
		cm:         cm,
		keepalive:  DefaultKeepaliveInterval,
		deadPeer:   DefaultDeadPeerTimeout,
		sendBuffer: DefaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	if l.ready != nil {
		select {
		case <-l.ready:
		case <-ctx.Done():
			return nil
		}
	}

	addr := net.JoinHostPort(l.address, fmt.Sprint(l.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	slog.InfoContext(ctx, "listening for websockets", "address", listener.Addr().String())

	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	srv := &http.Server{
		Handler:           l.Handler(connCtx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.WarnContext(ctx, "shutting down http server", "error", err)
	}

	// Hijacked websocket connections are not tracked by the http server.
	cancelConns()
	l.wg.Wait()
	return nil
}

// Handler returns the routes of the listener. Sessions started through it
// end when ctx is cancelled.
func (l *WebsocketListener) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", l.serveWs(ctx))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(l.metrics.Snapshot()); err != nil {
			slog.Warn("encoding metrics", "error", err)
		}
	})
	return r
}

func (l *WebsocketListener) serveWs(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := l.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.WarnContext(ctx, "websocket upgrade", "remote", r.RemoteAddr, "error", err)
			return
		}

		slog.DebugContext(ctx, "websocket connection established", "remote", r.RemoteAddr)

		conn := newWsConn(ws, l.sendBuffer, l.keepalive, l.deadPeer)

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer func() { _ = conn.Close() }()

			// Close the socket on shutdown so the blocked reader returns.
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stop()

			l.cm.AcceptConnection(ctx, conn)
		}()
	}
}
