package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/logger"
)

// WebSocket dials a language server exposed over a WebSocket endpoint,
// adapted from the teacher's ConnectWebSocket: retry-with-backoff dial plus
// the gorillaRWC adapter that turns gorilla/websocket's message framing
// into a plain io.ReadWriteCloser the Frame Codec can read headers from.
type WebSocket struct {
	URL string

	MaxAttempts  int
	RetryBackoff time.Duration

	conn *websocket.Conn
}

func NewWebSocket(host string, port int, path string) *WebSocket {
	if path == "" {
		path = "/lsp"
	}
	addr := strings.Replace(fmt.Sprintf("%s:%d", host, port), "localhost", "127.0.0.1", 1)
	return &WebSocket{
		URL:          fmt.Sprintf("ws://%s%s", addr, path),
		MaxAttempts:  5,
		RetryBackoff: 2 * time.Second,
	}
}

func (w *WebSocket) Start(ctx context.Context) (io.ReadWriteCloser, error) {
	var conn *websocket.Conn
	var err error

	for attempt := 1; attempt <= w.MaxAttempts; attempt++ {
		conn, err = dial(ctx, w.URL)
		if err == nil {
			break
		}
		logger.Warn("websocket dial attempt failed", "url", w.URL, "attempt", attempt, "of", w.MaxAttempts, "err", err)
		if attempt < w.MaxAttempts {
			select {
			case <-time.After(w.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, lsperr.New(lsperr.Terminated, "", ctx.Err())
			}
		}
	}
	if err != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("dial %s after %d attempts: %w", w.URL, w.MaxAttempts, err))
	}

	logger.Info("websocket connection established", "url", w.URL)
	w.conn = conn
	return newGorillaRWC(conn), nil
}

func (w *WebSocket) Kill() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func dial(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	netDialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	dialer := websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) {
			conn, err := netDialer.Dial(network, addr)
			if err != nil {
				return nil, err
			}
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn, nil
		},
		HandshakeTimeout: 45 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, http.Header{})
	return conn, err
}

// gorillaRWC wraps a gorilla/websocket connection as an io.ReadWriteCloser,
// kept nearly verbatim from the teacher since the adaptation required is
// purely mechanical (message framing, not protocol semantics).
type gorillaRWC struct {
	conn    *websocket.Conn
	readBuf []byte
	mu      sync.Mutex
}

func newGorillaRWC(conn *websocket.Conn) *gorillaRWC {
	return &gorillaRWC{conn: conn}
}

func (g *gorillaRWC) Read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.readBuf) > 0 {
		n := copy(p, g.readBuf)
		g.readBuf = g.readBuf[n:]
		return n, nil
	}

	_, msg, err := g.conn.ReadMessage()
	if err != nil {
		return 0, err
	}

	n := copy(p, msg)
	if n < len(msg) {
		g.readBuf = msg[n:]
	}
	return n, nil
}

func (g *gorillaRWC) Write(p []byte) (int, error) {
	if err := g.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (g *gorillaRWC) Close() error {
	return g.conn.Close()
}

var _ io.ReadWriteCloser = (*gorillaRWC)(nil)
