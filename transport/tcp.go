package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/logger"
)

// TCP dials an already-running language server (e.g. behind a proxy
// daemon), adapted from the teacher's ConnectTCP: retry-with-backoff dial,
// keepalive tuning, and localhost→127.0.0.1 rewrite to dodge container DNS
// quirks, generalized onto the Transport contract instead of a bespoke
// *LanguageClient field set.
type TCP struct {
	Host string
	Port int

	MaxAttempts  int
	DialTimeout  time.Duration
	RetryBackoff time.Duration

	conn net.Conn
}

func NewTCP(host string, port int) *TCP {
	return &TCP{
		Host:         host,
		Port:         port,
		MaxAttempts:  5,
		DialTimeout:  10 * time.Second,
		RetryBackoff: 2 * time.Second,
	}
}

func (t *TCP) Start(ctx context.Context) (io.ReadWriteCloser, error) {
	addr := fmt.Sprintf("%s:%d", t.Host, t.Port)
	addr = strings.Replace(addr, "localhost", "127.0.0.1", 1)

	var dialer net.Dialer
	var conn net.Conn
	var err error

	for attempt := 1; attempt <= t.MaxAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, t.DialTimeout)
		conn, err = dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			break
		}
		logger.Warn("tcp dial attempt failed", "addr", addr, "attempt", attempt, "of", t.MaxAttempts, "err", err)
		if attempt < t.MaxAttempts {
			select {
			case <-time.After(t.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, lsperr.New(lsperr.Terminated, "", ctx.Err())
			}
		}
	}
	if err != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("dial %s after %d attempts: %w", addr, t.MaxAttempts, err))
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		_ = tcpConn.SetNoDelay(true)
	}

	logger.Info("tcp connection established", "addr", addr)
	t.conn = conn
	return conn, nil
}

func (t *TCP) Kill() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
