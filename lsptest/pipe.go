// Package lsptest provides an in-memory fake transport so protocol-engine
// tests never spawn a real language server process, grounded on the
// stub-server shape original_source's test fixtures imply for
// server/base.py's abstract contract.
package lsptest

import (
	"context"
	"io"
	"net"

	"github.com/observerw/lsp-client/transport"
)

// PipePair returns two connected in-memory transports: Client is handed to
// the code under test (e.g. client.NewBinding), Server is driven directly
// by the test to script frames and assert what was written.
func PipePair() (client transport.Transport, server io.ReadWriteCloser) {
	a, b := net.Pipe()
	return &fakeTransport{conn: a}, b
}

type fakeTransport struct {
	conn net.Conn
}

func (f *fakeTransport) Start(ctx context.Context) (io.ReadWriteCloser, error) {
	return f.conn, nil
}

func (f *fakeTransport) Kill() error {
	return f.conn.Close()
}
