package rpc

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/observerw/lsp-client/lsperr"
)

// Framer reads and writes LSP header-framed messages on a duplex stream.
// It is the concrete realization of the Frame Codec component, built the
// way the teacher's tcp_client.go and websocket_client.go wire a
// jsonrpc2.VSCodeObjectCodec over jsonrpc2.NewBufferedStream — reused here
// directly rather than duplicated, but at the ObjectStream level only: this
// repo's own Pending Table (client package) owns request/response
// correlation, so the codec is used purely for header framing and JSON
// encoding, never through jsonrpc2.Conn's own id management.
type Framer struct {
	stream jsonrpc2.ObjectStream
}

func NewFramer(rwc io.ReadWriteCloser) *Framer {
	return &Framer{stream: jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})}
}

// ReadFrame blocks until a full frame is available, returning the raw JSON
// body bytes for Decode. Returns io.EOF on clean stream termination.
func (f *Framer) ReadFrame() ([]byte, error) {
	var raw json.RawMessage
	if err := f.stream.ReadObject(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, lsperr.New(lsperr.FramingError, "", fmt.Errorf("read frame: %w", err))
	}
	return raw, nil
}

// WriteFrame writes one already-encoded message body.
func (f *Framer) WriteFrame(body []byte) error {
	if err := f.stream.WriteObject(json.RawMessage(body)); err != nil {
		return lsperr.New(lsperr.FramingError, "", fmt.Errorf("write frame: %w", err))
	}
	return nil
}

func (f *Framer) Close() error {
	return f.stream.Close()
}
