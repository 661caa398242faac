// Package transport supplies the concrete duplex-stream collaborators the
// protocol engine drives: a spawned host process (stdio, the in-scope
// default), a TCP dial, and a WebSocket dial. All three satisfy the same
// Transport contract so a pool binding can be built from any of them
// interchangeably.
package transport

import (
	"context"
	"io"
)

// Transport is the contract the core consumes to obtain a duplex byte
// stream to a language server, per SPEC_FULL.md §6.
type Transport interface {
	// Start launches or connects to the server and returns its duplex
	// stream. Start must be safe to call exactly once per Transport value.
	Start(ctx context.Context) (io.ReadWriteCloser, error)

	// Kill forcibly and idempotently terminates the underlying peer.
	Kill() error
}

// PathTranslator is implemented by transports whose server-side filesystem
// view differs from the host's (e.g. a container runtime); uri.PathMapper
// implements it. Nothing in the session, pool or binding calls these
// methods: URIs travel to and from the server untranslated.
type PathTranslator interface {
	TranslatePathIn(hostPath string) string
	TranslatePathOut(serverPath string) string
}

// rwc joins a Reader and a WriteCloser into a single io.ReadWriteCloser,
// used by the stdio transport to combine a process's stdout/stdin pipes.
type rwc struct {
	io.Reader
	io.WriteCloser
}

func joinRWC(r io.Reader, w io.WriteCloser) io.ReadWriteCloser {
	return rwc{Reader: r, WriteCloser: w}
}
