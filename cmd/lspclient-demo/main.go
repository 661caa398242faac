// Command lspclient-demo wires the core into a runnable MCP server: it
// spawns a language server over stdio, negotiates a fixed feature surface
// with it, watches the current directory for filesystem changes, and
// exposes whatever the server actually validated as MCP tools over its own
// stdio. It exists purely as a library usage example, not a product.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/features"
	"github.com/observerw/lsp-client/logger"
	"github.com/observerw/lsp-client/mcptools"
	"github.com/observerw/lsp-client/session"
	"github.com/observerw/lsp-client/transport"
	"github.com/observerw/lsp-client/uri"
	"github.com/observerw/lsp-client/watch"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lspclient-demo <language-server-command> [args...]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args[0], args[1:]); err != nil {
		logger.Error("lspclient-demo exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, serverArgs []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	rootURI := uri.FromPath(cwd)

	progress := features.NewProgress()
	composer := capability.New(
		features.Hover{},
		features.Definition{},
		features.References{},
		features.DocumentSymbols{},
		features.WorkspaceSymbols{},
		features.CallHierarchy{},
		features.Formatting{},
		features.RangeFormatting{},
		&features.Rename{},
		features.ExecuteCommand{},
		features.Diagnostics{},
		features.NewPublishedDiagnostics(func(p protocol.PublishDiagnosticsParams) {
			logger.Info("diagnostics published", "uri", string(p.Uri), "count", len(p.Diagnostics))
		}),
		features.FoldingRange{},
		features.SelectionRange{},
		features.DocumentLink{},
		features.DocumentColor{},
		features.NewWorkspaceFolders([]protocol.WorkspaceFolder{{Uri: protocol.URI(rootURI), Name: cwd}}),
		features.WatchedFiles{},
		features.NewWindowMessages(nil, nil, nil),
		progress,
	)

	tr := transport.NewStdio(command, serverArgs...)
	sess, err := session.New(ctx, []transport.Transport{tr}, composer)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), session.ShutdownGrace)
		defer cancel()
		if err := sess.Shutdown(shutdownCtx); err != nil {
			logger.Warn("session shutdown returned error", "error", err)
		}
	}()

	watcher, err := watch.New(sess, watch.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := watcher.Add(cwd); err != nil {
		return fmt.Errorf("watch %s: %w", cwd, err)
	}
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go watcher.Run(watchCtx)

	mcpServer := server.NewMCPServer("lspclient-demo", "0.1.0")
	mcptools.Register(mcpServer, sess, progress)

	logger.Info("lspclient-demo ready", "root", cwd, "startedAt", time.Now().Format(time.RFC3339))
	return server.ServeStdio(mcpServer)
}
