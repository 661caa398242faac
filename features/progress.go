package features

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/rpc"
)

// ProgressEvent is a normalized view of one $/progress payload, decoded
// from whichever of the begin/report/end shapes the server actually sent.
type ProgressEvent struct {
	TokenKey    string
	Kind        string // begin|report|end|unknown
	Title       string
	Message     string
	Percentage  *uint32
	Cancellable *bool
	Time        time.Time
}

// ProgressSnapshot is what status tooling (the lsp_status MCP tool) reads.
type ProgressSnapshot struct {
	Active        []ProgressEvent
	LastEvent     *ProgressEvent
	LastEventTime time.Time
}

// Progress tracks server-initiated $/progress streams and answers
// window/workDoneProgress/create token registration. Unlike the rest of the
// feature set it carries its own mutable state rather than just issuing
// requests through a Requester, since progress is pushed by the server
// between requests, not pulled by a caller.
type Progress struct {
	mu     sync.RWMutex
	active map[string]ProgressEvent
	last   *ProgressEvent
}

func NewProgress() *Progress {
	return &Progress{active: make(map[string]ProgressEvent)}
}

func (f *Progress) Name() string                  { return "progress" }
func (f *Progress) Category() capability.Category { return capability.CategoryWindow }
func (f *Progress) Methods() []string {
	return []string{"$/progress", "window/workDoneProgress/create"}
}
func (f *Progress) FillClientCaps(c *protocol.ClientCapabilities) {
	if c.Window == nil {
		c.Window = &protocol.WindowClientCapabilities{}
	}
	c.Window.WorkDoneProgress = true
}
func (f *Progress) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }

func (f *Progress) Bind(b *capability.Binder) {
	_ = b.Registry.OnNotification("$/progress", func(ctx context.Context, raw json.RawMessage) {
		var params protocol.ProgressParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return
		}
		f.observe(params)
	})

	_ = b.Registry.OnRequest("window/workDoneProgress/create", func(ctx context.Context, raw json.RawMessage) (any, *rpc.RPCError) {
		var params protocol.WorkDoneProgressCreateParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &rpc.RPCError{Code: rpc.CodeInvalidParams, Message: err.Error()}
		}
		// The token itself needs no bookkeeping here: its lifecycle in
		// Snapshot().Active is driven entirely by the begin/report/end
		// traffic that follows, not by this creation request.
		return map[string]any{}, nil
	})
}

func progressTokenKey(t protocol.ProgressToken) string {
	switch v := t.Value.(type) {
	case int32:
		return fmt.Sprintf("%d", v)
	case string:
		return v
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// observe folds one $/progress notification into the tracker's state. The
// begin/report/end discriminator and payload fields are decoded once into a
// common shape since all three $/progress value kinds share this prefix.
func (f *Progress) observe(params protocol.ProgressParams) {
	now := time.Now()
	key := progressTokenKey(params.Token)

	raw, err := json.Marshal(params.Value)
	if err != nil {
		ev := ProgressEvent{TokenKey: key, Kind: "unknown", Time: now}
		f.mu.Lock()
		f.last = &ev
		f.mu.Unlock()
		return
	}

	var body struct {
		Kind        string  `json:"kind"`
		Title       string  `json:"title,omitempty"`
		Message     string  `json:"message,omitempty"`
		Percentage  *uint32 `json:"percentage,omitempty"`
		Cancellable *bool   `json:"cancellable,omitempty"`
	}
	_ = json.Unmarshal(raw, &body)

	ev := ProgressEvent{
		TokenKey:    key,
		Kind:        body.Kind,
		Title:       body.Title,
		Message:     body.Message,
		Percentage:  body.Percentage,
		Cancellable: body.Cancellable,
		Time:        now,
	}
	if ev.Kind == "" {
		ev.Kind = "unknown"
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = &ev
	switch ev.Kind {
	case "begin", "report":
		f.active[key] = ev
	case "end":
		delete(f.active, key)
	default:
		if _, ok := f.active[key]; ok {
			f.active[key] = ev
		}
	}
}

// Snapshot returns the current progress state, per the status-tooling
// requirement that in-flight server progress be queryable outside the
// notification stream itself.
func (f *Progress) Snapshot() ProgressSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	active := make([]ProgressEvent, 0, len(f.active))
	for _, ev := range f.active {
		active = append(active, ev)
	}

	var lastCopy *ProgressEvent
	var lastTime time.Time
	if f.last != nil {
		tmp := *f.last
		lastCopy = &tmp
		lastTime = tmp.Time
	}

	return ProgressSnapshot{
		Active:        active,
		LastEvent:     lastCopy,
		LastEventTime: lastTime,
	}
}
