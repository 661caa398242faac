package capability

import (
	"fmt"
	"sort"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/client"
	"github.com/observerw/lsp-client/lsperr"
)

// Composer assembles a set of Features into a ClientCapabilities payload,
// then validates and binds them against a ServerCapabilities response.
type Composer struct {
	features []Feature
}

// New builds a Composer over the given feature set. Declaration order
// (the order features appear in this slice) is the tiebreaker within a
// Category, per §4.G step 2.
func New(features ...Feature) *Composer {
	return &Composer{features: append([]Feature(nil), features...)}
}

// orderedFeatures returns features sorted by Category then original
// declaration order (a stable sort preserves declaration order within a
// category).
func (c *Composer) orderedFeatures() []Feature {
	ordered := append([]Feature(nil), c.features...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Category() < ordered[j].Category()
	})
	return ordered
}

// BuildClientCapabilities runs FillClientCaps over every feature in
// topological order, producing the capabilities payload for initialize.
func (c *Composer) BuildClientCapabilities() *protocol.ClientCapabilities {
	caps := &protocol.ClientCapabilities{}
	for _, f := range c.orderedFeatures() {
		f.FillClientCaps(caps)
	}
	return caps
}

// Surface is the result of validating features against a server's reported
// capabilities: the subset that passed, keyed by name, plus the rejects for
// diagnostics.
type Surface struct {
	Validated map[string]Feature
	Rejected  map[string]error
}

// Validate runs CheckServerCaps for every feature. Per §4.G step 4, any
// rejection is fatal to the whole session — Validate returns the first
// CapabilityUnsupported error encountered (in the composer's category, then
// declaration, order) alongside
// the partial surface for diagnostics, and the caller (session package)
// must treat any non-nil error as fatal, not a partial-availability signal.
func (c *Composer) Validate(serverCaps *protocol.ServerCapabilities) (*Surface, error) {
	surface := &Surface{
		Validated: make(map[string]Feature),
		Rejected:  make(map[string]error),
	}

	var firstErr error
	for _, f := range c.orderedFeatures() {
		if err := f.CheckServerCaps(serverCaps); err != nil {
			wrapped := lsperr.NewFeature(lsperr.CapabilityUnsupported, f.Name(), firstMethod(f), err)
			surface.Rejected[f.Name()] = wrapped
			if firstErr == nil {
				firstErr = wrapped
			}
			continue
		}
		surface.Validated[f.Name()] = f
	}

	if firstErr != nil {
		return surface, firstErr
	}
	return surface, nil
}

// Bind installs handlers/operations for every validated feature onto the
// registry. Only call after Validate succeeds.
func (c *Composer) Bind(surface *Surface, registry *client.Registry) {
	binder := &Binder{Registry: registry}
	for _, f := range c.orderedFeatures() {
		if _, ok := surface.Validated[f.Name()]; ok {
			f.Bind(binder)
		}
	}
}

// Feature looks up a validated feature by name, returning
// CapabilityUnsupported if it was never registered or failed validation —
// this is the "unreachable operation surface" enforcement point for
// dynamically-typed-style dispatch (§4.G step 5, §8.4).
func (s *Surface) Feature(name string) (Feature, error) {
	f, ok := s.Validated[name]
	if !ok {
		return nil, lsperr.NewFeature(lsperr.CapabilityUnsupported, name, "", fmt.Errorf("feature %q was not validated for this session", name))
	}
	return f, nil
}

func firstMethod(f Feature) string {
	methods := f.Methods()
	if len(methods) == 0 {
		return ""
	}
	return methods[0]
}
