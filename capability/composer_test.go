package capability

import (
	"errors"
	"testing"

	"github.com/myleshyson/lsprotocol-go/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeature struct {
	name     string
	category Category
	methods  []string
	fill     func(*protocol.ClientCapabilities)
	check    func(*protocol.ServerCapabilities) error
	bound    *bool
}

func (f *fakeFeature) Name() string          { return f.name }
func (f *fakeFeature) Category() Category    { return f.category }
func (f *fakeFeature) Methods() []string     { return f.methods }
func (f *fakeFeature) FillClientCaps(c *protocol.ClientCapabilities) {
	if f.fill != nil {
		f.fill(c)
	}
}
func (f *fakeFeature) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if f.check != nil {
		return f.check(c)
	}
	return nil
}
func (f *fakeFeature) Bind(b *Binder) {
	if f.bound != nil {
		*f.bound = true
	}
}

func TestComposerFillOrdersByCategoryThenDeclaration(t *testing.T) {
	var order []string
	mk := func(name string, cat Category) *fakeFeature {
		return &fakeFeature{name: name, category: cat, fill: func(*protocol.ClientCapabilities) {
			order = append(order, name)
		}}
	}

	c := New(
		mk("workspaceA", CategoryWorkspace),
		mk("general", CategoryGeneral),
		mk("workspaceB", CategoryWorkspace),
		mk("textDoc", CategoryTextDocument),
	)
	c.BuildClientCapabilities()

	assert.Equal(t, []string{"general", "textDoc", "workspaceA", "workspaceB"}, order)
}

func TestComposerValidateRejectsAndSurfacesFatalError(t *testing.T) {
	ok := &fakeFeature{name: "hover", methods: []string{"textDocument/hover"}}
	rejected := &fakeFeature{
		name:    "rename",
		methods: []string{"textDocument/rename"},
		check:   func(*protocol.ServerCapabilities) error { return errors.New("not supported") },
	}

	c := New(ok, rejected)
	surface, err := c.Validate(&protocol.ServerCapabilities{})

	require.Error(t, err)
	assert.Contains(t, surface.Validated, "hover")
	assert.NotContains(t, surface.Validated, "rename")
	assert.Contains(t, surface.Rejected, "rename")
}

func TestSurfaceFeatureUnreachableWhenNotValidated(t *testing.T) {
	surface := &Surface{Validated: map[string]Feature{}, Rejected: map[string]error{}}
	_, err := surface.Feature("textDocument/rename")
	assert.Error(t, err)
}

func TestComposerBindOnlyCallsValidatedFeatures(t *testing.T) {
	var okBound, rejectedBound bool
	ok := &fakeFeature{name: "hover", bound: &okBound}
	rejected := &fakeFeature{
		name:  "rename",
		bound: &rejectedBound,
		check: func(*protocol.ServerCapabilities) error { return errors.New("nope") },
	}

	c := New(ok, rejected)
	surface, _ := c.Validate(&protocol.ServerCapabilities{})
	c.Bind(surface, nil)

	assert.True(t, okBound)
	assert.False(t, rejectedBound)
}
