package stackengine

import (
	"testing"
	"time"

	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/rendezvous"
	"github.com/radioflow/runtime/internal/types"
	"github.com/stretchr/testify/require"
)

// echoLayer appends its tag byte as a one-byte trailer on the way down
// and strips the last byte on the way up, so a round trip through N
// layers is verifiable by byte length and content.
type echoLayer struct {
	name     string
	tag      byte
	lastDown *types.StackDataSet
	lastUp   *types.StackDataSet
}

func (e *echoLayer) Name() string { return e.name }
func (e *echoLayer) Ports() []types.Port {
	return []types.Port{
		{Name: "top", Direction: types.PortInput},
		{Name: "bottom", Direction: types.PortInput},
	}
}
func (e *echoLayer) ParameterSpecs() []types.ParameterSpec { return nil }
func (e *echoLayer) Events() []string                      { return nil }
func (e *echoLayer) Initialize(params *component.ParameterTable, events component.EventSink) error {
	return nil
}
func (e *echoLayer) HandleFromAbove(msg *types.StackDataSet) (*types.StackDataSet, error) {
	e.lastDown = msg
	out := types.NewStackDataSet(types.FromAbove, append(append([]byte{}, msg.Bytes()...), e.tag))
	return out, nil
}
func (e *echoLayer) HandleFromBelow(msg *types.StackDataSet) (*types.StackDataSet, error) {
	e.lastUp = msg
	b := msg.Bytes()
	if len(b) == 0 {
		return nil, nil
	}
	out := types.NewStackDataSet(types.FromBelow, b[:len(b)-1])
	return out, nil
}
func (e *echoLayer) ParameterChanged(name string) {}
func (e *echoLayer) Stop()                        {}

type inlineLibrary struct {
	create func(name string) (any, error)
}

func (l *inlineLibrary) APIVersion() string              { return pluginhost.HostAPIVersion }
func (l *inlineLibrary) Create(name string) (any, error) { return l.create(name) }
func (l *inlineLibrary) Release(v any)                   {}

func registerLayer(t *testing.T, reg *pluginhost.Registry, stem string, tag byte) {
	t.Helper()
	require.NoError(t, reg.Register(stem, func() (pluginhost.Library, error) {
		return &inlineLibrary{create: func(name string) (any, error) {
			return &echoLayer{name: name, tag: tag}, nil
		}}, nil
	}))
}

// TestStackEngineForwardsMessageDown wires a's bottom port to b's top
// port, pushes a message into a's top inbox, and checks that a forwards
// it down so it reaches b's HandleFromAbove.
func TestStackEngineForwardsMessageDown(t *testing.T) {
	reg := pluginhost.NewRegistry()
	registerLayer(t, reg, "layerA", 0xAA)
	registerLayer(t, reg, "layerB", 0xBB)
	host := pluginhost.NewHost(pluginhost.NewRepository(), reg)

	desc := types.EngineDescription{
		Name: "stack1", Kind: types.StackEngineKind,
		Components: []types.ComponentDescription{
			{Name: "a", Type: "layerA"},
			{Name: "b", Type: "layerB"},
		},
	}
	links := []types.LinkDescription{
		{SourceComponent: "a", SourcePort: "bottom", SinkComponent: "b", SinkPort: "top"},
	}

	token := cancel.New()
	engine, outgoing, err := New(desc, links, host, nil, token, nil, nil)
	require.NoError(t, err)
	require.Empty(t, outgoing)

	engine.Start()
	defer engine.Stop()

	a := engine.components["a"]
	msg := types.NewStackDataSet(types.FromAbove, []byte{0x01})
	require.True(t, a.inboxes["top"].Push(msg))

	b := engine.components["b"]
	require.Eventually(t, func() bool {
		return b.lastDownSeen()
	}, time.Second, time.Millisecond)
}

func (cr *componentRuntime) lastDownSeen() bool {
	layer, ok := cr.impl.(*echoLayer)
	return ok && layer.lastDown != nil
}

// TestStackEnginePostCommandReleasesWaiter implements the rendezvous
// command-delivery contract at the engine boundary (spec §4.5 Commands).
func TestStackEnginePostCommandReleasesWaiter(t *testing.T) {
	reg := pluginhost.NewRegistry()
	registerLayer(t, reg, "layerA", 0xAA)
	host := pluginhost.NewHost(pluginhost.NewRepository(), reg)

	desc := types.EngineDescription{
		Name: "stack1", Kind: types.StackEngineKind,
		Components: []types.ComponentDescription{{Name: "a", Type: "layerA"}},
	}
	token := cancel.New()
	engine, _, err := New(desc, nil, host, nil, token, nil, nil)
	require.NoError(t, err)
	engine.Start()
	defer engine.Stop()

	cr := engine.components["a"]
	done := make(chan rendezvous.Message, 1)
	go func() {
		msg, ok := cr.rendez.Trap(noopLocker{}, "ping", token)
		if ok {
			done <- msg
		}
	}()

	require.Eventually(t, func() bool { return cr.rendez.Size() == 1 }, time.Second, time.Millisecond)
	engine.PostCommand("a", rendezvous.Message{Name: "ping", Payload: 7})

	select {
	case msg := <-done:
		require.Equal(t, 7, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("command was never delivered")
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// TestStackEngineOutTranslatorBridgesExternalBuffer implements the
// boundary-crossing half of spec §4.5 Translators: a component's outbound
// message surfaces as u8 bytes on the external TypedBuffer.
func TestStackEngineOutTranslatorBridgesExternalBuffer(t *testing.T) {
	reg := pluginhost.NewRegistry()
	registerLayer(t, reg, "layerA", 0xAA)
	host := pluginhost.NewHost(pluginhost.NewRepository(), reg)

	desc := types.EngineDescription{
		Name: "stack1", Kind: types.StackEngineKind,
		Components: []types.ComponentDescription{{Name: "a", Type: "layerA"}},
	}
	links := []types.LinkDescription{
		{SourceComponent: "a", SourcePort: "bottom", SourceEngine: "stack1", SinkComponent: "peer", SinkPort: "top", SinkEngine: "stack2"},
	}
	token := cancel.New()
	engine, outgoing, err := New(desc, links, host, nil, token, nil, nil)
	require.NoError(t, err)
	extBuf, ok := outgoing[types.PortRef{Component: "a", Port: "bottom"}]
	require.True(t, ok)
	require.Equal(t, types.TypeU8, extBuf.ElementType())

	engine.Start()
	defer engine.Stop()

	a := engine.components["a"]
	require.True(t, a.inboxes["top"].Push(types.NewStackDataSet(types.FromAbove, []byte{0x10})))

	rd, err := extBuf.AcquireRead()
	require.NoError(t, err)
	require.Equal(t, []float64{0x10, float64(0xAA)}, rd.Real())
	require.NoError(t, extBuf.ReleaseRead())
}
