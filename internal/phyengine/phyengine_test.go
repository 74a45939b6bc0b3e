package phyengine

import (
	"sync"
	"testing"
	"time"

	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/radiograph"
	"github.com/radioflow/runtime/internal/types"
	"github.com/stretchr/testify/require"
)

// transformPhy is a single-input, single-output test component that applies
// a transform function to every sample it forwards.
type transformPhy struct {
	name      string
	transform func(float64) float64
	in, out   buffer.AnyBuffer
}

func (t *transformPhy) Name() string { return t.name }
func (t *transformPhy) Ports() []types.Port {
	return []types.Port{
		{Name: "in", Direction: types.PortInput, AcceptedTypes: []types.TypeID{types.TypeI32}},
		{Name: "out", Direction: types.PortOutput, AcceptedTypes: []types.TypeID{types.TypeI32}},
	}
}
func (t *transformPhy) ParameterSpecs() []types.ParameterSpec { return nil }
func (t *transformPhy) Events() []string                      { return nil }
func (t *transformPhy) ComputeOutputTypes(in []types.TypeID) ([]types.TypeID, error) {
	return []types.TypeID{in[0]}, nil
}
func (t *transformPhy) Specialize(in []types.TypeID) (component.Phy, error) { return t, nil }
func (t *transformPhy) Initialize(inputs, outputs []buffer.AnyBuffer, params *component.ParameterTable, events component.EventSink) error {
	t.in, t.out = inputs[0], outputs[0]
	return nil
}
func (t *transformPhy) Process() error {
	rd, err := t.in.AcquireRead()
	if err != nil {
		return err
	}
	values := rd.Real()
	sampleRate := rd.SampleRate()
	if err := t.in.ReleaseRead(); err != nil {
		return err
	}

	wr, err := t.out.AcquireWrite(len(values))
	if err != nil {
		return err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = t.transform(v)
	}
	wr.SetReal(out)
	wr.SetSampleRate(sampleRate)
	return t.out.ReleaseWrite()
}
func (t *transformPhy) Stop() {}

// sinkPhy has one input and no outputs; it accumulates every value it sees.
type sinkPhy struct {
	name string
	in   buffer.AnyBuffer
	mu   *sync.Mutex
	seen *[]float64
}

func (s *sinkPhy) Name() string { return s.name }
func (s *sinkPhy) Ports() []types.Port {
	return []types.Port{{Name: "in", Direction: types.PortInput, AcceptedTypes: []types.TypeID{types.TypeI32}}}
}
func (s *sinkPhy) ParameterSpecs() []types.ParameterSpec { return nil }
func (s *sinkPhy) Events() []string                      { return nil }
func (s *sinkPhy) ComputeOutputTypes(in []types.TypeID) ([]types.TypeID, error) { return nil, nil }
func (s *sinkPhy) Specialize(in []types.TypeID) (component.Phy, error)          { return s, nil }
func (s *sinkPhy) Initialize(inputs, outputs []buffer.AnyBuffer, params *component.ParameterTable, events component.EventSink) error {
	s.in = inputs[0]
	return nil
}
func (s *sinkPhy) Process() error {
	rd, err := s.in.AcquireRead()
	if err != nil {
		return err
	}
	values := rd.Real()
	if err := s.in.ReleaseRead(); err != nil {
		return err
	}
	s.mu.Lock()
	*s.seen = append(*s.seen, values...)
	s.mu.Unlock()
	return nil
}
func (s *sinkPhy) Stop() {}

func registerStem[T component.Phy](t *testing.T, reg *pluginhost.Registry, stem string, build func(name string) T) {
	t.Helper()
	require.NoError(t, reg.Register(stem, func() (pluginhost.Library, error) {
		return &inlineLibrary{create: func(name string) (any, error) { return build(name), nil }}, nil
	}))
}

type inlineLibrary struct {
	create func(name string) (any, error)
}

func (l *inlineLibrary) APIVersion() string                  { return pluginhost.HostAPIVersion }
func (l *inlineLibrary) Create(name string) (any, error)     { return l.create(name) }
func (l *inlineLibrary) Release(v any)                       {}

// TestMinimalPhyPipeline implements spec §8 Scenario 1: an external
// producer feeds a three-component chain (passthrough -> doubling ->
// sink), and every value makes it through doubled.
func TestMinimalPhyPipeline(t *testing.T) {
	reg := pluginhost.NewRegistry()
	registerStem(t, reg, "passthrough", func(name string) component.Phy {
		return &transformPhy{name: name, transform: func(v float64) float64 { return v }}
	})
	registerStem(t, reg, "doubler", func(name string) component.Phy {
		return &transformPhy{name: name, transform: func(v float64) float64 { return v * 2 }}
	})
	var mu sync.Mutex
	var seen []float64
	registerStem(t, reg, "sink", func(name string) component.Phy {
		return &sinkPhy{name: name, mu: &mu, seen: &seen}
	})
	host := pluginhost.NewHost(pluginhost.NewRepository(), reg)

	desc := types.EngineDescription{
		Name: "phy1", Kind: types.PhyEngineKind,
		Components: []types.ComponentDescription{
			{Name: "src", Type: "passthrough"},
			{Name: "amp", Type: "doubler"},
			{Name: "snk", Type: "sink"},
		},
		InternalLinks: []types.LinkDescription{
			{SourceComponent: "src", SourcePort: "out", SinkComponent: "amp", SinkPort: "in"},
			{SourceComponent: "amp", SourcePort: "out", SinkComponent: "snk", SinkPort: "in"},
		},
	}

	token := cancel.New()
	inBuf, err := buffer.NewAnyTypedBuffer(types.TypeI32, 4, token)
	require.NoError(t, err)
	incoming := map[types.PortRef]buffer.AnyBuffer{{Component: "src", Port: "in"}: inBuf}

	engine, outgoing, err := New(desc, []string{"src", "amp", "snk"}, host, incoming, token, nil, nil)
	require.NoError(t, err)
	require.Empty(t, outgoing)

	engine.Start()

	for v := 1; v <= 3; v++ {
		wr, err := inBuf.AcquireWrite(1)
		require.NoError(t, err)
		wr.SetReal([]float64{float64(v)})
		require.NoError(t, inBuf.ReleaseWrite())
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, time.Second, time.Millisecond)

	engine.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []float64{2, 4, 6}, seen)
}

// TestUnlinkedOutputBecomesExternal checks that an output port with no
// internal downstream link is handed back as an external output buffer,
// and that data written to the engine's input comes out of it.
func TestUnlinkedOutputBecomesExternal(t *testing.T) {
	reg := pluginhost.NewRegistry()
	registerStem(t, reg, "passthrough", func(name string) component.Phy {
		return &transformPhy{name: name, transform: func(v float64) float64 { return v }}
	})
	host := pluginhost.NewHost(pluginhost.NewRepository(), reg)

	desc := types.EngineDescription{
		Name: "phy1", Kind: types.PhyEngineKind,
		Components: []types.ComponentDescription{
			{Name: "src", Type: "passthrough"},
		},
	}
	token := cancel.New()
	inBuf, err := buffer.NewAnyTypedBuffer(types.TypeI32, 4, token)
	require.NoError(t, err)
	incoming := map[types.PortRef]buffer.AnyBuffer{{Component: "src", Port: "in"}: inBuf}

	engine, outgoing, err := New(desc, []string{"src"}, host, incoming, token, nil, nil)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	out, ok := outgoing[types.PortRef{Component: "src", Port: "out"}]
	require.True(t, ok)

	engine.Start()
	wr, err := inBuf.AcquireWrite(1)
	require.NoError(t, err)
	wr.SetReal([]float64{42})
	require.NoError(t, inBuf.ReleaseWrite())

	rd, err := out.AcquireRead()
	require.NoError(t, err)
	require.Equal(t, []float64{42}, rd.Real())
	require.NoError(t, out.ReleaseRead())

	engine.Stop()
}

// TestBuildGraphsTopoOrderFeedsConstruction cross-checks that the order
// phyengine.New expects matches what radiograph.ComponentTopoOrder would
// hand it for this chain.
func TestBuildGraphsTopoOrderFeedsConstruction(t *testing.T) {
	phy := types.EngineDescription{
		Name: "phy1", Kind: types.PhyEngineKind,
		Components: []types.ComponentDescription{
			{Name: "src", Type: "passthrough"},
			{Name: "amp", Type: "doubler"},
			{Name: "snk", Type: "sink"},
		},
	}
	links := []types.LinkDescription{
		{SourceComponent: "src", SourcePort: "out", SinkComponent: "amp", SinkPort: "in"},
		{SourceComponent: "amp", SourcePort: "out", SinkComponent: "snk", SinkPort: "in"},
	}
	r := radiograph.New([]types.EngineDescription{phy}, nil, links)
	require.NoError(t, r.BuildGraphs())

	order, err := r.ComponentTopoOrder("phy1")
	require.NoError(t, err)
	require.Equal(t, []string{"src", "amp", "snk"}, order)
}
