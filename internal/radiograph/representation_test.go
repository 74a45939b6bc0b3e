package radiograph

import (
	"testing"

	"github.com/radioflow/runtime/internal/types"
	"github.com/stretchr/testify/require"
)

func component(name, engineName string, params ...types.ParameterDescription) types.ComponentDescription {
	return types.ComponentDescription{
		Name:       name,
		Type:       "generic",
		EngineName: engineName,
		Parameters: params,
	}
}

func link(src, srcPort, sink, sinkPort string) types.LinkDescription {
	return types.LinkDescription{
		SourceComponent: src, SourcePort: srcPort,
		SinkComponent: sink, SinkPort: sinkPort,
	}
}

func twoEnginePipeline() *RadioRepresentation {
	phy1 := types.EngineDescription{
		Name: "phyengine1", Kind: types.PhyEngineKind,
		Components: []types.ComponentDescription{
			component("src1", "phyengine1", types.NewParameterDescription("param1", "1")),
			component("fork", "phyengine1"),
		},
	}
	phy2 := types.EngineDescription{
		Name: "phyengine2", Kind: types.PhyEngineKind,
		Components: []types.ComponentDescription{
			component("snk1", "phyengine2"),
			component("snk2", "phyengine2"),
		},
	}
	links := []types.LinkDescription{
		link("src1", "out", "fork", "in"),
		link("fork", "out1", "snk1", "in"),
		link("fork", "out2", "snk2", "in"),
	}
	return New([]types.EngineDescription{phy1, phy2}, nil, links)
}

// TestBuildGraphsEdgeCountInvariant covers Universal Property 4: after a
// successful build, internal edges over all engines plus external edges
// equals the total link count.
func TestBuildGraphsEdgeCountInvariant(t *testing.T) {
	r := twoEnginePipeline()
	require.NoError(t, r.BuildGraphs())

	total := 0
	for _, e := range r.Engines() {
		total += len(e.InternalLinks)
	}
	total += len(r.ExternalLinks())
	require.Equal(t, len(r.AllLinks()), total)
	require.Equal(t, 3, total)
	require.Len(t, r.ExternalLinks(), 2)
}

func TestBuildGraphsFailsOnUnknownComponent(t *testing.T) {
	phy := types.EngineDescription{
		Name: "phyengine1", Kind: types.PhyEngineKind,
		Components: []types.ComponentDescription{component("src1", "phyengine1")},
	}
	r := New([]types.EngineDescription{phy}, nil, []types.LinkDescription{link("src1", "out", "ghost", "in")})
	err := r.BuildGraphs()
	require.Error(t, err)
	require.False(t, r.IsBuilt())
}

func TestEngineTopoOrderRespectsExternalLinks(t *testing.T) {
	r := twoEnginePipeline()
	require.NoError(t, r.BuildGraphs())

	order, err := r.EngineTopoOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"phyengine1", "phyengine2"}, order)
}

func TestComponentTopoOrderWithinEngine(t *testing.T) {
	r := twoEnginePipeline()
	require.NoError(t, r.BuildGraphs())

	order, err := r.ComponentTopoOrder("phyengine1")
	require.NoError(t, err)
	require.Equal(t, []string{"src1", "fork"}, order)
}

// TestReconfigureAppliesBValue covers Universal Property 5: applying the
// diff of Compare(A, B) to A makes every shared parameter equal to B's
// value.
func TestReconfigureAppliesBValue(t *testing.T) {
	a := twoEnginePipeline()
	require.NoError(t, a.BuildGraphs())

	b := twoEnginePipeline()
	for _, eng := range b.engines {
		for i := range eng.Components {
			if eng.Components[i].Name == "src1" {
				eng.Components[i].Parameters[0].Value = "2"
			}
		}
	}
	require.NoError(t, b.BuildGraphs())

	diff := Compare(a, b)
	a.Reconfigure(diff)

	require.Equal(t, "2", a.GetParameterValue("src1", "param1"))
}

// TestScenario3ParametricReconfigDiff implements spec §8 Scenario 3.
func TestScenario3ParametricReconfigDiff(t *testing.T) {
	build := func(value string) *RadioRepresentation {
		phy := types.EngineDescription{
			Name: "phyengine1", Kind: types.PhyEngineKind,
			Components: []types.ComponentDescription{
				component("src1", "phyengine1",
					types.NewParameterDescription("param1", value),
					types.NewParameterDescription("param2", value),
					types.NewParameterDescription("param3", value),
				),
			},
		}
		r := New([]types.EngineDescription{phy}, nil, nil)
		require.NoError(t, r.BuildGraphs())
		return r
	}

	a := build("1")
	b := build("2")

	diff := Compare(a, b)
	require.Len(t, diff.Reconfigs, 3)
	for _, rc := range diff.Reconfigs {
		require.Equal(t, "phyengine1", rc.EngineName)
		require.Equal(t, "src1", rc.ComponentName)
		require.Equal(t, "2", rc.NewValue)
	}
}
