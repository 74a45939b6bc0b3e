package xmlradio

import (
	"testing"

	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
	"github.com/stretchr/testify/require"
)

const sample = `
<softwareradio>
  <controller class="WatchDog">
    <parameter name="Threshold" value="10"/>
  </controller>
  <engine name="Phy1" class="PhyEngine">
    <component name="Src" class="Counter">
      <parameter name="Rate" value="100"/>
      <port name="Out" class="output"/>
    </component>
    <component name="Amp" class="Doubler">
      <port name="In" class="input"/>
      <port name="Out" class="output"/>
    </component>
  </engine>
  <engine name="Stack1" class="StackEngine">
    <component name="Sink" class="Recorder">
      <port name="Top" class="input"/>
    </component>
  </engine>
  <link source="Src.Out" sink="Amp.In"/>
  <link above="Amp.Out" below="Sink.Top"/>
</softwareradio>
`

func TestParseLowercasesAndBuildsDescriptions(t *testing.T) {
	engines, controllers, links, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, controllers, 1)
	require.Equal(t, "watchdog", controllers[0].Type)
	value, ok := controllers[0].Parameter("threshold")
	require.True(t, ok)
	require.Equal(t, "10", value.Value)

	require.Len(t, engines, 2)
	require.Equal(t, "phy1", engines[0].Name)
	require.Equal(t, types.PhyEngineKind, engines[0].Kind)
	require.Equal(t, "stack1", engines[1].Name)
	require.Equal(t, types.StackEngineKind, engines[1].Kind)

	src, ok := engines[0].Component("src")
	require.True(t, ok)
	require.Equal(t, "counter", src.Type)
	require.Equal(t, "phy1", src.EngineName)

	require.Len(t, links, 2)
	require.Equal(t, "src", links[0].SourceComponent)
	require.Equal(t, "out", links[0].SourcePort)
	require.Equal(t, "amp", links[0].SinkComponent)
	require.Equal(t, "in", links[0].SinkPort)

	// Second link uses the above/below synonyms.
	require.Equal(t, "amp", links[1].SourceComponent)
	require.Equal(t, "out", links[1].SourcePort)
	require.Equal(t, "sink", links[1].SinkComponent)
	require.Equal(t, "top", links[1].SinkPort)
}

func TestParseSinkSourceTakePrecedenceOverSynonyms(t *testing.T) {
	doc := `<softwareradio>
	<engine name="e" class="phyengine"><component name="a" class="x"/><component name="b" class="y"/></engine>
	<link source="a.out" sink="b.in" above="wrong.out" below="wrong.in"/>
	</softwareradio>`

	_, _, links, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "a", links[0].SourceComponent)
	require.Equal(t, "b", links[0].SinkComponent)
}

func TestParseUnknownEngineClassFails(t *testing.T) {
	doc := `<softwareradio><engine name="e" class="bogus"/></softwareradio>`
	_, _, _, err := Parse([]byte(doc))
	kind, ok := radioerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, radioerr.XmlParsing, kind)
}

func TestParseMalformedLinkEndpointFails(t *testing.T) {
	doc := `<softwareradio>
	<engine name="e" class="phyengine"><component name="a" class="x"/></engine>
	<link source="nodothere" sink="b.in"/>
	</softwareradio>`
	_, _, _, err := Parse([]byte(doc))
	kind, ok := radioerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, radioerr.XmlParsing, kind)
}
