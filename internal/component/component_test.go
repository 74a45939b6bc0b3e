package component

import (
	"testing"

	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
	"github.com/stretchr/testify/require"
)

type fakePhy struct{ name string }

func (f *fakePhy) Name() string                          { return f.name }
func (f *fakePhy) Ports() []types.Port                   { return nil }
func (f *fakePhy) ParameterSpecs() []types.ParameterSpec { return nil }
func (f *fakePhy) Events() []string                      { return nil }
func (f *fakePhy) ComputeOutputTypes(in []types.TypeID) ([]types.TypeID, error) {
	return in, nil
}
func (f *fakePhy) Specialize(in []types.TypeID) (Phy, error) { return f, nil }
func (f *fakePhy) Initialize(inputs, outputs []buffer.AnyBuffer, params *ParameterTable, events EventSink) error {
	return nil
}
func (f *fakePhy) Process() error { return nil }
func (f *fakePhy) Stop()          {}

func TestParameterTableDefaultsAndSet(t *testing.T) {
	gain, err := types.NewAllowListSpec("gain", "", "5", true, types.TypeI32,
		[]types.Value{types.IntValue(types.TypeI32, 5), types.IntValue(types.TypeI32, 10)})
	require.NoError(t, err)

	table, err := NewParameterTable([]types.ParameterSpec{gain})
	require.NoError(t, err)

	v, ok := table.Get("gain")
	require.True(t, ok)
	require.Equal(t, int64(5), v.Int())

	_, err = table.Set("gain", "7")
	require.Error(t, err)

	v, err = table.Set("GAIN", "10")
	require.NoError(t, err)
	require.Equal(t, int64(10), v.Int())

	_, err = table.Set("missing", "1")
	kind, ok := radioerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, radioerr.ParameterNotFound, kind)
}

func TestParameterTableSnapshot(t *testing.T) {
	spec := types.NewUnconstrainedSpec("label", "", "hello", false, types.TypeString)
	table, err := NewParameterTable([]types.ParameterSpec{spec})
	require.NoError(t, err)

	snap := table.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "label", snap[0].Name)
	require.Equal(t, "hello", snap[0].Value)
}

func TestWrapPhyAndStackAreMutuallyExclusive(t *testing.T) {
	any := WrapPhy(&fakePhy{name: "src"})
	require.Equal(t, KindPhy, any.Kind())
	_, ok := any.Stack()
	require.False(t, ok)
	p, ok := any.Phy()
	require.True(t, ok)
	require.Equal(t, "src", p.Name())
	require.Equal(t, "src", any.Name())
}
