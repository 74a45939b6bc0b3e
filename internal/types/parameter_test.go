package types

import (
	"errors"
	"testing"

	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/stretchr/testify/require"
)

// TestScenario4ParameterValidation implements spec §8 Scenario 4.
func TestScenario4ParameterValidation(t *testing.T) {
	allowed := []Value{
		IntValue(TypeI32, 0),
		IntValue(TypeI32, 5),
		IntValue(TypeI32, 7),
		IntValue(TypeI32, 9),
	}
	spec, err := NewAllowListSpec("number", "a constrained int", "0", true, TypeI32, allowed)
	require.NoError(t, err)

	_, err = spec.Validate("3")
	require.True(t, errors.Is(err, radioerr.ParameterOutOfRange))

	v, err := spec.Validate("5")
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int())

	_, err = spec.Validate("4.3")
	require.True(t, errors.Is(err, radioerr.InvalidDataType))

	v, err = spec.Validate("5")
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int())

	rangeSpec := NewIntervalSpec("range", "a float range", "1", true, TypeF64,
		FloatValue(TypeF64, 0), FloatValue(TypeF64, 10), nil)
	_, err = rangeSpec.Validate("-0.5")
	require.True(t, errors.Is(err, radioerr.ParameterOutOfRange))

	v, err = rangeSpec.Validate("5.5")
	require.NoError(t, err)
	require.InDelta(t, 5.5, v.Float(), 1e-9)
}

func TestEmptyAllowListRejectedAtRegistration(t *testing.T) {
	_, err := NewAllowListSpec("x", "", "0", false, TypeI32, nil)
	require.Error(t, err)
}

func TestBooleanCoercionSynonyms(t *testing.T) {
	spec := NewUnconstrainedSpec("flag", "", "false", true, TypeBool)

	for _, s := range []string{"yes", "true", "on", "1"} {
		v, err := spec.Validate(s)
		require.NoError(t, err, s)
		require.True(t, v.Bool(), s)
	}
	for _, s := range []string{"no", "false", "off", "0"} {
		v, err := spec.Validate(s)
		require.NoError(t, err, s)
		require.False(t, v.Bool(), s)
	}

	_, err := spec.Validate("maybe")
	require.True(t, errors.Is(err, radioerr.InvalidDataType))
}

func TestStringParameterUnconstrained(t *testing.T) {
	spec := NewUnconstrainedSpec("label", "", "", false, TypeString)
	v, err := spec.Validate("anything goes")
	require.NoError(t, err)
	require.Equal(t, "anything goes", v.String())
}

func TestIntervalStep(t *testing.T) {
	step := IntValue(TypeI32, 2)
	spec := NewIntervalSpec("even", "", "0", true, TypeI32, IntValue(TypeI32, 0), IntValue(TypeI32, 10), &step)

	_, err := spec.Validate("3")
	require.True(t, errors.Is(err, radioerr.ParameterOutOfRange))

	v, err := spec.Validate("4")
	require.NoError(t, err)
	require.Equal(t, int64(4), v.Int())
}
