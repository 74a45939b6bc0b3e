package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoerceRoundTrip(t *testing.T) {
	cases := []struct {
		kind TypeID
		raw  string
	}{
		{TypeU8, "255"},
		{TypeI64, "-42"},
		{TypeF64, "3.25"},
		{TypeComplexF64, "1.5,-2.5"},
		{TypeString, "hello"},
		{TypeBool, "true"},
	}
	for _, c := range cases {
		v, err := Coerce(c.raw, c.kind)
		require.NoError(t, err, c.raw)
		require.Equal(t, c.kind, v.Kind)
	}
}

func TestCoerceInvalid(t *testing.T) {
	_, err := Coerce("not-a-number", TypeI32)
	require.Error(t, err)
}

func TestIsBufferType(t *testing.T) {
	require.True(t, TypeComplexF80.IsBufferType())
	require.False(t, TypeBool.IsBufferType())
	require.False(t, TypeString.IsBufferType())
}

func TestParseTypeIDRoundTrip(t *testing.T) {
	for _, name := range []string{"u8", "i32", "f64", "cf32", "bool", "string"} {
		id, ok := ParseTypeID(name)
		require.True(t, ok, name)
		require.Equal(t, name, id.String())
	}
	_, ok := ParseTypeID("nonsense")
	require.False(t, ok)
}
