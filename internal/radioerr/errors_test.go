package radioerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := New(ParameterOutOfRange, "set", errors.New("value 3 not allowed"))
	require.True(t, errors.Is(err, ParameterOutOfRange))
	require.False(t, errors.Is(err, InvalidDataType))
}

func TestKindOf(t *testing.T) {
	err := Newf(ApiVersionMismatch, "load", "want %s got %s", "1.0", "2.0")
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ApiVersionMismatch, kind)

	_, ok = KindOf(errors.New("plain"))
	require.False(t, ok)
}
