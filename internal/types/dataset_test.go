package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDataSetResizeZeroesRetainedElements(t *testing.T) {
	ds := DataSet[int32]{Data: []int32{1, 2, 3}, Timestamp: time.Now()}
	ds.Resize(2)
	require.Equal(t, []int32{0, 0}, ds.Data)
	require.True(t, ds.Timestamp.IsZero())
}

func TestDataSetCloneMetadataIsIndependent(t *testing.T) {
	ds := DataSet[int32]{Metadata: map[string]Value{"gain": FloatValue(TypeF64, 1.0)}}
	clone := ds.CloneMetadata()
	clone["gain"] = FloatValue(TypeF64, 2.0)
	require.Equal(t, 1.0, ds.Metadata["gain"].Float())
}
