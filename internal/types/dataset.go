package types

import "time"

// DataSet is an ordered sequence of T plus metadata (spec §3). Length is
// set by the producer at acquisition time and never mutated by the
// consumer; metadata is copy-by-value when a set is forwarded.
type DataSet[T any] struct {
	Data       []T
	SampleRate float64
	Timestamp  time.Time
	Metadata   map[string]Value
}

// Resize truncates or extends Data to size, zero-valuing every element
// (retained ones included), and resets the timestamp. Used by TypedBuffer.AcquireWrite
// (spec §4.1) to prepare a write slot for the producer.
func (d *DataSet[T]) Resize(size int) {
	if cap(d.Data) >= size {
		d.Data = d.Data[:size]
		var zero T
		for i := range d.Data {
			d.Data[i] = zero
		}
	} else {
		d.Data = make([]T, size)
	}
	d.Timestamp = time.Time{}
}

// CloneMetadata returns a shallow copy of the metadata map, suitable for
// forwarding onto a derived DataSet without aliasing the source map.
func (d DataSet[T]) CloneMetadata() map[string]Value {
	if d.Metadata == nil {
		return nil
	}
	out := make(map[string]Value, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}
