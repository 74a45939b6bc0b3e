package buffer

import (
	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

// AnyDataSet is the type-erased view of a DataSet[T] a component's process
// step works against once the concrete element type is only known at
// graph-build time (spec §9 "Dynamic dispatch"). Real element types report
// an all-zero Imag; Imag is only meaningful for complex element types.
type AnyDataSet interface {
	Len() int
	SampleRate() float64
	SetSampleRate(v float64)
	Metadata() map[string]types.Value
	SetMetadata(m map[string]types.Value)
	Real() []float64
	SetReal(v []float64)
	Imag() []float64
	SetImag(v []float64)
}

// AnyBuffer is the type-erased view of a TypedBuffer[T], keyed by the
// element type-id fixed at construction (spec §9 "AnyBuffer(TypedBuffer of
// one of 14 element types)").
type AnyBuffer interface {
	ElementType() types.TypeID
	Cap() int
	Len() int
	AcquireWrite(size int) (AnyDataSet, error)
	ReleaseWrite() error
	AcquireRead() (AnyDataSet, error)
	ReleaseRead() error
}

// NewAnyTypedBuffer builds the fixed-capacity, full-locking variant for
// the element type named by elementType.
func NewAnyTypedBuffer(elementType types.TypeID, capacity int, token *cancel.Token) (AnyBuffer, error) {
	return buildAnyBuffer(elementType, capacity, token, false)
}

// NewAnyGrowingTypedBuffer builds the intra-PhyEngine growing variant.
func NewAnyGrowingTypedBuffer(elementType types.TypeID, capacity int) (AnyBuffer, error) {
	return buildAnyBuffer(elementType, capacity, nil, true)
}

// buildAnyBuffer is the 14-way type-id dispatch shared by both
// constructors.
func buildAnyBuffer(elementType types.TypeID, capacity int, token *cancel.Token, growing bool) (AnyBuffer, error) {
	switch elementType {
	case types.TypeU8:
		return wrapReal(newTyped[uint8](elementType, capacity, token, growing)), nil
	case types.TypeU16:
		return wrapReal(newTyped[uint16](elementType, capacity, token, growing)), nil
	case types.TypeU32:
		return wrapReal(newTyped[uint32](elementType, capacity, token, growing)), nil
	case types.TypeU64:
		return wrapReal(newTyped[uint64](elementType, capacity, token, growing)), nil
	case types.TypeI8:
		return wrapReal(newTyped[int8](elementType, capacity, token, growing)), nil
	case types.TypeI16:
		return wrapReal(newTyped[int16](elementType, capacity, token, growing)), nil
	case types.TypeI32:
		return wrapReal(newTyped[int32](elementType, capacity, token, growing)), nil
	case types.TypeI64:
		return wrapReal(newTyped[int64](elementType, capacity, token, growing)), nil
	case types.TypeF32:
		return wrapReal(newTyped[float32](elementType, capacity, token, growing)), nil
	case types.TypeF64, types.TypeF80:
		return wrapReal(newTyped[float64](elementType, capacity, token, growing)), nil
	case types.TypeComplexF32:
		return wrapComplex(newTyped[complex64](elementType, capacity, token, growing)), nil
	case types.TypeComplexF64, types.TypeComplexF80:
		return wrapComplex(newTyped[complex128](elementType, capacity, token, growing)), nil
	default:
		return nil, radioerr.Newf(radioerr.InvalidDataType, "NewAnyTypedBuffer", "not a buffer element type: %s", elementType)
	}
}

func newTyped[T any](elementType types.TypeID, capacity int, token *cancel.Token, growing bool) *TypedBuffer[T] {
	if growing {
		return NewGrowingTypedBuffer[T](elementType, capacity)
	}
	return NewTypedBuffer[T](elementType, capacity, token)
}

// Numeric is the set of concrete Go types used to back real-valued
// TypedBuffer element types.
type Numeric interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// AnyComplex is the set of concrete Go types used to back complex-valued
// TypedBuffer element types.
type AnyComplex interface {
	~complex64 | ~complex128
}

func toFloat64[T Numeric](v T) float64 { return float64(v) }

func fromFloat64[T Numeric](f float64) T { return T(f) }

// realBuffer adapts a TypedBuffer[T] of a real numeric type to AnyBuffer.
type realBuffer[T Numeric] struct{ b *TypedBuffer[T] }

func wrapReal[T Numeric](b *TypedBuffer[T]) AnyBuffer { return &realBuffer[T]{b: b} }

func (r *realBuffer[T]) ElementType() types.TypeID { return r.b.ElementType() }
func (r *realBuffer[T]) Cap() int                  { return r.b.Cap() }
func (r *realBuffer[T]) Len() int                  { return r.b.Len() }

func (r *realBuffer[T]) AcquireWrite(size int) (AnyDataSet, error) {
	ds, err := r.b.AcquireWrite(size)
	if err != nil {
		return nil, err
	}
	return &realDataSet[T]{ds: ds}, nil
}
func (r *realBuffer[T]) ReleaseWrite() error { return r.b.ReleaseWrite() }

func (r *realBuffer[T]) AcquireRead() (AnyDataSet, error) {
	ds, err := r.b.AcquireRead()
	if err != nil {
		return nil, err
	}
	return &realDataSet[T]{ds: ds}, nil
}
func (r *realBuffer[T]) ReleaseRead() error { return r.b.ReleaseRead() }

type realDataSet[T Numeric] struct{ ds *types.DataSet[T] }

func (d *realDataSet[T]) Len() int                                { return len(d.ds.Data) }
func (d *realDataSet[T]) SampleRate() float64                     { return d.ds.SampleRate }
func (d *realDataSet[T]) SetSampleRate(v float64)                 { d.ds.SampleRate = v }
func (d *realDataSet[T]) Metadata() map[string]types.Value        { return d.ds.Metadata }
func (d *realDataSet[T]) SetMetadata(m map[string]types.Value)    { d.ds.Metadata = m }
func (d *realDataSet[T]) Imag() []float64                         { return make([]float64, len(d.ds.Data)) }
func (d *realDataSet[T]) SetImag(v []float64)                     {}

func (d *realDataSet[T]) Real() []float64 {
	out := make([]float64, len(d.ds.Data))
	for i, v := range d.ds.Data {
		out[i] = toFloat64(v)
	}
	return out
}

func (d *realDataSet[T]) SetReal(v []float64) {
	for i := range d.ds.Data {
		if i < len(v) {
			d.ds.Data[i] = fromFloat64[T](v[i])
		}
	}
}

// complexBuffer adapts a TypedBuffer[T] of a complex type to AnyBuffer.
type complexBuffer[T AnyComplex] struct{ b *TypedBuffer[T] }

func wrapComplex[T AnyComplex](b *TypedBuffer[T]) AnyBuffer { return &complexBuffer[T]{b: b} }

func (c *complexBuffer[T]) ElementType() types.TypeID { return c.b.ElementType() }
func (c *complexBuffer[T]) Cap() int                  { return c.b.Cap() }
func (c *complexBuffer[T]) Len() int                  { return c.b.Len() }

func (c *complexBuffer[T]) AcquireWrite(size int) (AnyDataSet, error) {
	ds, err := c.b.AcquireWrite(size)
	if err != nil {
		return nil, err
	}
	return &complexDataSet[T]{ds: ds}, nil
}
func (c *complexBuffer[T]) ReleaseWrite() error { return c.b.ReleaseWrite() }

func (c *complexBuffer[T]) AcquireRead() (AnyDataSet, error) {
	ds, err := c.b.AcquireRead()
	if err != nil {
		return nil, err
	}
	return &complexDataSet[T]{ds: ds}, nil
}
func (c *complexBuffer[T]) ReleaseRead() error { return c.b.ReleaseRead() }

type complexDataSet[T AnyComplex] struct{ ds *types.DataSet[T] }

func (d *complexDataSet[T]) Len() int                             { return len(d.ds.Data) }
func (d *complexDataSet[T]) SampleRate() float64                  { return d.ds.SampleRate }
func (d *complexDataSet[T]) SetSampleRate(v float64)              { d.ds.SampleRate = v }
func (d *complexDataSet[T]) Metadata() map[string]types.Value     { return d.ds.Metadata }
func (d *complexDataSet[T]) SetMetadata(m map[string]types.Value) { d.ds.Metadata = m }

func (d *complexDataSet[T]) Real() []float64 {
	out := make([]float64, len(d.ds.Data))
	for i, v := range d.ds.Data {
		out[i] = real(complex128(v))
	}
	return out
}

func (d *complexDataSet[T]) SetReal(v []float64) {
	for i := range d.ds.Data {
		if i < len(v) {
			d.ds.Data[i] = T(complex(v[i], imag(complex128(d.ds.Data[i]))))
		}
	}
}

func (d *complexDataSet[T]) Imag() []float64 {
	out := make([]float64, len(d.ds.Data))
	for i, v := range d.ds.Data {
		out[i] = imag(complex128(v))
	}
	return out
}

func (d *complexDataSet[T]) SetImag(v []float64) {
	for i := range d.ds.Data {
		if i < len(v) {
			d.ds.Data[i] = T(complex(real(complex128(d.ds.Data[i])), v[i]))
		}
	}
}
