// Package component defines the closed tagged-union interface a plug-in
// presents to its owning engine (spec §9 "Dynamic dispatch": the source
// system's virtual-inheritance "any component" becomes a Phy/Stack trait
// pair here) and the parameter table both flavours share.
package component

import (
	"sync"

	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

// EventSink is how a running component activates one of its declared
// events (spec §4.6 "Event up-call"). Activating a name absent from
// Events() fails with radioerr.EventNotFound.
type EventSink interface {
	ActivateEvent(name string, payload types.Value) error
}

// Phy is the interface a data-flow component exposes to a PhyEngine (spec
// §4.4). ComputeOutputTypes and Specialize implement the template-component
// step from spec §9: a plain component returns itself from Specialize,
// a template component returns a freshly constructed monomorphised
// instance bound to the concrete type vector.
type Phy interface {
	Name() string
	Ports() []types.Port
	ParameterSpecs() []types.ParameterSpec
	Events() []string

	ComputeOutputTypes(inputTypes []types.TypeID) ([]types.TypeID, error)
	Specialize(inputTypes []types.TypeID) (Phy, error)

	Initialize(inputs, outputs []buffer.AnyBuffer, params *ParameterTable, events EventSink) error
	Process() error
	Stop()
}

// Stack is the interface a message-driven component exposes to a
// StackEngine (spec §4.5).
type Stack interface {
	Name() string
	Ports() []types.Port
	ParameterSpecs() []types.ParameterSpec
	Events() []string

	Initialize(params *ParameterTable, events EventSink) error
	HandleFromAbove(msg *types.StackDataSet) (*types.StackDataSet, error)
	HandleFromBelow(msg *types.StackDataSet) (*types.StackDataSet, error)
	ParameterChanged(name string)
	Stop()
}

// BoundEventSink implements EventSink for one component instance: it
// validates the event name against the set declared at construction, then
// forwards to an engine-wide upcall (spec §4.6, §7 EventNotFound).
type BoundEventSink struct {
	componentName string
	declared      map[string]bool
	upcall        types.EventUpcall
}

// NewBoundEventSink builds a sink for componentName, accepting only the
// names in declared.
func NewBoundEventSink(componentName string, declared []string, upcall types.EventUpcall) *BoundEventSink {
	set := make(map[string]bool, len(declared))
	for _, name := range declared {
		set[name] = true
	}
	return &BoundEventSink{componentName: componentName, declared: set, upcall: upcall}
}

// ActivateEvent implements EventSink.
func (s *BoundEventSink) ActivateEvent(name string, payload types.Value) error {
	if !s.declared[name] {
		return radioerr.Newf(radioerr.EventNotFound, "BoundEventSink.ActivateEvent", "component %q has no declared event %q", s.componentName, name)
	}
	if s.upcall != nil {
		s.upcall(types.Event{ComponentName: s.componentName, Name: name, Payload: payload})
	}
	return nil
}

// Kind distinguishes the two component variants.
type Kind int

const (
	KindPhy Kind = iota
	KindStack
)

// Any is the closed tagged union Component = Phy(PhyImpl) | Stack(StackImpl)
// (spec §9). Exactly one of Phy()/Stack() returns ok=true.
type Any struct {
	kind  Kind
	phy   Phy
	stack Stack
}

// WrapPhy tags a Phy implementation as a Component.
func WrapPhy(p Phy) Any { return Any{kind: KindPhy, phy: p} }

// WrapStack tags a Stack implementation as a Component.
func WrapStack(s Stack) Any { return Any{kind: KindStack, stack: s} }

// Kind reports which variant this Any wraps.
func (a Any) Kind() Kind { return a.kind }

// Phy returns the wrapped Phy component, if this Any is that variant.
func (a Any) Phy() (Phy, bool) {
	if a.kind == KindPhy {
		return a.phy, true
	}
	return nil, false
}

// Stack returns the wrapped Stack component, if this Any is that variant.
func (a Any) Stack() (Stack, bool) {
	if a.kind == KindStack {
		return a.stack, true
	}
	return nil, false
}

// Name returns the underlying component's name regardless of variant.
func (a Any) Name() string {
	switch a.kind {
	case KindPhy:
		return a.phy.Name()
	case KindStack:
		return a.stack.Name()
	default:
		return ""
	}
}

// ParameterTable is the thread-safe registry of a component's declared
// parameters and current values (spec §3 ParameterSpec, §5 "each
// component's parameter table"). StackComponents mutate it from their
// reconfig thread while port threads read it, so every access takes the
// table's mutex; a PhyComponent's table is only ever touched by its
// engine's single scheduler thread between process steps, so the lock is
// never contended there, but sharing one implementation keeps both
// variants consistent.
type ParameterTable struct {
	mu     sync.RWMutex
	specs  map[string]types.ParameterSpec
	values map[string]types.Value
	order  []string
}

// NewParameterTable builds a table from specs, validating and applying
// each spec's Default value.
func NewParameterTable(specs []types.ParameterSpec) (*ParameterTable, error) {
	t := &ParameterTable{
		specs:  make(map[string]types.ParameterSpec, len(specs)),
		values: make(map[string]types.Value, len(specs)),
	}
	for _, spec := range specs {
		v, err := spec.Validate(spec.Default)
		if err != nil {
			return nil, err
		}
		t.specs[spec.Name] = spec
		t.values[spec.Name] = v
		t.order = append(t.order, spec.Name)
	}
	return t, nil
}

// Set validates raw against the named parameter's spec and, on success,
// stores the coerced value.
func (t *ParameterTable) Set(name, raw string) (types.Value, error) {
	name = types.Canon(name)

	t.mu.Lock()
	defer t.mu.Unlock()

	spec, ok := t.specs[name]
	if !ok {
		return types.Value{}, radioerr.New(radioerr.ParameterNotFound, "ParameterTable.Set", nil)
	}
	v, err := spec.Validate(raw)
	if err != nil {
		return types.Value{}, err
	}
	t.values[name] = v
	return v, nil
}

// Get returns the current value of a parameter.
func (t *ParameterTable) Get(name string) (types.Value, bool) {
	name = types.Canon(name)

	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.values[name]
	return v, ok
}

// Spec returns the registration-time spec of a parameter.
func (t *ParameterTable) Spec(name string) (types.ParameterSpec, bool) {
	name = types.Canon(name)

	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.specs[name]
	return s, ok
}

// Names returns every registered parameter name, in registration order.
func (t *ParameterTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string{}, t.order...)
}

// Snapshot returns the table's current values as ParameterDescriptions,
// in registration order — the shape RadioRepresentation and ReconfigDiffer
// work with.
func (t *ParameterTable) Snapshot() []types.ParameterDescription {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.ParameterDescription, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, types.ParameterDescription{Name: name, Value: t.values[name].String()})
	}
	return out
}
