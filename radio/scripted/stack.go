package scripted

import (
	"github.com/dop251/goja"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

// Stack is a message-driven component whose handlers are the JavaScript
// functions `handleFromAbove(bytes, params)` / `handleFromBelow(bytes,
// params)`, each receiving the message payload as an array of byte values
// and the current parameter table as a string-valued object. Returning an
// array of byte values forwards a new message in the direction the
// original one was travelling; returning null/undefined drops it (spec
// §4.5 "a nil result is discarded").
type Stack struct {
	name string
	spec Spec

	vm           *goja.Runtime
	fromAbove    goja.Callable
	fromBelow    goja.Callable
	hasFromAbove bool
	hasFromBelow bool

	table *component.ParameterTable
}

// NewStack builds an uninitialized scripted Stack component named name.
func NewStack(name string, spec Spec) *Stack {
	return &Stack{name: name, spec: spec}
}

func (s *Stack) Name() string                          { return s.name }
func (s *Stack) Ports() []types.Port                   { return s.spec.Ports }
func (s *Stack) ParameterSpecs() []types.ParameterSpec { return s.spec.ParameterSpecs }
func (s *Stack) Events() []string                      { return s.spec.EventNames }

func (s *Stack) Initialize(params *component.ParameterTable, events component.EventSink) error {
	vm := goja.New()
	if err := bindRuntime(vm, s.name, events); err != nil {
		return err
	}
	if _, err := vm.RunString(s.spec.Script); err != nil {
		return radioerr.Newf(radioerr.InvalidDataType, "scripted.Stack.Initialize", "%s: compile: %v", s.name, err)
	}

	s.vm = vm
	s.table = params
	if fn, ok := goja.AssertFunction(vm.Get("handleFromAbove")); ok {
		s.fromAbove, s.hasFromAbove = fn, true
	}
	if fn, ok := goja.AssertFunction(vm.Get("handleFromBelow")); ok {
		s.fromBelow, s.hasFromBelow = fn, true
	}
	return nil
}

func (s *Stack) HandleFromAbove(msg *types.StackDataSet) (*types.StackDataSet, error) {
	if !s.hasFromAbove {
		return nil, nil
	}
	return s.call(s.fromAbove, msg, types.FromAbove)
}

func (s *Stack) HandleFromBelow(msg *types.StackDataSet) (*types.StackDataSet, error) {
	if !s.hasFromBelow {
		return nil, nil
	}
	return s.call(s.fromBelow, msg, types.FromBelow)
}

func (s *Stack) call(fn goja.Callable, msg *types.StackDataSet, direction types.Direction) (*types.StackDataSet, error) {
	paramObj := s.vm.NewObject()
	for _, name := range s.table.Names() {
		v, _ := s.table.Get(name)
		_ = paramObj.Set(name, v.String())
	}

	result, err := fn(goja.Undefined(), s.vm.ToValue(bytesToInts(msg.Bytes())), paramObj)
	if err != nil {
		return nil, radioerr.Newf(radioerr.InvalidDataType, "scripted.Stack.call", "%s: %v", s.name, err)
	}
	if goja.IsNull(result) || goja.IsUndefined(result) {
		return nil, nil
	}

	arr, ok := result.Export().([]any)
	if !ok {
		return nil, radioerr.Newf(radioerr.InvalidDataType, "scripted.Stack.call", "%s: handler must return a byte array or null", s.name)
	}
	return types.NewStackDataSet(direction, intsToBytes(arr)), nil
}

// ParameterChanged is a no-op: scripted components read the parameter
// table fresh on every call instead of caching values between them.
func (s *Stack) ParameterChanged(name string) {}

func (s *Stack) Stop() {}

func bytesToInts(b []byte) []any {
	out := make([]any, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func intsToBytes(arr []any) []byte {
	out := make([]byte, len(arr))
	for i, v := range arr {
		out[i] = byte(toFloat(v))
	}
	return out
}
