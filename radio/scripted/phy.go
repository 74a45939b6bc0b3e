// Package scripted implements a reference component kind whose behaviour
// is a JavaScript function evaluated in an embedded goja VM instead of a
// compiled shared library. The plug-in ABI itself (spec §6) is out of
// core scope; this package gives the scenario tests in spec §8 a working
// component to register through pluginhost.Registry without a native
// toolchain. Grounded on the teacher's system/tee/script_engine.go goja
// wrapper.
package scripted

import (
	"github.com/dop251/goja"
	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

// Spec describes one scripted component instance: the ports, parameter
// declarations and event names it presents, plus the script body itself.
type Spec struct {
	Ports          []types.Port
	ParameterSpecs []types.ParameterSpec
	EventNames     []string
	Script         string
}

// Phy is a data-flow component whose process step is a JavaScript function
// `process(inputs, params)`. inputs is an array of `{real, sampleRate}`
// objects, one per input port in port order; the function must return an
// array of the same shape (or a bare number array), one per output port.
// Every buffer this component touches carries f64 samples: the scripted
// contract only ever exchanges JS numbers.
type Phy struct {
	name string
	spec Spec

	vm      *goja.Runtime
	process goja.Callable

	inputs  []buffer.AnyBuffer
	outputs []buffer.AnyBuffer
	table   *component.ParameterTable
}

// NewPhy builds an uninitialized scripted Phy component named name.
func NewPhy(name string, spec Spec) *Phy {
	return &Phy{name: name, spec: spec}
}

func (p *Phy) Name() string                          { return p.name }
func (p *Phy) Ports() []types.Port                   { return p.spec.Ports }
func (p *Phy) ParameterSpecs() []types.ParameterSpec { return p.spec.ParameterSpecs }
func (p *Phy) Events() []string                      { return p.spec.EventNames }

// ComputeOutputTypes always reports f64: see the type's doc comment.
func (p *Phy) ComputeOutputTypes(inputTypes []types.TypeID) ([]types.TypeID, error) {
	var out []types.TypeID
	for _, port := range p.spec.Ports {
		if port.Direction == types.PortOutput {
			out = append(out, types.TypeF64)
		}
	}
	return out, nil
}

// Specialize returns the component unchanged; a scripted component is
// never a template (spec §9 "template component" step is a no-op here).
func (p *Phy) Specialize(inputTypes []types.TypeID) (component.Phy, error) { return p, nil }

// Initialize compiles the script once and binds the buffers/parameter
// table/event sink this instance's Process calls will use.
func (p *Phy) Initialize(inputs, outputs []buffer.AnyBuffer, params *component.ParameterTable, events component.EventSink) error {
	vm := goja.New()
	if err := bindRuntime(vm, p.name, events); err != nil {
		return err
	}

	if _, err := vm.RunString(p.spec.Script); err != nil {
		return radioerr.Newf(radioerr.InvalidDataType, "scripted.Phy.Initialize", "%s: compile: %v", p.name, err)
	}
	fn, ok := goja.AssertFunction(vm.Get("process"))
	if !ok {
		return radioerr.Newf(radioerr.InvalidDataType, "scripted.Phy.Initialize", "%s: script has no process function", p.name)
	}

	p.vm = vm
	p.process = fn
	p.inputs = inputs
	p.outputs = outputs
	p.table = params
	return nil
}

// Process acquires one data set from every input, calls the script's
// process function, and writes its returned samples to every output
// (spec §4.4 "process step"). The PhyEngine scheduler calls Process on a
// non-source vertex only while at least one of its inputs has pending
// data, so for a single-input component AcquireRead returns at once.
func (p *Phy) Process() error {
	inVals := make([]any, len(p.inputs))
	for i, buf := range p.inputs {
		ds, err := buf.AcquireRead()
		if err != nil {
			return err
		}
		inVals[i] = map[string]any{"real": ds.Real(), "sampleRate": ds.SampleRate()}
	}
	defer func() {
		for _, buf := range p.inputs {
			_ = buf.ReleaseRead()
		}
	}()

	paramObj := p.vm.NewObject()
	for _, name := range p.table.Names() {
		v, _ := p.table.Get(name)
		_ = paramObj.Set(name, v.String())
	}

	result, err := p.process(goja.Undefined(), p.vm.ToValue(inVals), paramObj)
	if err != nil {
		return radioerr.Newf(radioerr.InvalidDataType, "scripted.Phy.Process", "%s: %v", p.name, err)
	}

	rows, ok := result.Export().([]any)
	if !ok {
		return radioerr.Newf(radioerr.InvalidDataType, "scripted.Phy.Process", "%s: process() must return an array", p.name)
	}
	if len(rows) != len(p.outputs) {
		return radioerr.Newf(radioerr.InvalidDataType, "scripted.Phy.Process", "%s: process() returned %d outputs, want %d", p.name, len(rows), len(p.outputs))
	}

	for i, buf := range p.outputs {
		samples, sampleRate := parseRow(rows[i])
		ds, err := buf.AcquireWrite(len(samples))
		if err != nil {
			return err
		}
		ds.SetReal(samples)
		if sampleRate != 0 {
			ds.SetSampleRate(sampleRate)
		}
		if err := buf.ReleaseWrite(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Phy) Stop() {}

// bindRuntime injects the console shim and the activateEvent bridge every
// scripted component's VM shares, regardless of flavour.
func bindRuntime(vm *goja.Runtime, componentName string, events component.EventSink) error {
	console := vm.NewObject()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value { return goja.Undefined() }); err != nil {
		return err
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	return vm.Set("activateEvent", func(call goja.FunctionCall) goja.Value {
		if events == nil {
			return goja.Undefined()
		}
		name := call.Argument(0).String()
		value := call.Argument(1).ToFloat()
		_ = events.ActivateEvent(name, types.FloatValue(types.TypeF64, value))
		return goja.Undefined()
	})
}

func parseRow(row any) ([]float64, float64) {
	switch v := row.(type) {
	case map[string]any:
		return toFloatSlice(v["real"]), toFloat(v["sampleRate"])
	default:
		return toFloatSlice(row), 0
	}
}

func toFloatSlice(v any) []float64 {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, len(arr))
	for i, e := range arr {
		out[i] = toFloat(e)
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
