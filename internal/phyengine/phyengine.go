// Package phyengine implements the PhyEngine scheduling strategy (spec
// §4.4): N components wired by internal growing TypedBuffers, one
// scheduler thread walking the component graph in topological order.
package phyengine

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/radiograph"
	"github.com/radioflow/runtime/internal/types"
	"github.com/sirupsen/logrus"
)

// Stats is a point-in-time snapshot of one engine's scheduling activity,
// read by radio/metrics without taking the engine's own locks (spec §10
// "buffer occupancy", "engine scheduler pass count").
type Stats struct {
	Passes          uint64
	BufferOccupancy map[string]int
}

// externalBufferCapacity is the fixed capacity of an inter-engine TypedBuffer.
const externalBufferCapacity = 4

// internalBufferCapacity seeds a growing intra-engine TypedBuffer.
const internalBufferCapacity = 2

type instance struct {
	name      string
	phy       component.Phy
	library   pluginhost.Library
	handle    any
	table     *component.ParameterTable
	inputBufs []buffer.AnyBuffer
}

// PhyEngine owns N components, the internal buffer set and one scheduler
// goroutine (spec §4.4).
type PhyEngine struct {
	name string
	log  *logrus.Logger
	host *pluginhost.Host

	order      []string
	components map[string]*instance

	externalOutputs map[types.PortRef]buffer.AnyBuffer

	mailbox chan radiograph.ParametricReconfig
	token   *cancel.Token

	runningMu sync.Mutex
	wg        sync.WaitGroup
	stopped   bool

	passes atomic.Uint64
}

// New loads every component in desc via host, specialises template
// components, wires internal growing buffers across internal links, and
// binds external buffer handles supplied in incoming. It returns the
// engine plus the map of external output handles the caller (EngineManager)
// must propagate downstream (spec §4.4 Construction).
func New(desc types.EngineDescription, topoOrder []string, host *pluginhost.Host,
	incoming map[types.PortRef]buffer.AnyBuffer, token *cancel.Token, log *logrus.Logger,
	upcall types.EventUpcall) (*PhyEngine, map[types.PortRef]buffer.AnyBuffer, error) {

	if log == nil {
		log = logrus.New()
	}

	e := &PhyEngine{
		name:            desc.Name,
		log:             log,
		host:            host,
		order:           append([]string{}, topoOrder...),
		components:      make(map[string]*instance, len(topoOrder)),
		externalOutputs: make(map[types.PortRef]buffer.AnyBuffer),
		mailbox:         make(chan radiograph.ParametricReconfig, 64),
		token:           token,
	}

	portBuffers := make(map[types.PortRef]buffer.AnyBuffer, len(incoming))
	for ref, buf := range incoming {
		portBuffers[ref] = buf
	}

	for _, name := range topoOrder {
		comp, ok := desc.Component(name)
		if !ok {
			return nil, nil, radioerr.Newf(radioerr.GraphStructureError, "phyengine.New", "unknown component %q in engine %q", name, desc.Name)
		}
		if err := e.construct(comp, desc, portBuffers, upcall); err != nil {
			return nil, nil, err
		}
	}

	return e, e.externalOutputs, nil
}

func (e *PhyEngine) construct(comp types.ComponentDescription, desc types.EngineDescription, portBuffers map[types.PortRef]buffer.AnyBuffer, upcall types.EventUpcall) error {
	lib, err := e.host.Load(pluginhost.KindPhy, comp.Type)
	if err != nil {
		return err
	}
	handle, err := lib.Create(comp.Name)
	if err != nil {
		return radioerr.New(radioerr.LibraryLoad, "phyengine.construct", err)
	}
	phyImpl, ok := handle.(component.Phy)
	if !ok {
		lib.Release(handle)
		return radioerr.Newf(radioerr.LibraryLoad, "phyengine.construct", "component %q does not implement a Phy step", comp.Name)
	}

	table, err := component.NewParameterTable(phyImpl.ParameterSpecs())
	if err != nil {
		lib.Release(handle)
		return err
	}
	for _, p := range comp.Parameters {
		if _, err := table.Set(p.Name, p.Value); err != nil {
			lib.Release(handle)
			return err
		}
	}

	ports := phyImpl.Ports()
	var inputPorts, outputPorts []types.Port
	for _, p := range ports {
		if p.Direction == types.PortInput {
			inputPorts = append(inputPorts, p)
		} else {
			outputPorts = append(outputPorts, p)
		}
	}

	inputTypes := make([]types.TypeID, len(inputPorts))
	inputBufs := make([]buffer.AnyBuffer, len(inputPorts))
	for i, p := range inputPorts {
		ref := types.PortRef{Component: comp.Name, Port: p.Name}
		buf, ok := portBuffers[ref]
		if !ok {
			lib.Release(handle)
			return radioerr.Newf(radioerr.ResourceNotFound, "phyengine.construct", "no input buffer bound for %s.%s", comp.Name, p.Name)
		}
		inputTypes[i] = buf.ElementType()
		inputBufs[i] = buf
	}

	outputTypes, err := phyImpl.ComputeOutputTypes(inputTypes)
	if err != nil {
		lib.Release(handle)
		return err
	}
	specialized, err := phyImpl.Specialize(inputTypes)
	if err != nil {
		lib.Release(handle)
		return err
	}

	outputBufs := make([]buffer.AnyBuffer, len(outputPorts))
	for i, p := range outputPorts {
		elemType := outputTypes[i]
		link, internal := findInternalLink(desc, comp.Name, p.Name)

		var buf buffer.AnyBuffer
		if internal {
			buf, err = buffer.NewAnyGrowingTypedBuffer(elemType, internalBufferCapacity)
			if err == nil {
				portBuffers[types.PortRef{Component: link.SinkComponent, Port: link.SinkPort}] = buf
			}
		} else {
			buf, err = buffer.NewAnyTypedBuffer(elemType, externalBufferCapacity, e.token)
			if err == nil {
				e.externalOutputs[types.PortRef{Component: comp.Name, Port: p.Name}] = buf
			}
		}
		if err != nil {
			lib.Release(handle)
			return err
		}
		portBuffers[types.PortRef{Component: comp.Name, Port: p.Name}] = buf
		outputBufs[i] = buf
	}

	sink := component.NewBoundEventSink(comp.Name, specialized.Events(), upcall)
	if err := specialized.Initialize(inputBufs, outputBufs, table, sink); err != nil {
		lib.Release(handle)
		return err
	}

	e.components[comp.Name] = &instance{name: comp.Name, phy: specialized, library: lib, handle: handle, table: table, inputBufs: inputBufs}
	return nil
}

// findInternalLink reports the internal link (if any) sourced from
// (componentName, portName) within desc.
func findInternalLink(desc types.EngineDescription, componentName, portName string) (types.LinkDescription, bool) {
	for _, link := range desc.InternalLinks {
		if link.SourceComponent == componentName && link.SourcePort == portName {
			return link, true
		}
	}
	return types.LinkDescription{}, false
}

// PostReconfig enqueues a parametric reconfig for the next scheduler pass
// to drain. Never blocks: the mailbox is generously buffered and a full
// mailbox only happens under a reconfig storm far beyond any real radio.
func (e *PhyEngine) PostReconfig(rc radiograph.ParametricReconfig) {
	select {
	case e.mailbox <- rc:
	default:
		e.log.Warnf("phyengine %s: reconfig mailbox full, dropping reconfig for %s", e.name, rc.ComponentName)
	}
}

// Start launches the scheduler goroutine.
func (e *PhyEngine) Start() {
	e.wg.Add(1)
	go e.schedulerLoop()
}

// Stop signals cancellation, joins the scheduler goroutine, calls every
// component's stop hook and releases its plug-in handle (spec §4.4
// Termination, §6 unload order).
func (e *PhyEngine) Stop() {
	e.runningMu.Lock()
	if e.stopped {
		e.runningMu.Unlock()
		return
	}
	e.stopped = true
	e.runningMu.Unlock()

	e.token.Cancel()
	e.wg.Wait()

	for _, name := range e.order {
		inst := e.components[name]
		inst.phy.Stop()
		inst.library.Release(inst.handle)
	}
}

// schedulerLoop implements spec §4.4's scheduler pass: drain the reconfig
// mailbox, then walk vertices in topological order, the source
// unconditionally, later vertices while they have pending input.
func (e *PhyEngine) schedulerLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.token.Done():
			return
		default:
		}

		e.drainReconfigs()
		e.passes.Add(1)

		for i, name := range e.order {
			if e.token.Cancelled() {
				return
			}
			inst := e.components[name]
			if i == 0 {
				if err := inst.phy.Process(); err != nil && !e.token.Cancelled() {
					e.log.Errorf("phyengine %s: component %s process: %v", e.name, name, err)
				}
				continue
			}
			for e.hasPendingInput(inst) {
				if err := inst.phy.Process(); err != nil {
					if !e.token.Cancelled() {
						e.log.Errorf("phyengine %s: component %s process: %v", e.name, name, err)
					}
					break
				}
			}
		}
	}
}

// hasPendingInput reports whether any of inst's input buffers has data
// waiting to be read (spec §4.4: "processed while at least one of its
// internal input buffers has data pending").
func (e *PhyEngine) hasPendingInput(inst *instance) bool {
	for _, buf := range inst.inputBufs {
		if buf.Len() > 0 {
			return true
		}
	}
	return false
}

// Stats reports this engine's total scheduler-pass count and the current
// occupancy of every component's input buffers, keyed by component name
// for the first input and "component.<index>" for later inputs.
func (e *PhyEngine) Stats() Stats {
	occ := make(map[string]int)
	for _, name := range e.order {
		inst := e.components[name]
		for i, buf := range inst.inputBufs {
			key := name
			if i > 0 {
				key = name + "." + strconv.Itoa(i)
			}
			occ[key] = buf.Len()
		}
	}
	return Stats{Passes: e.passes.Load(), BufferOccupancy: occ}
}

func (e *PhyEngine) drainReconfigs() {
	for {
		select {
		case rc := <-e.mailbox:
			inst, ok := e.components[rc.ComponentName]
			if !ok {
				e.log.Warnf("phyengine %s: reconfig for unknown component %s", e.name, rc.ComponentName)
				continue
			}
			if _, err := inst.table.Set(rc.ParameterName, rc.NewValue); err != nil {
				e.log.Warnf("phyengine %s: reconfig %s.%s: %v", e.name, rc.ComponentName, rc.ParameterName, err)
			}
		default:
			return
		}
	}
}
