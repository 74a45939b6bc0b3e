// Package stackengine implements the StackEngine scheduling strategy
// (spec §4.5): one message-loop goroutine per component input port, one
// reconfig goroutine per component, and byte-stream translators at every
// engine boundary.
package stackengine

import (
	"sync"
	"sync/atomic"

	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/radiograph"
	"github.com/radioflow/runtime/internal/rendezvous"
	"github.com/radioflow/runtime/internal/types"
	"github.com/sirupsen/logrus"
)

// Stats is a point-in-time snapshot of one engine's message throughput and
// inbox occupancy, read by radio/metrics (spec §10).
type Stats struct {
	MessagesHandled uint64
	BufferOccupancy map[string]int
}

const externalBufferCapacity = 4

// peerLink is one entry of a component's send-upward or send-downward
// table (spec §4.5): the local port a message leaves through, the peer
// port name stamped on the forwarded message, and the peer's inbox.
type peerLink struct {
	localPort string
	peerPort  string
	buf       *buffer.StackBuffer
}

type componentRuntime struct {
	name    string
	impl    component.Stack
	table   *component.ParameterTable
	library pluginhost.Library
	handle  any

	inboxes map[string]*buffer.StackBuffer
	ports   map[string]types.Port

	above []peerLink
	below []peerLink

	rendez  *rendezvous.Rendezvous
	mailbox chan radiograph.ParametricReconfig
}

// StackEngine owns N stack components, their port threads, reconfig
// threads, and the engine-boundary translators.
type StackEngine struct {
	name string
	log  *logrus.Logger
	host *pluginhost.Host

	order      []string
	components map[string]*componentRuntime

	externalOutputs map[types.PortRef]buffer.AnyBuffer

	token   *cancel.Token
	wg      sync.WaitGroup
	started bool

	starters []func()

	messages atomic.Uint64
}

// New loads every component in desc, builds each component's port inboxes
// and send-up/send-down tables from links (every link touching this
// engine, internal and external — the shape of RadioRepresentation.
// EngineLinks), and wires InTranslator/OutTranslator goroutines at every
// boundary crossing. It returns the external output buffer handles the
// caller (EngineManager) must propagate downstream.
func New(desc types.EngineDescription, links []types.LinkDescription, host *pluginhost.Host,
	incoming map[types.PortRef]buffer.AnyBuffer, token *cancel.Token, log *logrus.Logger,
	upcall types.EventUpcall) (*StackEngine, map[types.PortRef]buffer.AnyBuffer, error) {

	if log == nil {
		log = logrus.New()
	}

	e := &StackEngine{
		name:            desc.Name,
		log:             log,
		host:            host,
		components:      make(map[string]*componentRuntime, len(desc.Components)),
		externalOutputs: make(map[types.PortRef]buffer.AnyBuffer),
		token:           token,
	}

	for _, comp := range desc.Components {
		cr, err := e.construct(comp, token, upcall)
		if err != nil {
			return nil, nil, err
		}
		e.components[comp.Name] = cr
		e.order = append(e.order, comp.Name)
	}

	for _, link := range links {
		if err := e.wireLink(link, incoming); err != nil {
			return nil, nil, err
		}
	}

	return e, e.externalOutputs, nil
}

func (e *StackEngine) construct(comp types.ComponentDescription, token *cancel.Token, upcall types.EventUpcall) (*componentRuntime, error) {
	lib, err := e.host.Load(pluginhost.KindStack, comp.Type)
	if err != nil {
		return nil, err
	}
	handle, err := lib.Create(comp.Name)
	if err != nil {
		return nil, radioerr.New(radioerr.LibraryLoad, "stackengine.construct", err)
	}
	impl, ok := handle.(component.Stack)
	if !ok {
		lib.Release(handle)
		return nil, radioerr.Newf(radioerr.LibraryLoad, "stackengine.construct", "component %q does not implement a Stack step", comp.Name)
	}

	table, err := component.NewParameterTable(impl.ParameterSpecs())
	if err != nil {
		lib.Release(handle)
		return nil, err
	}
	for _, p := range comp.Parameters {
		if _, err := table.Set(p.Name, p.Value); err != nil {
			lib.Release(handle)
			return nil, err
		}
	}

	sink := component.NewBoundEventSink(comp.Name, impl.Events(), upcall)
	if err := impl.Initialize(table, sink); err != nil {
		lib.Release(handle)
		return nil, err
	}

	cr := &componentRuntime{
		name:    comp.Name,
		impl:    impl,
		table:   table,
		library: lib,
		handle:  handle,
		inboxes: make(map[string]*buffer.StackBuffer),
		ports:   make(map[string]types.Port),
		rendez:  rendezvous.New(),
		mailbox: make(chan radiograph.ParametricReconfig, 64),
	}
	for _, p := range impl.Ports() {
		cr.ports[p.Name] = p
		cr.inboxes[p.Name] = buffer.NewStackBuffer(buffer.DefaultStackCapacity, token)
	}
	return cr, nil
}

// wireLink files one link into the sending component's above/below table,
// or spins up a translator if the link crosses this engine's boundary.
func (e *StackEngine) wireLink(link types.LinkDescription, incoming map[types.PortRef]buffer.AnyBuffer) error {
	switch {
	case !link.External():
		src, ok := e.components[link.SourceComponent]
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "stackengine.wireLink", "unknown source component %q", link.SourceComponent)
		}
		sink, ok := e.components[link.SinkComponent]
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "stackengine.wireLink", "unknown sink component %q", link.SinkComponent)
		}
		sinkInbox, ok := sink.inboxes[link.SinkPort]
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "stackengine.wireLink", "unknown sink port %s.%s", link.SinkComponent, link.SinkPort)
		}
		pl := peerLink{localPort: link.SourcePort, peerPort: link.SinkPort, buf: sinkInbox}
		e.addPeer(src, link.SourcePort, pl)

	case link.SinkEngine == e.name:
		sink, ok := e.components[link.SinkComponent]
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "stackengine.wireLink", "unknown sink component %q", link.SinkComponent)
		}
		inbox, ok := sink.inboxes[link.SinkPort]
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "stackengine.wireLink", "unknown sink port %s.%s", link.SinkComponent, link.SinkPort)
		}
		ref := types.PortRef{Component: link.SinkComponent, Port: link.SinkPort}
		extBuf, ok := incoming[ref]
		if !ok {
			return radioerr.Newf(radioerr.ResourceNotFound, "stackengine.wireLink", "no inbound external buffer for %s.%s", link.SinkComponent, link.SinkPort)
		}
		if extBuf.ElementType() != types.TypeU8 {
			return radioerr.Newf(radioerr.InvalidDataType, "stackengine.wireLink", "external buffer for %s.%s is not u8", link.SinkComponent, link.SinkPort)
		}
		e.starters = append(e.starters, func() { e.inTranslator(extBuf, inbox, link.SinkPort) })

	case link.SourceEngine == e.name:
		src, ok := e.components[link.SourceComponent]
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "stackengine.wireLink", "unknown source component %q", link.SourceComponent)
		}
		outbox := buffer.NewStackBuffer(buffer.DefaultStackCapacity, e.token)
		pl := peerLink{localPort: link.SourcePort, peerPort: link.SinkPort, buf: outbox}
		e.addPeer(src, link.SourcePort, pl)

		extBuf, err := buffer.NewAnyTypedBuffer(types.TypeU8, externalBufferCapacity, e.token)
		if err != nil {
			return err
		}
		e.externalOutputs[types.PortRef{Component: link.SourceComponent, Port: link.SourcePort}] = extBuf
		e.starters = append(e.starters, func() { e.outTranslator(outbox, extBuf) })
	}
	return nil
}

func (e *StackEngine) addPeer(cr *componentRuntime, localPort string, pl peerLink) {
	if cr.ports[localPort].IsTop() {
		cr.above = append(cr.above, pl)
	} else {
		cr.below = append(cr.below, pl)
	}
}

// Start launches every component's per-port message loops and reconfig
// loop, plus every boundary translator.
func (e *StackEngine) Start() {
	if e.started {
		return
	}
	e.started = true

	for _, name := range e.order {
		cr := e.components[name]
		for portName := range cr.inboxes {
			e.wg.Add(1)
			go e.portLoop(cr, portName)
		}
		e.wg.Add(1)
		go e.reconfigLoop(cr)
	}
	for _, start := range e.starters {
		e.wg.Add(1)
		fn := start
		go func() { defer e.wg.Done(); fn() }()
	}
}

// Stop cancels the shared token, joins every goroutine, then stops and
// releases every component.
func (e *StackEngine) Stop() {
	e.token.Cancel()
	e.wg.Wait()

	for _, name := range e.order {
		cr := e.components[name]
		cr.impl.Stop()
		cr.library.Release(cr.handle)
	}
}

// PostReconfig enqueues a parametric reconfig for componentName's reconfig
// goroutine to apply.
func (e *StackEngine) PostReconfig(rc radiograph.ParametricReconfig) {
	cr, ok := e.components[rc.ComponentName]
	if !ok {
		e.log.Warnf("stackengine %s: reconfig for unknown component %s", e.name, rc.ComponentName)
		return
	}
	select {
	case cr.mailbox <- rc:
	default:
		e.log.Warnf("stackengine %s: reconfig mailbox full for %s", e.name, rc.ComponentName)
	}
}

// PostCommand delivers msg to componentName's rendezvous, releasing any
// thread parked on msg.Name (spec §4.5 "Commands").
func (e *StackEngine) PostCommand(componentName string, msg rendezvous.Message) {
	cr, ok := e.components[componentName]
	if !ok {
		return
	}
	cr.rendez.Release(msg)
}

// Stats reports this engine's total handled-message count and the current
// depth of every component inbox, keyed "component.port".
func (e *StackEngine) Stats() Stats {
	occ := make(map[string]int)
	for _, name := range e.order {
		cr := e.components[name]
		for portName, inbox := range cr.inboxes {
			occ[name+"."+portName] = inbox.Len()
		}
	}
	return Stats{MessagesHandled: e.messages.Load(), BufferOccupancy: occ}
}

func (e *StackEngine) portLoop(cr *componentRuntime, portName string) {
	defer e.wg.Done()
	inbox := cr.inboxes[portName]
	isTop := cr.ports[portName].IsTop()

	for {
		msg, ok := inbox.Pop()
		if !ok {
			return
		}
		var result *types.StackDataSet
		var err error
		if isTop {
			result, err = cr.impl.HandleFromAbove(msg)
		} else {
			result, err = cr.impl.HandleFromBelow(msg)
		}
		e.messages.Add(1)
		if err != nil {
			e.log.Errorf("stackengine %s: component %s port %s: %v", e.name, cr.name, portName, err)
			continue
		}
		if result == nil {
			continue
		}
		if isTop {
			e.sendDown(cr, result)
		} else {
			e.sendUp(cr, result)
		}
	}
}

func (e *StackEngine) sendDown(cr *componentRuntime, msg *types.StackDataSet) {
	e.fanOut(cr.below, types.FromAbove, msg)
}

func (e *StackEngine) sendUp(cr *componentRuntime, msg *types.StackDataSet) {
	e.fanOut(cr.above, types.FromBelow, msg)
}

func (e *StackEngine) fanOut(peers []peerLink, direction types.Direction, msg *types.StackDataSet) {
	for _, pl := range peers {
		fwd := types.NewStackDataSet(direction, msg.Bytes())
		fwd.SourcePort = pl.localPort
		fwd.SinkPort = pl.peerPort
		fwd.Metadata = msg.CloneMetadata()
		pl.buf.Push(fwd)
	}
}

func (e *StackEngine) reconfigLoop(cr *componentRuntime) {
	defer e.wg.Done()
	for {
		select {
		case rc := <-cr.mailbox:
			if _, err := cr.table.Set(rc.ParameterName, rc.NewValue); err != nil {
				e.log.Warnf("stackengine %s: reconfig %s.%s: %v", e.name, cr.name, rc.ParameterName, err)
				continue
			}
			cr.impl.ParameterChanged(rc.ParameterName)
		case <-e.token.Done():
			return
		}
	}
}

// inTranslator bridges the byte-stream world to the typed-message world:
// it reads from an inter-engine u8 TypedBuffer and pushes a StackDataSet
// onto the destination component's inbox (spec §4.5 "Translators").
func (e *StackEngine) inTranslator(extBuf buffer.AnyBuffer, inbox *buffer.StackBuffer, sinkPort string) {
	for {
		rd, err := extBuf.AcquireRead()
		if err != nil {
			return
		}
		payload := make([]byte, rd.Len())
		for i, v := range rd.Real() {
			payload[i] = byte(v)
		}
		msg := types.NewStackDataSet(types.FromBelow, payload)
		msg.SinkPort = sinkPort
		msg.Metadata = rd.Metadata()
		if err := extBuf.ReleaseRead(); err != nil {
			return
		}
		if !inbox.Push(msg) {
			return
		}
	}
}

// outTranslator bridges the other way: it pops a StackDataSet from a
// component's outbox and writes its bytes to the inter-engine u8
// TypedBuffer.
func (e *StackEngine) outTranslator(outbox *buffer.StackBuffer, extBuf buffer.AnyBuffer) {
	for {
		msg, ok := outbox.Pop()
		if !ok {
			return
		}
		bytes := msg.Bytes()
		wr, err := extBuf.AcquireWrite(len(bytes))
		if err != nil {
			return
		}
		values := make([]float64, len(bytes))
		for i, b := range bytes {
			values[i] = float64(b)
		}
		wr.SetReal(values)
		wr.SetMetadata(msg.Metadata)
		if err := extBuf.ReleaseWrite(); err != nil {
			return
		}
	}
}
