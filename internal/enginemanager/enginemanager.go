// Package enginemanager owns one running instance of every engine named
// in a radio's built RadioRepresentation, hiding the PhyEngine/StackEngine
// scheduling-strategy split from everything above it (spec §4.6).
package enginemanager

import (
	"sync"

	"github.com/radioflow/runtime/internal/buffer"
	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/phyengine"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/radiograph"
	"github.com/radioflow/runtime/internal/rendezvous"
	"github.com/radioflow/runtime/internal/stackengine"
	"github.com/radioflow/runtime/internal/types"
	"github.com/sirupsen/logrus"
)

// engine is the subset of PhyEngine/StackEngine's surface EngineManager
// drives directly.
type engine interface {
	Start()
	Stop()
	PostReconfig(rc radiograph.ParametricReconfig)
}

// commander is implemented only by StackEngine: Phy components have no
// rendezvous-based command channel (spec §4.3, §4.5).
type commander interface {
	PostCommand(componentName string, msg rendezvous.Message)
}

// EngineStats unifies PhyEngine.Stats and StackEngine.Stats for radio/metrics,
// which has no reason to know which scheduling strategy an engine uses.
type EngineStats struct {
	Kind            types.EngineKind
	Passes          uint64
	MessagesHandled uint64
	BufferOccupancy map[string]int
}

// EngineManager wires external buffers between engines in engine
// topological order at Load time, then fans Start/Stop/Reconfigure/
// PostCommand out to the right engine.
type EngineManager struct {
	log    *logrus.Logger
	upcall types.EventUpcall

	mu      sync.RWMutex
	rep     *radiograph.RadioRepresentation
	order   []string
	engines map[string]engine

	loaded  bool
	running bool
}

// New returns an unloaded EngineManager. upcall receives every event a
// loaded radio's components activate (spec §4.6 "Event up-call"); it may
// be nil until a ControllerManager is wired in, and the bound sinks handed
// to components tolerate a nil upcall by silently dropping activations
// (spec §9 Open Questions).
func New(log *logrus.Logger, upcall types.EventUpcall) *EngineManager {
	if log == nil {
		log = logrus.New()
	}
	return &EngineManager{log: log, upcall: upcall}
}

// Load instantiates every engine named in rep, in the engine graph's
// topological order, so a consumer engine always sees its producer's
// external buffer handle already bound (spec §4.4 step 4, §4.6). rep must
// already be built (spec §4.8).
func (m *EngineManager) Load(rep *radiograph.RadioRepresentation, host *pluginhost.Host) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return radioerr.New(radioerr.GraphStructureError, "EngineManager.Load", nil)
	}

	order, err := rep.EngineTopoOrder()
	if err != nil {
		return err
	}

	// incomingByEngine accumulates, for each not-yet-constructed engine, the
	// external buffer handles its upstream producers have already bound,
	// keyed the way PhyEngine/StackEngine construction looks them up: by
	// the CONSUMING side's (component, port).
	incomingByEngine := make(map[string]map[types.PortRef]buffer.AnyBuffer, len(order))
	engines := make(map[string]engine, len(order))

	for _, name := range order {
		desc, ok := rep.Engine(name)
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "EngineManager.Load", "unknown engine %q", name)
		}
		token := cancel.New()
		incoming := incomingByEngine[name]

		var eng engine
		var outgoing map[types.PortRef]buffer.AnyBuffer
		switch desc.Kind {
		case types.PhyEngineKind:
			compOrder, err := rep.ComponentTopoOrder(name)
			if err != nil {
				return err
			}
			e, out, err := phyengine.New(desc, compOrder, host, incoming, token, m.log, m.upcall)
			if err != nil {
				return err
			}
			eng, outgoing = e, out
		case types.StackEngineKind:
			links := rep.EngineLinks(name)
			e, out, err := stackengine.New(desc, links, host, incoming, token, m.log, m.upcall)
			if err != nil {
				return err
			}
			eng, outgoing = e, out
		default:
			return radioerr.Newf(radioerr.GraphStructureError, "EngineManager.Load", "engine %q has unknown kind %q", name, desc.Kind)
		}

		// Translate every external link leaving this engine from the
		// producer's own (component, port) key to the consumer's, and file
		// it under the downstream engine it's bound for.
		for _, link := range rep.EngineLinks(name) {
			if !link.External() || link.SourceEngine != name {
				continue
			}
			buf, ok := outgoing[types.PortRef{Component: link.SourceComponent, Port: link.SourcePort}]
			if !ok {
				continue
			}
			dst, ok := incomingByEngine[link.SinkEngine]
			if !ok {
				dst = make(map[types.PortRef]buffer.AnyBuffer)
				incomingByEngine[link.SinkEngine] = dst
			}
			dst[types.PortRef{Component: link.SinkComponent, Port: link.SinkPort}] = buf
		}
		engines[name] = eng
	}

	m.rep = rep
	m.order = order
	m.engines = engines
	m.loaded = true
	return nil
}

// Start launches every engine in topological order, producers before the
// consumers of their external buffers.
func (m *EngineManager) Start() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, name := range m.order {
		m.engines[name].Start()
	}
	m.running = true
}

// Stop halts every engine in reverse topological order, so a consumer is
// always torn down before the producer feeding it.
func (m *EngineManager) Stop() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		m.engines[m.order[i]].Stop()
	}
	m.running = false
}

// Unload clears the manager's state, making it ready for another Load.
func (m *EngineManager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rep = nil
	m.order = nil
	m.engines = nil
	m.loaded = false
	m.running = false
}

// Reconfigure splits set by owning engine, applies each slice to that
// engine's mailbox, then records the new values in the RadioRepresentation
// (spec §4.6, §4.9).
func (m *EngineManager) Reconfigure(set radiograph.ReconfigSet) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for engineName, reconfigs := range set.ByEngine() {
		eng, ok := m.engines[engineName]
		if !ok {
			m.log.Warnf("enginemanager: reconfigure for unknown engine %q", engineName)
			continue
		}
		for _, rc := range reconfigs {
			eng.PostReconfig(rc)
		}
	}
	m.rep.Reconfigure(set)
}

// PostCommand routes a named command to the engine owning componentName.
// Components living on a PhyEngine have no command channel; posting to
// one is logged and dropped (spec §4.3 scopes commands to Stack
// components).
func (m *EngineManager) PostCommand(componentName string, msg rendezvous.Message) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	engineName, ok := m.rep.EngineNameFor(componentName)
	if !ok {
		m.log.Warnf("enginemanager: command for unknown component %q", componentName)
		return
	}
	eng, ok := m.engines[engineName]
	if !ok {
		return
	}
	cmd, ok := eng.(commander)
	if !ok {
		m.log.Warnf("enginemanager: component %q's engine does not accept commands", componentName)
		return
	}
	cmd.PostCommand(componentName, msg)
}

// GetParameterValue is a pass-through to the RadioRepresentation's query,
// kept here so callers above EngineManager never hold a direct reference
// to the representation.
func (m *EngineManager) GetParameterValue(componentName, paramName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rep == nil {
		return ""
	}
	return m.rep.GetParameterValue(componentName, paramName)
}

// Stats snapshots every loaded engine's scheduling activity, keyed by
// engine name (spec §10 "engine scheduler pass count", "buffer occupancy").
func (m *EngineManager) Stats() map[string]EngineStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]EngineStats, len(m.engines))
	for name, eng := range m.engines {
		switch e := eng.(type) {
		case *phyengine.PhyEngine:
			s := e.Stats()
			out[name] = EngineStats{Kind: types.PhyEngineKind, Passes: s.Passes, BufferOccupancy: s.BufferOccupancy}
		case *stackengine.StackEngine:
			s := e.Stats()
			out[name] = EngineStats{Kind: types.StackEngineKind, MessagesHandled: s.MessagesHandled, BufferOccupancy: s.BufferOccupancy}
		}
	}
	return out
}

// IsLoaded reports whether Load has succeeded and Unload has not yet run.
func (m *EngineManager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// IsRunning reports whether Start has run more recently than Stop.
func (m *EngineManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
