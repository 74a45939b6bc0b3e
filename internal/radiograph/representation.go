package radiograph

import (
	"sync"

	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

// ComponentKey identifies a component vertex in the component graph: a
// component's name is only unique within its own engine.
type ComponentKey struct {
	Engine string
	Name   string
}

// componentGraph carries a copy of the component's description as its
// vertex payload and the owning LinkDescription as each edge's payload.
type componentGraph = Graph[ComponentKey, types.ComponentDescription, types.LinkDescription]

// engineGraph carries a copy of the engine's description as its vertex
// payload and one edge per external link.
type engineGraph = Graph[string, types.EngineDescription, types.LinkDescription]

// RadioRepresentation is the in-memory radio graph: engines, controllers,
// all links, external links, a component-level graph and an engine-level
// graph (spec §3, §4.8). It is append-only until BuildGraphs runs; every
// read and write after that takes the mutex.
type RadioRepresentation struct {
	mu sync.RWMutex

	engineOrder []string
	engines     map[string]*types.EngineDescription
	controllers []types.ControllerDescription

	rawLinks      []types.LinkDescription
	allLinks      []types.LinkDescription
	externalLinks []types.LinkDescription
	engineLinks   map[string][]types.LinkDescription

	components *componentGraph
	engineSubs map[string]*Graph[string, types.ComponentDescription, types.LinkDescription]
	engineG    *engineGraph

	isBuilt bool
}

// New builds an unbuilt RadioRepresentation from a parsed radio
// description. Call BuildGraphs before using any query or reconfiguration
// method.
func New(engines []types.EngineDescription, controllers []types.ControllerDescription, links []types.LinkDescription) *RadioRepresentation {
	r := &RadioRepresentation{
		engines:     make(map[string]*types.EngineDescription, len(engines)),
		controllers: append([]types.ControllerDescription{}, controllers...),
		rawLinks:    append([]types.LinkDescription{}, links...),
		engineLinks: make(map[string][]types.LinkDescription),
	}
	for i := range engines {
		e := engines[i]
		r.engines[e.Name] = &e
		r.engineOrder = append(r.engineOrder, e.Name)
	}
	return r
}

// IsBuilt reports whether BuildGraphs has completed successfully.
func (r *RadioRepresentation) IsBuilt() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isBuilt
}

// locate finds which engine owns the named component.
func (r *RadioRepresentation) locate(name string) (ComponentKey, types.ComponentDescription, bool) {
	for _, engName := range r.engineOrder {
		if comp, ok := r.engines[engName].Component(name); ok {
			return ComponentKey{Engine: engName, Name: name}, comp, true
		}
	}
	return ComponentKey{}, types.ComponentDescription{}, false
}

// BuildGraphs implements the five-step algorithm of spec §4.8. It fails
// with GraphStructureError if any link names a component that cannot be
// found in any engine, and leaves the representation unbuilt in that case.
func (r *RadioRepresentation) BuildGraphs() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isBuilt {
		return radioerr.New(radioerr.GraphStructureError, "RadioRepresentation.BuildGraphs", nil)
	}

	// Step 1: every component is a vertex of the component graph.
	components := NewGraph[ComponentKey, types.ComponentDescription, types.LinkDescription]()
	for _, engName := range r.engineOrder {
		for _, comp := range r.engines[engName].Components {
			components.AddVertex(ComponentKey{Engine: engName, Name: comp.Name}, comp)
		}
	}

	// Steps 2-3: stamp engine names on every link, classify internal vs
	// external, and file it into the right discoverability lists.
	engineLinks := make(map[string][]types.LinkDescription)
	var allLinks, externalLinks []types.LinkDescription
	for _, link := range r.rawLinks {
		srcKey, _, ok := r.locate(link.SourceComponent)
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "RadioRepresentation.BuildGraphs",
				"link references unknown source component %q", link.SourceComponent)
		}
		sinkKey, _, ok := r.locate(link.SinkComponent)
		if !ok {
			return radioerr.Newf(radioerr.GraphStructureError, "RadioRepresentation.BuildGraphs",
				"link references unknown sink component %q", link.SinkComponent)
		}

		link.SourceEngine = srcKey.Engine
		link.SinkEngine = sinkKey.Engine
		components.AddEdge(srcKey, sinkKey, link)
		allLinks = append(allLinks, link)

		engineLinks[link.SourceEngine] = append(engineLinks[link.SourceEngine], link)
		if link.External() {
			externalLinks = append(externalLinks, link)
			engineLinks[link.SinkEngine] = append(engineLinks[link.SinkEngine], link)
		} else {
			eng := r.engines[link.SourceEngine]
			eng.InternalLinks = append(eng.InternalLinks, link)
		}
	}

	// Step 4: each engine's internal graph, built from its components and
	// internal links.
	engineSubs := make(map[string]*Graph[string, types.ComponentDescription, types.LinkDescription], len(r.engineOrder))
	for _, engName := range r.engineOrder {
		eng := r.engines[engName]
		g := NewGraph[string, types.ComponentDescription, types.LinkDescription]()
		for _, comp := range eng.Components {
			g.AddVertex(comp.Name, comp)
		}
		for _, link := range eng.InternalLinks {
			g.AddEdge(link.SourceComponent, link.SinkComponent, link)
		}
		engineSubs[engName] = g
	}

	// Step 5: the engine graph, one vertex per engine, one edge per
	// external link (duplicates between the same pair are preserved).
	eg := NewGraph[string, types.EngineDescription, types.LinkDescription]()
	for _, engName := range r.engineOrder {
		eg.AddVertex(engName, *r.engines[engName])
	}
	for _, link := range externalLinks {
		eg.AddEdge(link.SourceEngine, link.SinkEngine, link)
	}

	r.components = components
	r.engineSubs = engineSubs
	r.engineG = eg
	r.allLinks = allLinks
	r.externalLinks = externalLinks
	r.engineLinks = engineLinks
	r.isBuilt = true
	return nil
}

// Engines returns the engine descriptions in declaration order.
func (r *RadioRepresentation) Engines() []types.EngineDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.EngineDescription, 0, len(r.engineOrder))
	for _, name := range r.engineOrder {
		out = append(out, *r.engines[name])
	}
	return out
}

// Engine returns one engine's description by name.
func (r *RadioRepresentation) Engine(name string) (types.EngineDescription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return types.EngineDescription{}, false
	}
	return *e, true
}

// Controllers returns every registered controller description.
func (r *RadioRepresentation) Controllers() []types.ControllerDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.ControllerDescription{}, r.controllers...)
}

// AllLinks returns every link, internal and external, with engine names
// stamped.
func (r *RadioRepresentation) AllLinks() []types.LinkDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.LinkDescription{}, r.allLinks...)
}

// ExternalLinks returns only the links that cross an engine boundary.
func (r *RadioRepresentation) ExternalLinks() []types.LinkDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.LinkDescription{}, r.externalLinks...)
}

// EngineLinks returns every link (internal or external) that touches the
// named engine, for discoverability.
func (r *RadioRepresentation) EngineLinks(engineName string) []types.LinkDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.LinkDescription{}, r.engineLinks[engineName]...)
}

// EngineTopoOrder returns the engine graph's topological order, used by
// EngineManager.Load to wire external buffers in dependency order.
func (r *RadioRepresentation) EngineTopoOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.isBuilt {
		return nil, radioerr.New(radioerr.GraphStructureError, "RadioRepresentation.EngineTopoOrder", nil)
	}
	return r.engineG.TopoSort()
}

// ComponentTopoOrder returns the topological order of one engine's
// internal component graph, used by PhyEngine construction and scheduling.
func (r *RadioRepresentation) ComponentTopoOrder(engineName string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.engineSubs[engineName]
	if !ok {
		return nil, radioerr.Newf(radioerr.GraphStructureError, "RadioRepresentation.ComponentTopoOrder", "unknown engine %q", engineName)
	}
	return sub.TopoSort()
}

// GetParameterValue returns the current string value of a component's
// parameter, or "" if the component or parameter does not exist — a
// missing value is never an error, per spec §4.8.
func (r *RadioRepresentation) GetParameterValue(componentName, paramName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, engName := range r.engineOrder {
		comp, ok := r.engines[engName].Component(componentName)
		if !ok {
			continue
		}
		if p, ok := comp.Parameter(paramName); ok {
			return p.Value
		}
		return ""
	}
	return ""
}

// EngineNameFor returns the name of the engine that owns componentName.
func (r *RadioRepresentation) EngineNameFor(componentName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, engName := range r.engineOrder {
		if _, ok := r.engines[engName].Component(componentName); ok {
			return engName, true
		}
	}
	return "", false
}

// Reconfigure applies every ParametricReconfig in set, updating the value
// consistently in the engine description, the component graph and the
// engine graph (spec §4.8). A reconfig naming an unknown engine,
// component, or parameter is skipped — per spec §7's propagation policy,
// callers are expected to have logged it already.
func (r *RadioRepresentation) Reconfigure(set ReconfigSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rc := range set.Reconfigs {
		eng, ok := r.engines[rc.EngineName]
		if !ok {
			continue
		}
		for i := range eng.Components {
			if eng.Components[i].Name != rc.ComponentName {
				continue
			}
			for j := range eng.Components[i].Parameters {
				if eng.Components[i].Parameters[j].Name != types.Canon(rc.ParameterName) {
					continue
				}
				eng.Components[i].Parameters[j].Value = rc.NewValue

				key := ComponentKey{Engine: rc.EngineName, Name: rc.ComponentName}
				if r.components != nil {
					r.components.SetVertexPayload(key, eng.Components[i])
				}
				if r.engineSubs != nil {
					if sub, ok := r.engineSubs[rc.EngineName]; ok {
						sub.SetVertexPayload(rc.ComponentName, eng.Components[i])
					}
				}
				if r.engineG != nil {
					r.engineG.SetVertexPayload(rc.EngineName, *eng)
				}
			}
		}
	}
}
