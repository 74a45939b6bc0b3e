// Package radiograph implements the component-level and engine-level
// graphs that back RadioRepresentation (spec §4.8) and the reconfiguration
// diff between two representations (spec §4.9).
package radiograph

import (
	"fmt"
	"sort"
)

// Edge is a directed edge carrying an arbitrary payload, used for both the
// component graph (payload = LinkDescription) and the engine graph
// (payload = LinkDescription, one per external link).
type Edge[K comparable, EP any] struct {
	From, To K
	Payload  EP
}

// Graph is a directed graph with bundled vertex and edge payloads (spec
// §3 "Graphs"). Vertex insertion order is preserved so TopoSort produces a
// stable ordering when dependencies allow more than one valid sequence.
type Graph[K comparable, VP any, EP any] struct {
	order    []K
	vertex   map[K]VP
	outEdges map[K][]Edge[K, EP]
	inEdges  map[K][]Edge[K, EP]
}

// NewGraph returns an empty graph.
func NewGraph[K comparable, VP any, EP any]() *Graph[K, VP, EP] {
	return &Graph[K, VP, EP]{
		vertex:   make(map[K]VP),
		outEdges: make(map[K][]Edge[K, EP]),
		inEdges:  make(map[K][]Edge[K, EP]),
	}
}

// AddVertex registers k with the given payload if it is not already
// present; re-adding an existing vertex overwrites its payload.
func (g *Graph[K, VP, EP]) AddVertex(k K, payload VP) {
	if _, ok := g.vertex[k]; !ok {
		g.order = append(g.order, k)
	}
	g.vertex[k] = payload
}

// HasVertex reports whether k was registered with AddVertex.
func (g *Graph[K, VP, EP]) HasVertex(k K) bool {
	_, ok := g.vertex[k]
	return ok
}

// VertexPayload returns the payload stored for k.
func (g *Graph[K, VP, EP]) VertexPayload(k K) (VP, bool) {
	v, ok := g.vertex[k]
	return v, ok
}

// SetVertexPayload overwrites the payload stored for an already-present
// vertex; it is a no-op if k was never added.
func (g *Graph[K, VP, EP]) SetVertexPayload(k K, payload VP) {
	if _, ok := g.vertex[k]; ok {
		g.vertex[k] = payload
	}
}

// AddEdge records a directed edge from -> to. Both endpoints must already
// be vertices.
func (g *Graph[K, VP, EP]) AddEdge(from, to K, payload EP) {
	e := Edge[K, EP]{From: from, To: to, Payload: payload}
	g.outEdges[from] = append(g.outEdges[from], e)
	g.inEdges[to] = append(g.inEdges[to], e)
}

// Vertices returns the registered vertices in insertion order.
func (g *Graph[K, VP, EP]) Vertices() []K {
	out := make([]K, len(g.order))
	copy(out, g.order)
	return out
}

// EdgesFrom returns the edges leaving k, in insertion order.
func (g *Graph[K, VP, EP]) EdgesFrom(k K) []Edge[K, EP] { return g.outEdges[k] }

// EdgesTo returns the edges arriving at k, in insertion order.
func (g *Graph[K, VP, EP]) EdgesTo(k K) []Edge[K, EP] { return g.inEdges[k] }

// EdgeCount returns the total number of edges in the graph.
func (g *Graph[K, VP, EP]) EdgeCount() int {
	n := 0
	for _, edges := range g.outEdges {
		n += len(edges)
	}
	return n
}

// TopoSort returns a topological ordering of the graph's vertices,
// resolved with the same iterative "progressed" loop used to order
// module startup: repeatedly take any vertex all of whose predecessors
// are already placed, until nothing more can progress. A cycle (or a
// predecessor outside the graph) leaves some vertices stuck, which is
// reported as an error instead of silently dropping them.
func (g *Graph[K, VP, EP]) TopoSort() ([]K, error) {
	resolved := make([]K, 0, len(g.order))
	done := make(map[K]bool, len(g.order))

	for len(resolved) < len(g.order) {
		progressed := false

		for _, v := range g.order {
			if done[v] {
				continue
			}
			waiting := false
			for _, e := range g.inEdges[v] {
				if !done[e.From] {
					waiting = true
					break
				}
			}
			if waiting {
				continue
			}
			resolved = append(resolved, v)
			done[v] = true
			progressed = true
		}

		if !progressed {
			var stuck []string
			for _, v := range g.order {
				if !done[v] {
					stuck = append(stuck, fmt.Sprintf("%v", v))
				}
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("radiograph: cycle or unresolved predecessor among: %v", stuck)
		}
	}

	return resolved, nil
}
