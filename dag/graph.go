package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph over named nodes. An edge from -> to means
// "to depends on from": from must load before to.
type Graph struct {
	nodes map[string]struct{}
	// dependents maps a node to the nodes that depend on it.
	dependents map[string][]string
	// dependencies maps a node to the nodes it depends on.
	dependencies map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:        make(map[string]struct{}),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
	}
}

// AddNode adds a named node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	g.nodes[name] = struct{}{}
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// AddEdge records that dependent depends on dependency. Both nodes must
// already exist.
func (g *Graph) AddEdge(dependency, dependent string) error {
	if !g.HasNode(dependency) {
		return fmt.Errorf("dag: edge references unknown node %q", dependency)
	}
	if !g.HasNode(dependent) {
		return fmt.Errorf("dag: edge references unknown node %q", dependent)
	}
	g.dependents[dependency] = append(g.dependents[dependency], dependent)
	g.dependencies[dependent] = append(g.dependencies[dependent], dependency)
	return nil
}

// RemoveNode deletes a node and prunes every edge touching it.
func (g *Graph) RemoveNode(name string) {
	delete(g.nodes, name)
	delete(g.dependents, name)
	delete(g.dependencies, name)
	for n, list := range g.dependents {
		g.dependents[n] = remove(list, name)
	}
	for n, list := range g.dependencies {
		g.dependencies[n] = remove(list, name)
	}
}

// Dependencies returns the direct dependencies of a node.
func (g *Graph) Dependencies(name string) []string {
	return append([]string(nil), g.dependencies[name]...)
}

// Dependents returns the nodes that directly depend on the given node.
func (g *Graph) Dependents(name string) []string {
	return append([]string(nil), g.dependents[name]...)
}

// HasCycle reports whether the graph contains a cycle. It runs a
// depth-first traversal carrying an explicit on-stack set, distinct from
// the visited set, so back-edges are detected correctly even when a node
// is reachable through diamond-shaped dependencies.
func (g *Graph) HasCycle() bool {
	visited := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))

	var visit func(string) bool
	visit = func(n string) bool {
		visited[n] = true
		onStack[n] = true
		for _, dep := range g.dependents[n] {
			if onStack[dep] {
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}
		onStack[n] = false
		return false
	}

	for n := range g.nodes {
		if !visited[n] && visit(n) {
			return true
		}
	}
	return false
}

// TopoOrder computes a topological order via Kahn's algorithm: nodes are
// dequeued as their in-degree drops to zero. Zero-in-degree ties are
// broken alphabetically so the order is deterministic. If a cycle keeps
// part of the graph unprocessed, the error names the stuck nodes.
func (g *Graph) TopoOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for n := range g.nodes {
		inDegree[n] = len(g.dependencies[n])
	}

	var queue []string
	for n, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var next []string
		for _, dep := range g.dependents[n] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				next = append(next, dep)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for n, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, n)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dag: cycle detected among nodes %v", stuck)
	}

	return order, nil
}

func remove(list []string, name string) []string {
	out := list[:0]
	for _, v := range list {
		if v != name {
			out = append(out, v)
		}
	}
	return out
}
