package dag

import (
	"fmt"
	"slices"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// AddEdge records that `toID` reads `fromID`. A self-edge is accepted: it
// is a cycle of length one and is reported by TopologicalOrder like any
// other cycle. An error is returned if either node does not exist.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, exists := toNode.deps[fromID]; exists {
		return nil
	}
	toNode.deps[fromID] = fromNode
	toNode.depOrder = append(toNode.depOrder, fromID)
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the sorted IDs of the nodes the given node reads.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps, nil
}

// Dependents returns the sorted IDs of the nodes that read the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	dependents := make([]string, 0, len(n.dependents))
	for depID := range n.dependents {
		dependents = append(dependents, depID)
	}
	sort.Strings(dependents)
	return dependents, nil
}

// DetectCycles checks the graph for any cycles. It returns a
// *CircularDependencyError describing the first cycle found.
func (g *Graph) DetectCycles() error {
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns every node ID with dependencies before their
// dependents. Nodes are visited in insertion order, so the result is
// stable for a given sequence of AddNode and AddEdge calls.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three states:
	// done: fully visited, known not to be on a cycle.
	// onStack: in the recursion stack of the current traversal.
	// unvisited: everything else.
	done := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool)
	var stack []string
	order := make([]string, 0, len(g.nodes))

	var visit func(n *node) error
	visit = func(n *node) error {
		onStack[n.id] = true
		stack = append(stack, n.id)

		for _, depID := range n.depOrder {
			if onStack[depID] {
				// Back-edge: the cycle runs from the re-visited node to the
				// top of the stack and back.
				start := slices.Index(stack, depID)
				cycle := append(slices.Clone(stack[start:]), depID)
				return &CircularDependencyError{Cycle: cycle}
			}
			if !done[depID] {
				if err := visit(n.deps[depID]); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		done[n.id] = true
		order = append(order, n.id)
		return nil
	}

	for _, id := range g.order {
		if !done[id] {
			if err := visit(g.nodes[id]); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// Levels groups the nodes into evaluation waves: every node's
// dependencies live in strictly earlier waves, so the nodes of one wave
// can be evaluated concurrently.
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	depth := make(map[string]int, len(order))
	var levels [][]string
	for _, id := range order {
		d := 0
		for depID := range g.nodes[id].deps {
			d = max(d, depth[depID]+1)
		}
		depth[id] = d
		if d == len(levels) {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	return levels, nil
}
