package dag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/calcfield/internal/formula"
)

// Graph is a collection of computed fields and the "reads" relationships
// between them. All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by field key.
	nodes map[string]*node
	// order records insertion order so traversals are deterministic.
	order []string
}

// node represents a single computed field. It is un-exported to enforce
// interaction with the graph via the public API (using string IDs).
type node struct {
	id string
	// deps holds the nodes this node reads (predecessors).
	deps map[string]*node
	// depOrder is deps in the order the edges were added.
	depOrder []string
	// dependents holds the nodes that read this node (successors).
	dependents map[string]*node
}

// Definition is the part of a computed field the resolver needs.
type Definition struct {
	Key     string `json:"key" yaml:"key"`
	Formula string `json:"formula" yaml:"formula"`
}

// CircularDependencyError reports a dependency chain that returns to its
// starting field. Cycle starts and ends with the same key, for example
// [a b a]; a field that reads itself yields [a a].
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(e.Cycle, " -> ")
}

func (e *CircularDependencyError) Kind() formula.ErrorKind {
	return formula.KindCircularDependency
}

func (e *CircularDependencyError) UserMessage() string {
	return "Circular dependency between computed fields: " + strings.Join(e.Cycle, " → ")
}

// DuplicateKeyError reports two computed fields sharing a key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate computed field key %q", e.Key)
}
