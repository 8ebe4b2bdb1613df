package dag

import (
	"github.com/specialistvlad/calcfield/internal/formula"
)

// Build constructs the dependency graph of a form's computed fields. Only
// references between computed fields become edges; references to plain
// input fields are leaves supplied by submitted values. A formula that does
// not parse contributes no edges.
//
// Build does not check for cycles; call TopologicalOrder or Levels.
func Build(defs []Definition) (*Graph, error) {
	graph := New()

	// First pass: one node per computed field.
	for _, def := range defs {
		if _, exists := graph.nodes[def.Key]; exists {
			return nil, &DuplicateKeyError{Key: def.Key}
		}
		graph.AddNode(def.Key)
	}

	// Second pass: link the fields each formula reads.
	for _, def := range defs {
		for _, dep := range formula.ExtractDependencies(def.Formula) {
			if _, computed := graph.nodes[dep]; !computed {
				continue
			}
			if err := graph.AddEdge(dep, def.Key); err != nil {
				return nil, err
			}
		}
	}

	return graph, nil
}

// ResolveEvaluationOrder returns the keys of defs ordered so that every
// computed field comes after the computed fields it reads. It fails with a
// *CircularDependencyError when no such order exists.
func ResolveEvaluationOrder(defs []Definition) ([]string, error) {
	graph, err := Build(defs)
	if err != nil {
		return nil, err
	}
	return graph.TopologicalOrder()
}
