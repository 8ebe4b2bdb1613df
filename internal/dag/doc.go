// Package dag resolves the evaluation order of a form's computed fields.
//
// Each computed field is a node; an edge a -> b means b's formula reads a.
// A depth-first topological sort yields an order in which every field is
// evaluated after the fields it reads, and reports the first cycle it
// meets as a *CircularDependencyError. A form with a cycle can never
// produce a value, so callers block saving or publishing it.
//
// Fields with no relationship to each other may appear in any relative
// order; their position in the form's layout plays no part. Levels groups
// the order into waves that can be evaluated concurrently.
package dag
