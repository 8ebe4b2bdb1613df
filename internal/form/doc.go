// Package form models the fields of a form as far as the formula engine
// cares: which fields are computed, what they compute, and how their values
// are displayed.
package form
