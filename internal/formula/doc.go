// Package formula implements the expression language of computed form
// fields: `{loanamount} * {rate} / 100`.
//
// # Pipeline
//
// Callers run the same pure pipeline on every edit or submission:
//
//	text -> ValidateFormula -> ExtractDependencies -> CalculateValue -> format.Format
//
// None of the functions keep state between calls, so they are safe to call
// from any number of goroutines.
//
// # Grammar
//
//	expr   := term (('+' | '-') term)*
//	term   := factor (('*' | '/') factor)*
//	factor := '-' factor | '(' expr ')' | number | '{' identifier '}'
//
// Field keys inside braces are letters and digits only. Keys are expected to
// be already normalized by the caller (lower-cased, whitespace removed) and
// unique within a form.
//
// # Safety
//
// Formulas are never executed as host code. Evaluate walks the parsed tree
// and knows exactly four operators plus negation; there is no function
// call, variable assignment, or loop construct to reach.
package formula
