// Package expr evaluates the small expression languages embedded in node
// configuration: boolean conditions (HCL syntax, variables only) and
// {{state.path}} placeholders.
package expr
