// Package textevo is a framework-agnostic reflective text-evolution
// optimizer. It evolves the text components of an agent configuration (the
// genome) against a set of behavior scenarios, using caller-supplied
// evaluate and reflect callbacks as its only outward seams.
//
// The main entry point is pkg/optimize.Optimize. Adapters for common host
// representations live in pkg/adapters, a model-backed reflection callback
// in pkg/llms, and artifact persistence in pkg/store.
package textevo
