// Package adapters bridges host-framework agent representations and the
// optimizer's genome model. An adapter extracts the mutable text of a host
// value into a genome and injects an evolved genome back, leaving everything
// else about the host value untouched.
package adapters

import "github.com/XiaoConstantine/textevo-go/pkg/core"

// Adapter converts between a host representation R and a genome.
//
// Implementations must satisfy the round-trip law: for any valid r,
// Inject(g, r) with g = Extract(r) returns a value equal to r. Inject never
// mutates its input; it returns a modified copy.
type Adapter[R any] interface {
	Extract(r R) (*core.Genome, error)
	Inject(genome *core.Genome, r R) (R, error)
}
