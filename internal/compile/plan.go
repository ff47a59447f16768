package compile

import (
	"github.com/glia-ml/glia/internal/graph"
)

// plan holds what the VM needs beyond the graph itself: per-variable use
// counts (to decide when an intermediate may be overwritten in place) and the
// shared cells the function reads.
type plan struct {
	roots  []*graph.Var
	shared []*graph.Shared

	// uses counts consumers per variable: apply nodes reading it plus one
	// per appearance as a root. A root use is never released, so output and
	// update values are never clobbered by in-place kernels.
	uses map[*graph.Var]int
}

func newPlan(roots []*graph.Var) *plan {
	p := &plan{
		roots:  roots,
		shared: graph.SharedVars(roots),
		uses:   make(map[*graph.Var]int),
	}
	for _, a := range graph.Topological(roots) {
		for _, in := range a.Inputs() {
			p.uses[in]++
		}
	}
	for _, r := range roots {
		p.uses[r]++
	}
	return p
}
