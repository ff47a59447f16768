package graph

import (
	"fmt"
	"strings"
)

// Sprint renders the graph feeding the given outputs as a numbered listing in
// dependency order, one apply per line. Useful when debugging rewrites.
//
//	%0 = add(a[float64][], b[float64][])  -> float64[]
//	%1 = mul(%0, c[float64][])            -> float64[]
func Sprint(outputs ...*Var) string {
	ids := make(map[*Var]string)
	var sb strings.Builder

	ref := func(v *Var) string {
		if id, ok := ids[v]; ok {
			return id
		}
		return v.String()
	}

	for i, a := range Topological(outputs) {
		id := fmt.Sprintf("%%%d", i)
		ids[a.Output()] = id
		args := make([]string, len(a.Inputs()))
		for j, in := range a.Inputs() {
			args[j] = ref(in)
		}
		fmt.Fprintf(&sb, "%s = %s(%s) -> %s%v\n",
			id, a.Op().Name(), strings.Join(args, ", "),
			a.Output().DType(), a.Output().Shape())
	}
	for _, out := range outputs {
		fmt.Fprintf(&sb, "return %s\n", ref(out))
	}
	return sb.String()
}
