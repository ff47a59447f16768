package graph

// Topological returns every Apply reachable from outputs in dependency order:
// each node appears after all of its input producers. Leaves (inputs,
// constants, shared variables) have no Apply and do not appear.
func Topological(outputs []*Var) []*Apply {
	var order []*Apply
	visited := make(map[*Apply]bool)

	var visit func(v *Var)
	visit = func(v *Var) {
		a := v.Owner()
		if a == nil || visited[a] {
			return
		}
		visited[a] = true
		for _, in := range a.Inputs() {
			visit(in)
		}
		order = append(order, a)
	}
	for _, out := range outputs {
		visit(out)
	}
	return order
}

// Ancestors returns every variable reachable from outputs, including the
// outputs themselves and all leaves, deduplicated in first-visit order.
func Ancestors(outputs []*Var) []*Var {
	var vars []*Var
	seen := make(map[*Var]bool)

	var visit func(v *Var)
	visit = func(v *Var) {
		if seen[v] {
			return
		}
		seen[v] = true
		if a := v.Owner(); a != nil {
			for _, in := range a.Inputs() {
				visit(in)
			}
		}
		vars = append(vars, v)
	}
	for _, out := range outputs {
		visit(out)
	}
	return vars
}

// Inputs returns the free input variables reachable from outputs, in
// first-visit order.
func Inputs(outputs []*Var) []*Var {
	var ins []*Var
	for _, v := range Ancestors(outputs) {
		if v.IsInput() {
			ins = append(ins, v)
		}
	}
	return ins
}

// SharedVars returns the shared cells reachable from outputs, deduplicated in
// first-visit order.
func SharedVars(outputs []*Var) []*Shared {
	var cells []*Shared
	seen := make(map[*Shared]bool)
	for _, v := range Ancestors(outputs) {
		if s := v.SharedCell(); s != nil && !seen[s] {
			seen[s] = true
			cells = append(cells, s)
		}
	}
	return cells
}
