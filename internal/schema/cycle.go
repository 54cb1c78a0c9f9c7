package schema

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning reports a cycle between complex references.
//
// Cycles between type names are allowed: helpers resolve references lazily and
// terminate with the data. They are still worth knowing about because cyclic
// data then only stops at the helper's depth bound.
type CycleWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// referenceGraph maps type name → types its complex properties reference.
type referenceGraph map[string][]string

// AnalyzeCycles finds cycles in the complex-reference graph of defs.
// A DAG returns an empty list.
func AnalyzeCycles(defs []*TypeDef) []CycleWarning {
	graph := make(referenceGraph, len(defs))
	for _, def := range defs {
		refs := make([]string, 0, len(def.Complex))
		for _, ref := range def.Complex {
			if !slices.Contains(refs, ref) {
				refs = append(refs, ref)
			}
		}
		slices.Sort(refs)
		graph[def.Name] = refs
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !slices.Contains(graph[scc[0]], scc[0]) {
			continue
		}
		warnings = append(warnings, sccToWarning(scc, graph))
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(graph referenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToWarning walks the component from its smallest name back to the start.
func sccToWarning(scc []string, graph referenceGraph) CycleWarning {
	members := slices.Clone(scc)
	slices.Sort(members)

	start := members[0]
	path := []string{start}
	seen := map[string]bool{start: true}
	cur := start
	for {
		next := ""
		for _, w := range graph[cur] {
			if w == start && len(path) == len(members) {
				next = w
				break
			}
			if slices.Contains(members, w) && !seen[w] {
				next = w
				break
			}
		}
		if next == "" {
			next = start
		}
		path = append(path, next)
		if next == start {
			break
		}
		seen[next] = true
		cur = next
	}

	if len(members) == 1 {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("Self-referencing type: %s", start),
			Level:   "info",
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Complex reference cycle: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// orderByExtends returns defs with every base before the types extending it.
// Bases outside defs must already be registered (known reports that).
func orderByExtends(defs []*TypeDef, known func(string) bool) ([]*TypeDef, []error) {
	byName := make(map[string]*TypeDef, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	ordered := make([]*TypeDef, 0, len(defs))
	var errs []error

	var visit func(def *TypeDef, chain []string) bool
	visit = func(def *TypeDef, chain []string) bool {
		switch state[def.Name] {
		case done:
			return true
		case visiting:
			errs = append(errs, &LoadError{
				Code:    ErrCodeExtendsCycle,
				Message: fmt.Sprintf("extends cycle: %s", strings.Join(append(chain, def.Name), " → ")),
				Pos:     def.Source.Pos(),
			})
			return false
		}
		state[def.Name] = visiting
		if def.Extends != "" {
			base, local := byName[def.Extends]
			switch {
			case local:
				if !visit(base, append(chain, def.Name)) {
					state[def.Name] = done
					return false
				}
			case !known(def.Extends):
				errs = append(errs, &LoadError{
					Code:    ErrCodeUnknownBase,
					Message: fmt.Sprintf("type '%s' extends unknown type '%s'", def.Name, def.Extends),
					Pos:     def.Source.Pos(),
				})
				state[def.Name] = done
				return false
			}
		}
		state[def.Name] = done
		ordered = append(ordered, def)
		return true
	}

	for _, def := range defs {
		visit(def, nil)
	}
	return ordered, errs
}
