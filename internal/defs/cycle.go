package defs

import "strings"

// callGraph maps a user definition to the command names its body invokes.
// Edges to builtins or unknown names lead to nodes without successors.
type callGraph map[string][]string

// findCycleThrough returns a cycle path starting and ending at start, such as
// ["a", "b", "a"], or nil when start is not on a cycle.
func findCycleThrough(graph callGraph, start string) []string {
	for _, scc := range tarjanSCC(graph) {
		if !contains(scc, start) {
			continue
		}
		if len(scc) == 1 && !hasSelfLoop(start, graph) {
			return nil
		}
		return reconstructCyclePath(start, scc, graph)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasSelfLoop(node string, graph callGraph) bool {
	return contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// A single-node component is only a cycle if the node calls itself.
func tarjanSCC(graph callGraph) [][]string {
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

		// v is the root of a component: pop it off the stack.
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

	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath returns the shortest walk inside the component from
// start back to start.
func reconstructCyclePath(start string, scc []string, graph callGraph) []string {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	prev := make(map[string]string)
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range graph[cur] {
			if n == start {
				var rev []string
				for at := cur; at != start; at = prev[at] {
					rev = append(rev, at)
				}
				path := []string{start}
				for i := len(rev) - 1; i >= 0; i-- {
					path = append(path, rev[i])
				}
				return append(path, start)
			}
			if member[n] && !seen[n] {
				seen[n] = true
				prev[n] = cur
				queue = append(queue, n)
			}
		}
	}
	return []string{start}
}

func formatCycle(path []string) string {
	return strings.Join(path, " → ")
}
