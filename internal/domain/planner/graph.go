package planner

import "sort"

// Edge is a directed dependency edge between two task ids.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ValidateGraph enforces the template's structural invariants: nodes
// must be a distinct set equal to the task-key set, every edge must
// reference a known node, and the node+edge set must form a DAG. Errors
// are distinguished by message prefix, per the grammar spec.md requires:
// "Duplicate node ids", "Node missing in tasks", "Task missing in
// graph.nodes", "unknown node", "Cycle detected".
func ValidateGraph(nodes []string, taskKeys []string, edges []Edge) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			return newInputError("Duplicate node ids: %q", n)
		}
		seen[n] = true
	}

	taskKeySet := make(map[string]bool, len(taskKeys))
	for _, k := range taskKeys {
		taskKeySet[k] = true
	}

	for n := range seen {
		if !taskKeySet[n] {
			return newInputError("Node missing in tasks: %q", n)
		}
	}
	for k := range taskKeySet {
		if !seen[k] {
			return newInputError("Task missing in graph.nodes: %q", k)
		}
	}

	for _, e := range edges {
		if !seen[e.From] {
			return newDependencyError("unknown node: edge references unknown node %q", e.From)
		}
		if !seen[e.To] {
			return newDependencyError("unknown node: edge references unknown node %q", e.To)
		}
	}

	return detectCycle(nodes, edges)
}

// detectCycle runs Kahn's algorithm over a sorted initial ready set.
// Order is irrelevant here (unlike the deterministic topological sort in
// toposort.go) — only whether a cycle exists, and which nodes it leaves
// behind, matters for structural validation.
func detectCycle(nodes []string, edges []Edge) error {
	inDegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		inDegree[n] = 0
	}
	for _, e := range edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
		inDegree[e.To]++
	}

	var ready []string
	for _, n := range nodes {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	visited := 0
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		visited++

		successors := append([]string(nil), adjacency[n]...)
		sort.Strings(successors)
		for _, succ := range successors {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if visited < len(nodes) {
		var remaining []string
		for _, n := range nodes {
			if inDegree[n] > 0 {
				remaining = append(remaining, n)
			}
		}
		sort.Strings(remaining)
		return newCycleError(remaining)
	}

	return nil
}
