package planner

import "container/heap"

// stringHeap is a min-heap of task ids, giving Kahn's algorithm a total,
// deterministic tie-break (lexicographic on id) regardless of insertion
// order.
type stringHeap []string

func (h stringHeap) Len() int            { return len(h) }
func (h stringHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h stringHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stringHeap) Push(x interface{}) { *h = append(*h, x.(string)) }
func (h *stringHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopologicalSort orders activeIDs using Kahn's algorithm with a
// min-priority queue keyed by task id, so the output is a total,
// deterministic order across runs and implementations — the
// lexicographically minimal valid order. Every edge must have both
// endpoints in activeIDs, so callers soft-prune the rest first; an edge
// with an endpoint outside activeIDs raises a dependency error, and
// residual non-empty in-degree raises a cycle error.
func TopologicalSort(activeIDs []string, edges []Edge) ([]string, error) {
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	inDegree := make(map[string]int, len(activeIDs))
	adjacency := make(map[string][]string, len(activeIDs))
	for _, id := range activeIDs {
		inDegree[id] = 0
	}

	for _, e := range edges {
		if !active[e.From] {
			return nil, newDependencyError("unknown node: edge references unknown node %q", e.From)
		}
		if !active[e.To] {
			return nil, newDependencyError("unknown node: edge references unknown node %q", e.To)
		}
		adjacency[e.From] = append(adjacency[e.From], e.To)
		inDegree[e.To]++
	}

	for id := range adjacency {
		sortedSuccessors := append([]string(nil), adjacency[id]...)
		sortStrings(sortedSuccessors)
		adjacency[id] = sortedSuccessors
	}

	ready := &stringHeap{}
	heap.Init(ready)
	for _, id := range activeIDs {
		if inDegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]string, 0, len(activeIDs))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)

		for _, succ := range adjacency[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				heap.Push(ready, succ)
			}
		}
	}

	if len(order) < len(activeIDs) {
		var remaining []string
		for _, id := range activeIDs {
			if inDegree[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		sortStrings(remaining)
		return nil, newCycleError(remaining)
	}

	return order, nil
}

func sortStrings(s []string) {
	// Simple insertion sort is plenty for the small per-node adjacency
	// lists and remaining-node sets this function handles; avoids an
	// extra import for what is a handful of elements at most.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
