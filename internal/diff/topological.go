package diff

import (
	"slices"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// topologicalSort orders nodes so that every node comes after the nodes it
// depends on. deps returns the dependencies of a node; dependencies outside
// nodes are ignored. Ties are broken by object type order, then signature.
//
// Cycles are broken by taking the first unprocessed node in that same order
// and treating it as having no remaining dependencies. The nodes chosen this
// way are returned as broken.
func topologicalSort(nodes []string, deps func(string) []string) (sorted, broken []string) {
	if len(nodes) <= 1 {
		return slices.Clone(nodes), nil
	}

	insertionOrder := slices.Clone(nodes)
	slices.SortFunc(insertionOrder, ir.CompareSignatures)
	insertionOrder = slices.Compact(insertionOrder)

	inDegree := make(map[string]int, len(insertionOrder))
	adjList := make(map[string][]string, len(insertionOrder))
	for _, node := range insertionOrder {
		inDegree[node] = 0
	}

	// Edge dep -> node for every dependency inside the set
	for _, node := range insertionOrder {
		seen := map[string]bool{}
		for _, dep := range deps(node) {
			if _, ok := inDegree[dep]; !ok || dep == node || seen[dep] {
				continue
			}
			seen[dep] = true
			adjList[dep] = append(adjList[dep], node)
			inDegree[node]++
		}
	}

	var queue []string
	processed := make(map[string]bool, len(insertionOrder))
	for _, node := range insertionOrder {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	for len(sorted) < len(insertionOrder) {
		if len(queue) == 0 {
			next := nextInOrder(insertionOrder, processed)
			if next == "" {
				break
			}
			broken = append(broken, next)
			queue = append(queue, next)
			inDegree[next] = 0
		}

		current := queue[0]
		queue = queue[1:]
		if processed[current] {
			continue
		}
		processed[current] = true
		sorted = append(sorted, current)

		neighbors := slices.Clone(adjList[current])
		slices.SortFunc(neighbors, ir.CompareSignatures)
		for _, neighbor := range neighbors {
			inDegree[neighbor]--
			// processed nodes may reach zero again after a cycle break
			if inDegree[neighbor] <= 0 && !processed[neighbor] {
				queue = append(queue, neighbor)
				slices.SortFunc(queue, ir.CompareSignatures)
			}
		}
	}
	return sorted, broken
}

// reverseSlice returns a new slice with elements in reverse order
func reverseSlice[T any](slice []T) []T {
	reversed := make([]T, len(slice))
	for i, v := range slice {
		reversed[len(slice)-1-i] = v
	}
	return reversed
}

func nextInOrder(order []string, processed map[string]bool) string {
	for _, key := range order {
		if !processed[key] {
			return key
		}
	}
	return ""
}
