package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTopologicalSortHandlesCycles(t *testing.T) {
	deps := map[string][]string{
		"table:public.a": nil,
		"table:public.b": {"table:public.a"},
		"table:public.c": {"table:public.b"},
		"table:public.x": {"table:public.y"}, // cycle x <-> y
		"table:public.y": {"table:public.x"},
		"table:public.z": {"table:public.y"}, // depends on the cycle
	}
	nodes := make([]string, 0, len(deps))
	for node := range deps {
		nodes = append(nodes, node)
	}

	sorted, broken := topologicalSort(nodes, func(sig string) []string { return deps[sig] })
	if len(sorted) != len(nodes) {
		t.Fatalf("expected %d nodes, got %d", len(nodes), len(sorted))
	}

	order := make(map[string]int, len(sorted))
	for idx, sig := range sorted {
		order[sig] = idx
	}
	assertBefore := func(first, second string) {
		if order[first] >= order[second] {
			t.Fatalf("expected %s to appear before %s in %v", first, second, sorted)
		}
	}

	assertBefore("table:public.a", "table:public.b")
	assertBefore("table:public.b", "table:public.c")
	assertBefore("table:public.y", "table:public.z")

	// Cycle members come out in signature order
	assertBefore("table:public.x", "table:public.y")
	if diff := cmp.Diff([]string{"table:public.x"}, broken); diff != "" {
		t.Errorf("broken cycle nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologicalSortTieBreaksByTypeThenSignature(t *testing.T) {
	nodes := []string{
		"view:public.v",
		"table:public.b",
		"schema:app",
		"table:public.a",
		"role:app",
	}
	sorted, broken := topologicalSort(nodes, func(string) []string { return nil })
	want := []string{"role:app", "schema:app", "table:public.a", "table:public.b", "view:public.v"}
	if diff := cmp.Diff(want, sorted); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if len(broken) != 0 {
		t.Errorf("expected no cycles, got %v", broken)
	}
}

func TestTopologicalSortIgnoresOutsideDependencies(t *testing.T) {
	nodes := []string{"view:public.v", "table:public.t"}
	sorted, _ := topologicalSort(nodes, func(sig string) []string {
		if sig == "table:public.t" {
			return []string{"schema:public", "view:public.v"}
		}
		return []string{"schema:public"}
	})
	want := []string{"view:public.v", "table:public.t"}
	if diff := cmp.Diff(want, sorted); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestReverseSlice(t *testing.T) {
	got := reverseSlice([]string{"a", "b", "c"})
	if diff := cmp.Diff([]string{"c", "b", "a"}, got); diff != "" {
		t.Errorf("reverse mismatch (-want +got):\n%s", diff)
	}
}
