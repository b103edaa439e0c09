package aggregate

import (
	"sync"
	"testing"

	"github.com/doppelkit/doppel/pkg/compare"
	"github.com/doppelkit/doppel/pkg/entity"
)

func roster(names ...string) []*entity.Project {
	var ps []*entity.Project
	for _, n := range names {
		ps = append(ps, entity.NewProject(n, "/tmp/"+n, false, nil, "", nil))
	}
	return ps
}

func TestMatrixIsSymmetricAndOrdered(t *testing.T) {
	a := New(roster("carol", "alice", "bob"), 3, false)
	a.Add(&compare.PairResult{X: "carol", Y: "alice", Score: 0.8})
	a.Add(&compare.PairResult{X: "bob", Y: "carol", Score: 0.2})
	a.Add(&compare.PairResult{X: "alice", Y: "bob", Score: 0.5})

	res := a.Snapshot()
	want := []string{"alice", "bob", "carol"}
	for i, n := range want {
		if res.Names[i] != n {
			t.Fatalf("names = %v, want %v", res.Names, want)
		}
	}
	if !res.Complete() {
		t.Errorf("3 of 3 pairs recorded, Complete() = false")
	}
	for i := range res.Matrix {
		for j := range res.Matrix[i] {
			if res.Matrix[i][j] != res.Matrix[j][i] {
				t.Errorf("matrix[%d][%d] != matrix[%d][%d]", i, j, j, i)
			}
		}
		if res.Matrix[i][i] != 0 {
			t.Errorf("diagonal[%d] = %f", i, res.Matrix[i][i])
		}
	}
	if got := res.Cell("carol", "alice"); got != 0.8 {
		t.Errorf("Cell(carol, alice) = %f, want 0.8", got)
	}
}

func TestIncompletePairs(t *testing.T) {
	a := New(roster("alice", "bob"), 1, false)
	a.Add(&compare.PairResult{X: "alice", Y: "bob", Incomplete: true, Err: "index load failed"})

	res := a.Snapshot()
	if res.Complete() {
		t.Error("failed pair reported as complete")
	}
	if len(res.Incomplete) != 1 || res.Incomplete[0].Reason != "index load failed" {
		t.Errorf("incomplete = %+v", res.Incomplete)
	}
	if got := res.Cell("alice", "bob"); got != -1 {
		t.Errorf("uncompared cell = %f, want -1", got)
	}
}

func TestDetailsOnlyWhenRequested(t *testing.T) {
	m := []entity.Match{{A: entity.Ref{Name: "f"}, B: entity.Ref{Name: "g"}, Score: 1}}

	quiet := New(roster("a", "b"), 1, false)
	quiet.Add(&compare.PairResult{X: "a", Y: "b", Score: 1, Matches: m})
	if got := quiet.Snapshot(); len(got.Details) != 0 {
		t.Errorf("details kept without reporting enabled: %+v", got.Details)
	}

	verbose := New(roster("a", "b"), 1, true)
	verbose.Add(&compare.PairResult{X: "a", Y: "b", Score: 1, Matches: m})
	got := verbose.Snapshot()
	if len(got.Details) != 1 || len(got.Details[0].Matches) != 1 {
		t.Errorf("details = %+v", got.Details)
	}
}

func TestTemplatesListed(t *testing.T) {
	ps := roster("alice", "bob")
	ps = append(ps, entity.NewProject("starter", "/tmp/starter", true, nil, "", nil))
	res := New(ps, 2, false).Snapshot()
	if len(res.Templates) != 1 || res.Templates[0] != "starter" {
		t.Errorf("templates = %v", res.Templates)
	}
}

func TestConcurrentAdds(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	a := New(roster(names...), 10, false)

	var wg sync.WaitGroup
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			wg.Add(1)
			go func(x, y string) {
				defer wg.Done()
				a.Add(&compare.PairResult{X: x, Y: y, Score: 0.5})
			}(names[i], names[j])
		}
	}
	wg.Wait()

	res := a.Snapshot()
	if res.Pairs != 10 || !res.Complete() {
		t.Errorf("pairs = %d, complete = %v", res.Pairs, res.Complete())
	}
}

func TestUnknownPairGoesIncomplete(t *testing.T) {
	a := New(roster("alice"), 1, false)
	a.Add(&compare.PairResult{X: "alice", Y: "mallory", Score: 0.9})
	res := a.Snapshot()
	if res.Pairs != 0 || len(res.Incomplete) != 1 {
		t.Errorf("pairs = %d, incomplete = %+v", res.Pairs, res.Incomplete)
	}
}
