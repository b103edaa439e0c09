// Package aggregate collects pairwise comparison results into a
// report-ready similarity matrix.
package aggregate

import (
	"sort"
	"sync"

	"github.com/doppelkit/doppel/pkg/compare"
	"github.com/doppelkit/doppel/pkg/entity"
)

// Detail records the per-entity matches behind one pair's score. Only
// populated when match reporting is enabled; the matrix alone is
// usually what reviewers want.
type Detail struct {
	X       string         `json:"x"`
	Y       string         `json:"y"`
	Score   float64        `json:"score"`
	Matches []entity.Match `json:"matches,omitempty"`
}

// Incomplete names a pair whose comparison failed, with the cause.
type Incomplete struct {
	X      string `json:"x"`
	Y      string `json:"y"`
	Reason string `json:"reason"`
}

// Result is an immutable snapshot of a finished run.
type Result struct {
	Names      []string     `json:"names"`
	Templates  []string     `json:"templates,omitempty"`
	Matrix     [][]float64  `json:"matrix"`
	Details    []Detail     `json:"details,omitempty"`
	Incomplete []Incomplete `json:"incomplete,omitempty"`
	Pairs      int          `json:"pairs"`
	Expected   int          `json:"expected"`
}

// Complete reports whether every expected pair produced a score.
func (r *Result) Complete() bool {
	return r.Pairs == r.Expected && len(r.Incomplete) == 0
}

// Cell returns the score between two names, or -1 when either name is
// unknown or the pair was never compared.
func (r *Result) Cell(x, y string) float64 {
	i := r.index(x)
	j := r.index(y)
	if i < 0 || j < 0 {
		return -1
	}
	return r.Matrix[i][j]
}

func (r *Result) index(name string) int {
	for i, n := range r.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Aggregator accumulates pair results from concurrent workers.
type Aggregator struct {
	mu          sync.Mutex
	names       []string
	templates   map[string]bool
	pos         map[string]int
	matrix      [][]float64
	details     []Detail
	incomplete  []Incomplete
	pairs       int
	expected    int
	keepMatches bool
}

// New builds an aggregator over a fixed roster of projects. The name
// order of the matrix is alphabetical regardless of completion order,
// so repeated runs over the same roster line up.
func New(projects []*entity.Project, expected int, keepMatches bool) *Aggregator {
	a := &Aggregator{
		templates:   make(map[string]bool, len(projects)),
		pos:         make(map[string]int, len(projects)),
		expected:    expected,
		keepMatches: keepMatches,
	}
	for _, p := range projects {
		a.names = append(a.names, p.Name)
		if p.IsTemplate {
			a.templates[p.Name] = true
		}
	}
	sort.Strings(a.names)
	for i, n := range a.names {
		a.pos[n] = i
	}
	a.matrix = make([][]float64, len(a.names))
	for i := range a.matrix {
		a.matrix[i] = make([]float64, len(a.names))
		for j := range a.matrix[i] {
			if i != j {
				a.matrix[i][j] = -1
			}
		}
	}
	return a
}

// Add records one pair result. Failed pairs land in the incomplete
// list instead of the matrix. Safe for concurrent use.
func (a *Aggregator) Add(r *compare.PairResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r.Incomplete {
		reason := "comparison failed"
		if r.Err != "" {
			reason = r.Err
		}
		a.incomplete = append(a.incomplete, Incomplete{X: r.X, Y: r.Y, Reason: reason})
		return
	}

	i, okX := a.pos[r.X]
	j, okY := a.pos[r.Y]
	if !okX || !okY || i == j {
		a.incomplete = append(a.incomplete, Incomplete{X: r.X, Y: r.Y, Reason: "unknown pair"})
		return
	}

	a.matrix[i][j] = r.Score
	a.matrix[j][i] = r.Score
	a.pairs++

	if a.keepMatches {
		a.details = append(a.details, Detail{X: r.X, Y: r.Y, Score: r.Score, Matches: r.Matches})
	}
}

// Snapshot freezes the accumulated state into a Result. The aggregator
// may keep receiving Adds afterwards; the snapshot does not alias its
// internal slices.
func (a *Aggregator) Snapshot() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := &Result{
		Names:    append([]string(nil), a.names...),
		Matrix:   make([][]float64, len(a.matrix)),
		Pairs:    a.pairs,
		Expected: a.expected,
	}
	for _, n := range a.names {
		if a.templates[n] {
			res.Templates = append(res.Templates, n)
		}
	}
	for i, row := range a.matrix {
		res.Matrix[i] = append([]float64(nil), row...)
	}
	res.Details = append([]Detail(nil), a.details...)
	res.Incomplete = append([]Incomplete(nil), a.incomplete...)

	sort.Slice(res.Details, func(i, j int) bool {
		if res.Details[i].X != res.Details[j].X {
			return res.Details[i].X < res.Details[j].X
		}
		return res.Details[i].Y < res.Details[j].Y
	})
	return res
}
