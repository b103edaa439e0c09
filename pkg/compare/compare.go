// Package compare scores pairs of projects. Every top-level entity of
// one project is scored against every same-group entity of the other,
// a non-conflicting set of best matches is selected, and the pair score
// is the confidence-weighted mean of the accepted matches with
// unmatched entities counted against it.
package compare

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/doppelkit/doppel/pkg/entity"
	"github.com/doppelkit/doppel/pkg/matcher"
)

// Options tunes project-pair comparison.
type Options struct {
	// MinScore is the acceptance threshold for a match. Pairs scoring
	// below it stay unmatched.
	MinScore float64
	// SkipShortEntities excludes trivially small entities (getters,
	// setters, empty constructors) from scoring entirely.
	SkipShortEntities bool
	// ShortEntityEvidence is the evidence floor below which an entity
	// counts as trivially small.
	ShortEntityEvidence int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{MinScore: 0.3, ShortEntityEvidence: 3}
}

// PairResult aggregates one project pair's comparison.
type PairResult struct {
	X          string         `json:"x"`
	Y          string         `json:"y"`
	XTemplate  bool           `json:"x_template,omitempty"`
	YTemplate  bool           `json:"y_template,omitempty"`
	Score      float64        `json:"score"`
	Matches    []entity.Match `json:"matches,omitempty"`
	Incomplete bool           `json:"incomplete,omitempty"`
	Err        string         `json:"error,omitempty"`
}

// Comparator performs bipartite entity scoring for project pairs.
type Comparator struct {
	m    *matcher.Matcher
	opts Options
}

// New creates a comparator using the given matcher.
func New(m *matcher.Matcher, opts Options) *Comparator {
	return &Comparator{m: m, opts: opts}
}

// Compare scores two distinct projects. Indexes are acquired for the
// duration of the comparison and released before returning, so a
// memory gate can evict them between comparisons.
func (c *Comparator) Compare(x, y *entity.Project) (*PairResult, error) {
	if x.Name == y.Name {
		return nil, fmt.Errorf("refusing to compare project %q to itself", x.Name)
	}

	// Acquire in name order so concurrent comparisons sharing a
	// project take indexes in a single global order.
	first, second := x, y
	if second.Name < first.Name {
		first, second = second, first
	}
	ixFirst, err := first.Acquire()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", first.Name, err)
	}
	defer first.Release()
	ixSecond, err := second.Acquire()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", second.Name, err)
	}
	defer second.Release()

	ix, iy := ixFirst, ixSecond
	if first != x {
		ix, iy = ixSecond, ixFirst
	}

	res := &PairResult{X: x.Name, Y: y.Name, XTemplate: x.IsTemplate, YTemplate: y.IsTemplate}
	ex := c.eligible(ix)
	ey := c.eligible(iy)
	if len(ex) == 0 || len(ey) == 0 {
		return res, nil
	}

	cells := c.scoreAll(ex, ey)
	accepted, penalties := c.selectMatches(cells, len(ex), len(ey), ex, ey)
	res.Matches = accepted
	res.Score = aggregate(accepted, penalties)
	return res, nil
}

// eligible filters the entities that take part in bipartite scoring.
func (c *Comparator) eligible(ix *entity.Index) []*entity.Entity {
	if !c.opts.SkipShortEntities {
		return ix.Entities
	}
	var out []*entity.Entity
	for _, e := range ix.Entities {
		if e.Evidence() >= c.opts.ShortEntityEvidence {
			out = append(out, e)
		}
	}
	return out
}

// cell is one scored entry of the bipartite matrix.
type cell struct {
	i, j  int
	match entity.Match
}

func (c *Comparator) scoreAll(ex, ey []*entity.Entity) []cell {
	var cells []cell
	for i, a := range ex {
		for j, b := range ey {
			if !matcher.Comparable(a.Kind, b.Kind) {
				continue
			}
			cells = append(cells, cell{i, j, c.m.Score(a, b)})
		}
	}
	return cells
}

// selectMatches greedily accepts the highest-scoring non-conflicting
// matches above the acceptance threshold. Exact maximum-weight
// assignment would be more precise; the greedy policy is the
// documented, deterministic choice. Entities that end up unmatched are
// returned as zero-score penalty weights so near-disjoint projects
// cannot aggregate high.
func (c *Comparator) selectMatches(cells []cell, nx, ny int, ex, ey []*entity.Entity) ([]entity.Match, []float64) {
	sort.Slice(cells, func(a, b int) bool {
		ca, cb := cells[a], cells[b]
		if ca.match.Score != cb.match.Score {
			return ca.match.Score > cb.match.Score
		}
		if ca.match.Confidence != cb.match.Confidence {
			return ca.match.Confidence > cb.match.Confidence
		}
		if ca.i != cb.i {
			return ca.i < cb.i
		}
		return ca.j < cb.j
	})

	usedX := roaring.New()
	usedY := roaring.New()
	var accepted []entity.Match
	for _, cl := range cells {
		if cl.match.Score < c.opts.MinScore {
			break // sorted descending, nothing below passes
		}
		if usedX.Contains(uint32(cl.i)) || usedY.Contains(uint32(cl.j)) {
			continue
		}
		usedX.Add(uint32(cl.i))
		usedY.Add(uint32(cl.j))
		accepted = append(accepted, cl.match)
	}

	var penalties []float64
	for i := 0; i < nx; i++ {
		if !usedX.Contains(uint32(i)) {
			penalties = append(penalties, float64(ex[i].Evidence()))
		}
	}
	for j := 0; j < ny; j++ {
		if !usedY.Contains(uint32(j)) {
			penalties = append(penalties, float64(ey[j].Evidence()))
		}
	}
	return accepted, penalties
}

// aggregate computes the confidence-weighted mean over accepted match
// scores and zero-score penalties. Low-confidence matches are
// discounted by construction: their weight is their confidence.
func aggregate(accepted []entity.Match, penalties []float64) float64 {
	var scores, weights []float64
	for _, m := range accepted {
		scores = append(scores, m.Score)
		weights = append(weights, m.Confidence)
	}
	for _, w := range penalties {
		scores = append(scores, 0)
		weights = append(weights, w)
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}
	return stat.Mean(scores, weights)
}
