// Package matcher scores pairs of entities for structural similarity.
// The score is built from an order-aware alignment of attribute lists,
// an alignment of body signatures, and a recursive best-match pairing
// of children, combined into [0,1] with a confidence weight
// proportional to the structural evidence examined. Entity names never
// influence the score.
package matcher

import (
	"sort"

	"github.com/doppelkit/doppel/pkg/entity"
)

// Options tunes the pairwise scorer. The zero weights select the
// evidence-proportional default: bodies dominate for large entities,
// attributes for trivial ones.
type Options struct {
	// FastScan skips body comparison when attribute-list lengths
	// diverge beyond FastScanThreshold, trading recall for throughput.
	FastScan bool
	// FastScanThreshold is the relative attribute-count gap
	// |lenA-lenB| / max(lenA, lenB) above which a pair is skipped.
	FastScanThreshold float64
	// AttributeWeight and BodyWeight, when both positive, fix the
	// combination weights instead of the evidence-proportional default.
	AttributeWeight float64
	BodyWeight      float64
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		FastScan:          true,
		FastScanThreshold: 0.5,
	}
}

// Matcher computes pairwise entity similarity.
type Matcher struct {
	opts Options
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithFastScan enables or disables the attribute-count pre-filter.
func WithFastScan(enabled bool) Option {
	return func(m *Matcher) { m.opts.FastScan = enabled }
}

// WithFastScanThreshold sets the relative gap above which fast-scan skips.
func WithFastScanThreshold(t float64) Option {
	return func(m *Matcher) { m.opts.FastScanThreshold = t }
}

// WithWeights fixes the attribute/body combination weights.
func WithWeights(attribute, body float64) Option {
	return func(m *Matcher) {
		m.opts.AttributeWeight = attribute
		m.opts.BodyWeight = body
	}
}

// New creates a matcher with the documented defaults.
func New(opts ...Option) *Matcher {
	m := &Matcher{opts: DefaultOptions()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Score compares two entities and returns a scored, confidence-weighted
// match. Scoring is symmetric and self-comparison scores 1.0. A pair
// with no structural evidence at all scores zero with zero confidence;
// that is "nothing to compare", not a similarity claim.
func (m *Matcher) Score(a, b *entity.Entity) entity.Match {
	match := entity.Match{A: a.Ref(), B: b.Ref()}

	evidence := a.Evidence() + b.Evidence()
	if evidence == 0 {
		return match
	}

	if m.opts.FastScan && m.fastScanSkip(a, b) {
		// zero score, zero confidence, body never examined
		return match
	}

	attrRatio, attrEv := attributeSimilarity(a.Attributes, b.Attributes)
	bodyRatio, bodyEv := bodySimilarity(a.Body, b.Body)
	childRatio, childEv := m.childSimilarity(a.Children, b.Children)

	match.Score = m.combine(
		component{attrRatio, attrEv},
		component{bodyRatio, bodyEv},
		component{childRatio, childEv},
	)
	match.Confidence = float64(attrEv + bodyEv + childEv)
	return match
}

// fastScanSkip reports whether the attribute-count gap alone rules the
// pair out. Divergent counts are a cheap, strong dissimilarity signal.
func (m *Matcher) fastScanSkip(a, b *entity.Entity) bool {
	la, lb := len(a.Attributes), len(b.Attributes)
	longer := la
	if lb > longer {
		longer = lb
	}
	if longer == 0 {
		return false
	}
	gap := la - lb
	if gap < 0 {
		gap = -gap
	}
	return float64(gap)/float64(longer) > m.opts.FastScanThreshold
}

// component is one similarity dimension with the evidence behind it.
type component struct {
	ratio    float64
	evidence int
}

// combine folds the components into a single score. By default each
// component is weighted by its evidence; with fixed weights configured,
// attributes and structure (body plus children) are weighted as given.
// Components with zero evidence never contribute.
func (m *Matcher) combine(attr, body, children component) float64 {
	if m.opts.AttributeWeight > 0 || m.opts.BodyWeight > 0 {
		structRatio, structEv := mergeComponents(body, children)
		wa, wb := m.opts.AttributeWeight, m.opts.BodyWeight
		if attr.evidence == 0 {
			wa = 0
		}
		if structEv == 0 {
			wb = 0
		}
		if wa+wb == 0 {
			return 0
		}
		return (wa*attr.ratio + wb*structRatio) / (wa + wb)
	}

	total := attr.evidence + body.evidence + children.evidence
	if total == 0 {
		return 0
	}
	sum := attr.ratio*float64(attr.evidence) +
		body.ratio*float64(body.evidence) +
		children.ratio*float64(children.evidence)
	return sum / float64(total)
}

func mergeComponents(a, b component) (float64, int) {
	total := a.evidence + b.evidence
	if total == 0 {
		return 0, 0
	}
	return (a.ratio*float64(a.evidence) + b.ratio*float64(b.evidence)) / float64(total), total
}

// attributeSimilarity returns the aligned ratio and the evidence
// (combined list length) it was computed over.
func attributeSimilarity(a, b []entity.Attribute) (float64, int) {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 0, 0
	}
	longer := la
	if lb > longer {
		longer = lb
	}
	return float64(alignAttributes(a, b)) / float64(longer), la + lb
}

func bodySimilarity(a, b entity.Signature) (float64, int) {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 0, 0
	}
	longer := la
	if lb > longer {
		longer = lb
	}
	return float64(alignSignatures(a, b)) / float64(longer), la + lb
}

// childSimilarity greedily pairs children of the same kind group by
// descending score and folds accepted scores into a ratio weighted by
// each pair's confidence. Children left unmatched contribute their
// evidence with a zero score, so a class that grew three extra methods
// is penalized rather than ignored.
func (m *Matcher) childSimilarity(a, b []*entity.Entity) (float64, int) {
	totalEv := 0
	for _, c := range a {
		totalEv += c.Evidence()
	}
	for _, c := range b {
		totalEv += c.Evidence()
	}
	if totalEv == 0 {
		return 0, 0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0, totalEv
	}

	type scored struct {
		i, j  int
		match entity.Match
	}
	var cells []scored
	for i, ca := range a {
		for j, cb := range b {
			if !Comparable(ca.Kind, cb.Kind) {
				continue
			}
			cells = append(cells, scored{i, j, m.Score(ca, cb)})
		}
	}
	// Deterministic, order-symmetric greedy selection: best score
	// first, ties broken on keys invariant under swapping the sides.
	sort.Slice(cells, func(x, y int) bool {
		cx, cy := cells[x], cells[y]
		if cx.match.Score != cy.match.Score {
			return cx.match.Score > cy.match.Score
		}
		if cx.match.Confidence != cy.match.Confidence {
			return cx.match.Confidence > cy.match.Confidence
		}
		if cx.i+cx.j != cy.i+cy.j {
			return cx.i+cx.j < cy.i+cy.j
		}
		dx, dy := abs(cx.i-cx.j), abs(cy.i-cy.j)
		if dx != dy {
			return dx < dy
		}
		return cx.i < cy.i
	})

	usedA := make([]bool, len(a))
	usedB := make([]bool, len(b))
	var weighted float64
	for _, c := range cells {
		if usedA[c.i] || usedB[c.j] {
			continue
		}
		usedA[c.i] = true
		usedB[c.j] = true
		weighted += c.match.Score * c.match.Confidence
	}
	return weighted / float64(totalEv), totalEv
}

// Comparable reports whether two kinds may be scored against each
// other. Classes only match classes; methods, functions and
// constructors form one group, since pushing a copied function into a
// class (or the reverse) must not defeat detection.
func Comparable(a, b entity.Kind) bool {
	return kindGroup(a) == kindGroup(b)
}

func kindGroup(k entity.Kind) int {
	if k == entity.KindClass {
		return 0
	}
	return 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
