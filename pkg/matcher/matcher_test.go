package matcher

import (
	"math"
	"testing"

	"github.com/doppelkit/doppel/pkg/entity"
)

func method(name string, attrs []entity.Attribute, body entity.Signature) *entity.Entity {
	return &entity.Entity{Kind: entity.KindMethod, Name: name, Attributes: attrs, Body: body}
}

// addEntity models `add(a, b) { return a + b }`.
func addEntity(name, p1, p2 string) *entity.Entity {
	return method(name,
		[]entity.Attribute{{Name: p1, Type: "number"}, {Name: p2, Type: "number"}},
		entity.Signature{
			{Kind: entity.TokControl, Text: "return"},
			{Kind: entity.TokOp, Text: "+"},
		})
}

func TestScoreSelfIsOne(t *testing.T) {
	m := New()
	e := addEntity("add", "a", "b")
	got := m.Score(e, e)
	if got.Score != 1.0 {
		t.Errorf("self score = %f, want 1.0", got.Score)
	}
	if got.Confidence <= 0 {
		t.Errorf("self confidence = %f, want > 0", got.Confidence)
	}
}

func TestScoreSymmetric(t *testing.T) {
	m := New()
	a := method("a",
		[]entity.Attribute{{Type: "number"}, {Type: "string"}, {Type: "list"}},
		entity.Signature{
			{Kind: entity.TokControl, Text: "if"},
			{Kind: entity.TokCall, Text: "save"},
			{Kind: entity.TokControl, Text: "return"},
		})
	b := method("b",
		[]entity.Attribute{{Type: "number"}, {Type: "list"}},
		entity.Signature{
			{Kind: entity.TokControl, Text: "for"},
			{Kind: entity.TokCall, Text: "save"},
			{Kind: entity.TokControl, Text: "return"},
		})

	ab := m.Score(a, b)
	ba := m.Score(b, a)
	if ab.Score != ba.Score {
		t.Errorf("score not symmetric: %f vs %f", ab.Score, ba.Score)
	}
	if ab.Confidence != ba.Confidence {
		t.Errorf("confidence not symmetric: %f vs %f", ab.Confidence, ba.Confidence)
	}
}

func TestRenamingDoesNotChangeScore(t *testing.T) {
	m := New()
	orig := addEntity("add", "a", "b")
	renamed := addEntity("sum", "x", "y")

	self := m.Score(orig, orig)
	cross := m.Score(orig, renamed)
	if cross.Score != self.Score {
		t.Errorf("renamed score = %f, self score = %f; names must not affect scoring",
			cross.Score, self.Score)
	}
}

// Renamed clone: add(a, b) { return a + b } vs sum(x, y) { return x + y }.
func TestAddSumScenario(t *testing.T) {
	m := New()
	got := m.Score(addEntity("add", "a", "b"), addEntity("sum", "x", "y"))
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("score = %f, want ~1.0", got.Score)
	}
	if got.Confidence <= 0 {
		t.Errorf("confidence = %f, want > 0 (non-trivial body)", got.Confidence)
	}
}

func TestFastScanSkipsDivergentAttributeCounts(t *testing.T) {
	m := New(WithFastScanThreshold(0.5))
	five := &entity.Entity{Kind: entity.KindClass, Name: "A", Attributes: []entity.Attribute{
		{Type: "number"}, {Type: "number"}, {Type: "string"}, {Type: "list"}, {Type: "map"},
	}}
	one := &entity.Entity{
		Kind:       entity.KindClass,
		Name:       "B",
		Attributes: []entity.Attribute{{Type: "number"}},
		Body:       entity.Signature{{Kind: entity.TokControl, Text: "if"}},
	}

	got := m.Score(five, one)
	if got.Score != 0 {
		t.Errorf("fast-scan score = %f, want 0", got.Score)
	}
	if got.Confidence != 0 {
		t.Errorf("fast-scan confidence = %f, want 0", got.Confidence)
	}
}

func TestFastScanNeverIncreasesScore(t *testing.T) {
	with := New(WithFastScan(true))
	without := New(WithFastScan(false))

	cases := [][2]*entity.Entity{
		{addEntity("a", "x", "y"), addEntity("b", "p", "q")},
		{
			method("a", []entity.Attribute{{Type: "number"}, {Type: "number"}, {Type: "number"}}, nil),
			method("b", []entity.Attribute{{Type: "number"}}, nil),
		},
		{
			method("a", nil, entity.Signature{{Kind: entity.TokControl, Text: "if"}}),
			method("b", nil, entity.Signature{{Kind: entity.TokControl, Text: "for"}}),
		},
	}
	for i, c := range cases {
		sw := with.Score(c[0], c[1]).Score
		so := without.Score(c[0], c[1]).Score
		if sw > so {
			t.Errorf("case %d: fast-scan increased score: %f > %f", i, sw, so)
		}
		// Below the threshold the two must coincide.
		la, lb := len(c[0].Attributes), len(c[1].Attributes)
		longer := max(la, lb)
		if longer > 0 && float64(abs(la-lb))/float64(longer) <= 0.5 && sw != so {
			t.Errorf("case %d: scores differ below threshold: %f vs %f", i, sw, so)
		}
	}
}

func TestZeroConfidenceOnlyWhenNoEvidence(t *testing.T) {
	m := New(WithFastScan(false))

	empty := &entity.Entity{Kind: entity.KindConstructor, Name: "init"}
	got := m.Score(empty, empty)
	if got.Confidence != 0 {
		t.Errorf("two empty entities yield confidence %f, want 0", got.Confidence)
	}
	if got.Score != 0 {
		t.Errorf("two empty entities yield score %f, want 0 (no false positive)", got.Score)
	}

	tiny := method("f", nil, entity.Signature{{Kind: entity.TokControl, Text: "return"}})
	if got := m.Score(empty, tiny); got.Confidence == 0 {
		t.Error("confidence must be non-zero once any side has evidence")
	}
}

func TestConfidenceGrowsWithEvidence(t *testing.T) {
	m := New(WithFastScan(false))
	small := addEntity("add", "a", "b")
	big := method("big",
		[]entity.Attribute{{Type: "number"}, {Type: "number"}, {Type: "string"}, {Type: "map"}},
		entity.Signature{
			{Kind: entity.TokControl, Text: "if"},
			{Kind: entity.TokControl, Text: "for"},
			{Kind: entity.TokCall, Text: "update"},
			{Kind: entity.TokControl, Text: "return"},
		})

	if m.Score(big, big).Confidence <= m.Score(small, small).Confidence {
		t.Error("confidence should grow with the amount of structural evidence")
	}
}

func TestClassWithChildren(t *testing.T) {
	m := New()
	build := func(clsName, mName string) *entity.Entity {
		return &entity.Entity{
			Kind:       entity.KindClass,
			Name:       clsName,
			Attributes: []entity.Attribute{{Type: "number"}, {Type: "string"}},
			Children:   []*entity.Entity{addEntity(mName, "a", "b")},
		}
	}

	same := m.Score(build("Account", "add"), build("Konto", "plus"))
	if math.Abs(same.Score-1.0) > 1e-9 {
		t.Errorf("structurally identical classes score %f, want ~1.0", same.Score)
	}

	extra := build("Account", "add")
	extra.Children = append(extra.Children, method("extra",
		[]entity.Attribute{{Type: "map"}},
		entity.Signature{{Kind: entity.TokControl, Text: "for"}, {Kind: entity.TokCall, Text: "emit"}}))
	diff := m.Score(build("Account", "add"), extra)
	if diff.Score >= same.Score {
		t.Errorf("class with an unmatched extra method should score lower: %f >= %f",
			diff.Score, same.Score)
	}
}

func TestFixedWeights(t *testing.T) {
	m := New(WithFastScan(false), WithWeights(1, 0))
	// Identical attributes, completely different bodies: attribute-only
	// weighting must score 1.0.
	a := method("a", []entity.Attribute{{Type: "number"}},
		entity.Signature{{Kind: entity.TokControl, Text: "if"}})
	b := method("b", []entity.Attribute{{Type: "number"}},
		entity.Signature{{Kind: entity.TokCall, Text: "save"}, {Kind: entity.TokControl, Text: "throw"}})

	if got := m.Score(a, b).Score; got != 1.0 {
		t.Errorf("attribute-only score = %f, want 1.0", got)
	}

	mBody := New(WithFastScan(false), WithWeights(0, 1))
	if got := mBody.Score(a, b).Score; got != 0 {
		t.Errorf("body-only score = %f, want 0 for disjoint bodies", got)
	}
}

func TestComparable(t *testing.T) {
	if Comparable(entity.KindClass, entity.KindFunction) {
		t.Error("a class must never match a function")
	}
	if !Comparable(entity.KindMethod, entity.KindFunction) {
		t.Error("methods and functions are one group")
	}
	if !Comparable(entity.KindConstructor, entity.KindMethod) {
		t.Error("constructors compare with methods")
	}
}
