package matcher

import (
	"testing"

	"github.com/doppelkit/doppel/pkg/entity"
)

func attrs(types ...string) []entity.Attribute {
	out := make([]entity.Attribute, len(types))
	for i, t := range types {
		out[i] = entity.Attribute{Type: t}
	}
	return out
}

func TestAlignAttributes(t *testing.T) {
	tests := []struct {
		name string
		a, b []entity.Attribute
		want int
	}{
		{"identical", attrs("number", "string"), attrs("number", "string"), 2},
		{"empty both", nil, nil, 0},
		{"one empty", attrs("number"), nil, 0},
		{"insertion tolerated", attrs("number", "string", "map"), attrs("number", "map"), 2},
		{"reorder breaks alignment", attrs("number", "string"), attrs("string", "number"), 1},
		{"untyped matches untyped", attrs("", ""), attrs("", ""), 2},
		{"disjoint", attrs("number", "number"), attrs("map", "set"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := alignAttributes(tt.a, tt.b); got != tt.want {
				t.Errorf("alignAttributes = %d, want %d", got, tt.want)
			}
			// alignment is symmetric
			if got := alignAttributes(tt.b, tt.a); got != tt.want {
				t.Errorf("alignAttributes reversed = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAlignSignatures(t *testing.T) {
	sig := func(toks ...string) entity.Signature {
		out := make(entity.Signature, len(toks))
		for i, s := range toks {
			out[i] = entity.Token{Kind: entity.TokControl, Text: s}
		}
		return out
	}

	a := sig("if", "for", "return")
	if got := alignSignatures(a, a); got != 3 {
		t.Errorf("identical signatures align %d, want 3", got)
	}
	if got := alignSignatures(a, sig("if", "return")); got != 2 {
		t.Errorf("gapped alignment = %d, want 2", got)
	}
	if got := alignSignatures(a, nil); got != 0 {
		t.Errorf("empty alignment = %d, want 0", got)
	}

	// same text, different token kind: not equal
	call := entity.Signature{{Kind: entity.TokCall, Text: "if"}}
	if got := alignSignatures(sig("if"), call); got != 0 {
		t.Errorf("cross-kind token aligned: %d, want 0", got)
	}
}

func TestLCSWindowReuse(t *testing.T) {
	// regression guard for the rolling-row buffer: rows must be reset
	// between iterations or long inputs overcount
	a := attrs("number", "map", "number", "map", "number")
	b := attrs("map", "number", "map")
	if got := alignAttributes(a, b); got != 3 {
		t.Errorf("alignAttributes = %d, want 3", got)
	}
}
