// Package entity defines the language-neutral model that all frontends
// normalize into: classes, methods and functions with ordered attribute
// lists, nested children and a structural body signature. Everything
// downstream of the frontends (matching, comparison, aggregation) works
// exclusively on this model.
package entity

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind classifies a structural unit extracted from source.
type Kind string

const (
	KindClass       Kind = "class"
	KindMethod      Kind = "method"
	KindFunction    Kind = "function"
	KindConstructor Kind = "constructor"
)

// TokenKind classifies a body-signature token.
type TokenKind string

const (
	// TokControl is a control-flow shape token (if, for, return, try, ...).
	TokControl TokenKind = "control"
	// TokCall is a call token carrying the callee name.
	TokCall TokenKind = "call"
	// TokLiteral is a literal reduced to its kind (number, string, bool, null).
	TokLiteral TokenKind = "literal"
	// TokOp is an operator token (assignment, arithmetic, comparison).
	TokOp TokenKind = "op"
)

// Token is one element of a body signature.
type Token struct {
	Kind TokenKind
	Text string
}

// Signature is the ordered structural digest of an entity's body.
// Identifiers never appear in a signature; renaming a variable leaves
// the signature unchanged.
type Signature []Token

// Len returns the number of tokens.
func (s Signature) Len() int { return len(s) }

// Digest returns a cheap 64-bit fingerprint of the signature, usable as
// an equality pre-check before running the full alignment.
func (s Signature) Digest() uint64 {
	h := xxhash.New()
	for _, t := range s {
		_, _ = h.WriteString(string(t.Kind))
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(t.Text)
		_, _ = h.WriteString("\x1e")
	}
	return h.Sum64()
}

// Attribute is one declared parameter or field. Order within an entity's
// attribute list is preserved; it is matching evidence.
type Attribute struct {
	Name string
	Type string // canonical type family, empty when unresolvable
}

// Origin points back to where an entity came from. It is an identifier,
// not an ownership edge.
type Origin struct {
	Project string
	File    string
	Line    int
}

// Entity is a named structural unit: a class, method, function or
// constructor. Children are owned exclusively by their parent; the
// structure is a strict tree.
type Entity struct {
	Kind       Kind
	Name       string
	Attributes []Attribute
	Children   []*Entity
	Body       Signature
	Origin     Origin
}

// Evidence returns the total amount of structural evidence this entity
// carries: attribute count plus body length plus the evidence of all
// children. It is the basis for match confidence.
func (e *Entity) Evidence() int {
	n := len(e.Attributes) + e.Body.Len()
	for _, c := range e.Children {
		n += c.Evidence()
	}
	return n
}

// Ref returns a non-owning reference to the entity for reporting.
func (e *Entity) Ref() Ref {
	return Ref{
		Project: e.Origin.Project,
		File:    e.Origin.File,
		Name:    e.Name,
		Kind:    e.Kind,
		Line:    e.Origin.Line,
	}
}

// Ref identifies an entity by origin rather than by pointer, so match
// results can outlive the entity tree they were computed from.
type Ref struct {
	Project string `json:"project"`
	File    string `json:"file"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Line    int    `json:"line"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s (%s)", r.Project, r.Name, r.Kind)
}

// Match is the scored correspondence between two entities from two
// different projects. Confidence grows with the amount of structural
// evidence the score was computed over; a perfect score over two empty
// constructors carries zero confidence.
type Match struct {
	A          Ref     `json:"a"`
	B          Ref     `json:"b"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Index holds a project's normalized top-level entities.
type Index struct {
	Entities []*Entity
}

// ByKind returns the top-level entities of the given kind.
func (ix *Index) ByKind(k Kind) []*Entity {
	var out []*Entity
	for _, e := range ix.Entities {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of top-level entities.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Entities)
}

// TotalEvidence sums the evidence of all top-level entities.
func (ix *Index) TotalEvidence() int {
	n := 0
	for _, e := range ix.Entities {
		n += e.Evidence()
	}
	return n
}
