package frontend

import (
	"errors"
	"testing"

	"github.com/doppelkit/doppel/pkg/entity"
)

const pythonSample = `class Account:
    currency = "CZK"

    def __init__(self, owner):
        self.owner = owner
        self.balance = 0

    def deposit(self, amount):
        if amount > 0:
            self.balance = self.balance + amount
        return self.balance


def standalone(x, y):
    return x + y
`

func TestPythonParse(t *testing.T) {
	entities, err := Python().Parse("account.py", []byte(pythonSample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("got %d top-level entities, want class and function", len(entities))
	}

	cls := entities[0]
	if cls.Kind != entity.KindClass || cls.Name != "Account" {
		t.Fatalf("got %s %q, want class Account", cls.Kind, cls.Name)
	}
	// currency from the class body plus owner and balance from __init__
	names := make(map[string]bool)
	for _, a := range cls.Attributes {
		names[a.Name] = true
	}
	for _, want := range []string{"currency", "owner", "balance"} {
		if !names[want] {
			t.Errorf("class attributes missing %q (got %v)", want, cls.Attributes)
		}
	}

	if len(cls.Children) != 2 {
		t.Fatalf("class has %d children, want 2", len(cls.Children))
	}
	if cls.Children[0].Kind != entity.KindConstructor {
		t.Errorf("__init__ kind = %s, want constructor", cls.Children[0].Kind)
	}

	dep := cls.Children[1]
	if dep.Kind != entity.KindMethod || dep.Name != "deposit" {
		t.Fatalf("got %s %q, want method deposit", dep.Kind, dep.Name)
	}
	// self is dropped
	if len(dep.Attributes) != 1 || dep.Attributes[0].Name != "amount" {
		t.Errorf("deposit params = %v, want [amount]", dep.Attributes)
	}

	fn := entities[1]
	if fn.Kind != entity.KindFunction || fn.Name != "standalone" {
		t.Fatalf("got %s %q, want function standalone", fn.Kind, fn.Name)
	}
	if len(fn.Attributes) != 2 {
		t.Errorf("standalone params = %v, want 2", fn.Attributes)
	}
}

func TestPythonTypedParams(t *testing.T) {
	src := `def f(count: int, names: list, tag: str = "x"):
    return count
`
	entities, err := Python().Parse("f.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	attrs := entities[0].Attributes
	if len(attrs) != 3 {
		t.Fatalf("got %d params, want 3: %v", len(attrs), attrs)
	}
	if attrs[0].Type != "number" || attrs[1].Type != "list" || attrs[2].Type != "string" {
		t.Errorf("canonical types = [%s %s %s], want [number list string]",
			attrs[0].Type, attrs[1].Type, attrs[2].Type)
	}
}

func TestPythonWhileCanonicalization(t *testing.T) {
	src := `def loop(n):
    i = 0
    while i < n:
        i = i + 1
`
	entities, err := Python().Parse("loop.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, tok := range entities[0].Body {
		if tok.Kind == entity.TokControl && tok.Text == "for" {
			found = true
		}
		if tok.Kind == entity.TokControl && tok.Text == "while" {
			t.Error("while should canonicalize to for, got a while token")
		}
	}
	if !found {
		t.Errorf("no for token in %v", entities[0].Body)
	}
}

func TestPythonNestedFunction(t *testing.T) {
	src := `def outer(n):
    def inner(m):
        return m + 1
    return inner(n)
`
	entities, err := Python().Parse("nested.py", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	outer := entities[0]
	if len(outer.Children) != 1 || outer.Children[0].Name != "inner" {
		t.Fatalf("outer children = %v, want [inner]", outer.Children)
	}
	// inner's return must not leak into outer's signature; outer keeps
	// its own return plus the inner(n) call.
	returns := 0
	for _, tok := range outer.Body {
		if tok.Kind == entity.TokControl && tok.Text == "return" {
			returns++
		}
	}
	if returns != 1 {
		t.Errorf("outer signature has %d return tokens, want 1: %v", returns, outer.Body)
	}
}

func TestPythonSyntaxError(t *testing.T) {
	_, err := Python().Parse("broken.py", []byte("def broken(:\n    ???\n"))
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("got %v, want *ParseFailure", err)
	}
}
