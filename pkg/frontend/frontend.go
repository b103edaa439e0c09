// Package frontend turns source files into language-neutral entities.
// One Frontend per supported grammar; all of them converge on the same
// entity shape so the matcher never branches on language. Adding a
// language means adding a Frontend implementation and registering it,
// nothing else.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/doppelkit/doppel/pkg/entity"
)

// Language identifies a supported source grammar.
type Language string

const (
	LangJava   Language = "java"
	LangPython Language = "python"
)

// ErrUnsupportedLanguage is returned when no frontend is registered for
// a file's extension. The file is skipped; the project stays usable.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseFailure reports a source file that could not be parsed. It is
// local to the file: the rest of the project is unaffected.
type ParseFailure struct {
	File string
	Msg  string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure in %s: %s", e.File, e.Msg)
}

// Frontend parses one language's source text into normalized entities.
type Frontend interface {
	// Language returns the grammar this frontend handles.
	Language() Language

	// Extensions returns the file extensions handled, with leading dot.
	Extensions() []string

	// Parse returns the file's top-level entities (with nested
	// children), or a *ParseFailure when the file cannot be parsed.
	Parse(path string, src []byte) ([]*entity.Entity, error)
}

// Registry maps file extensions to frontends.
type Registry struct {
	byExt map[string]Frontend
}

// NewRegistry builds a registry from the given frontends.
func NewRegistry(frontends ...Frontend) *Registry {
	r := &Registry{byExt: make(map[string]Frontend)}
	for _, f := range frontends {
		for _, ext := range f.Extensions() {
			r.byExt[ext] = f
		}
	}
	return r
}

// Default returns a registry with all built-in frontends.
func Default() *Registry {
	return NewRegistry(Java(), Python())
}

// ForFile returns the frontend for a path, or ErrUnsupportedLanguage.
func (r *Registry) ForFile(path string) (Frontend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := r.byExt[ext]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}
	return f, nil
}

// Supported reports whether any frontend handles the path.
func (r *Registry) Supported(path string) bool {
	_, err := r.ForFile(path)
	return err == nil
}

// Languages lists the registered grammars.
func (r *Registry) Languages() []Language {
	seen := make(map[Language]bool)
	var out []Language
	for _, f := range r.byExt {
		if !seen[f.Language()] {
			seen[f.Language()] = true
			out = append(out, f.Language())
		}
	}
	return out
}

// parse runs tree-sitter over the source and rejects files whose tree
// contains syntax errors. Tree-sitter itself is error-tolerant, so the
// rejection is explicit: student submissions with broken files must
// surface a ParseFailure instead of half-parsed entities.
func parse(lang *sitter.Language, path string, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(lang)

	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, &ParseFailure{File: path, Msg: err.Error()}
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, &ParseFailure{File: path, Msg: "syntax error"}
	}
	return tree, nil
}

// walk traverses the tree in document order, calling visitor for each
// node. Returning false stops descent into the node's children.
func walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := range int(node.ChildCount()) {
		walk(node.Child(i), visitor)
	}
}

// nodeText extracts the source text for a node.
func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(src)) {
		return ""
	}
	return string(src[start:end])
}

// fieldText extracts the text of a named child field.
func fieldText(node *sitter.Node, field string, src []byte) string {
	return nodeText(node.ChildByFieldName(field), src)
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
