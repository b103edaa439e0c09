package entity

import (
	"errors"
	"sync"
)

// ErrNoLoader is returned when a project's index is requested but no
// loader has been attached and no index is resident.
var ErrNoLoader = errors.New("project has no index loader")

// LoadFunc derives a project's Entity Index from its immutable source
// snapshot. It must be safe to call more than once and must return an
// equivalent index each time.
type LoadFunc func() (*Index, error)

// Gate bounds how many Entity Indexes may be resident at once. Peak
// memory is dominated by parsed project representations, so the gate is
// what keeps a run with dozens of projects inside its budget. A nil
// *Gate imposes no bound.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting up to limit resident indexes.
// A limit of zero or less returns nil, meaning unbounded.
func NewGate(limit int) *Gate {
	if limit <= 0 {
		return nil
	}
	return &Gate{slots: make(chan struct{}, limit)}
}

func (g *Gate) acquire() {
	if g != nil {
		g.slots <- struct{}{}
	}
}

func (g *Gate) release() {
	if g != nil {
		<-g.slots
	}
}

// Project owns one submission's (or template's) source snapshot and the
// Entity Index derived from it. Projects are immutable after
// construction; the index may be discarded and re-derived, never
// mutated.
type Project struct {
	Name        string
	Root        string
	IsTemplate  bool
	Files       []string
	Fingerprint string

	load LoadFunc
	gate *Gate

	mu    sync.Mutex
	index *Index
	refs  int
	loads int
}

// NewProject creates a project whose index is derived lazily by load.
func NewProject(name, root string, template bool, files []string, fingerprint string, load LoadFunc) *Project {
	return &Project{
		Name:        name,
		Root:        root,
		IsTemplate:  template,
		Files:       files,
		Fingerprint: fingerprint,
		load:        load,
	}
}

// AttachGate subjects this project's index residency to the gate.
// Must be called before any Acquire.
func (p *Project) AttachGate(g *Gate) { p.gate = g }

// Acquire returns the project's Entity Index, deriving it from source if
// it is not resident. Each Acquire must be paired with a Release.
func (p *Project) Acquire() (*Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index != nil {
		p.refs++
		return p.index, nil
	}
	if p.load == nil {
		return nil, ErrNoLoader
	}

	p.gate.acquire()
	ix, err := p.load()
	if err != nil {
		p.gate.release()
		return nil, err
	}
	p.index = ix
	p.refs = 1
	p.loads++
	return ix, nil
}

// Release drops one reference to the index. Under a gate, the index is
// discarded when the last reference goes away and re-derived on the
// next Acquire; without a gate it stays resident for the whole run.
func (p *Project) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refs == 0 {
		return
	}
	p.refs--
	if p.refs == 0 && p.gate != nil {
		p.index = nil
		p.gate.release()
	}
}

// Resident reports whether the index is currently in memory.
func (p *Project) Resident() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index != nil
}

// Loads returns how many times the index has been derived. More than
// one load means the degraded (memory-bounded) mode re-derived it.
func (p *Project) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}
