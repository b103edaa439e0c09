package orchestrate

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/doppelkit/doppel/pkg/aggregate"
	"github.com/doppelkit/doppel/pkg/compare"
	"github.com/doppelkit/doppel/pkg/entity"
	"github.com/doppelkit/doppel/pkg/matcher"
)

func submission(name string) *entity.Project {
	return entity.NewProject(name, "/tmp/"+name, false, nil, "", func() (*entity.Index, error) {
		e := &entity.Entity{
			Kind: entity.KindFunction,
			Name: name + "_main",
			Body: entity.Signature{
				{Kind: entity.TokControl, Text: "for"},
				{Kind: entity.TokCall, Text: "process"},
				{Kind: entity.TokControl, Text: "return"},
			},
			Origin: entity.Origin{Project: name},
		}
		return &entity.Index{Entities: []*entity.Entity{e}}, nil
	})
}

func template(name string) *entity.Project {
	p := submission(name)
	p.IsTemplate = true
	return p
}

func TestPairsEnumeration(t *testing.T) {
	a, b, c := submission("a"), submission("b"), submission("c")
	tpl := template("starter")

	pairs := Pairs([]*entity.Project{a, b, c, tpl})
	// 3 submissions give 3 unordered pairs, plus the template against
	// each submission.
	if len(pairs) != 6 {
		t.Fatalf("got %d pairs, want 6", len(pairs))
	}
	for _, p := range pairs {
		if p.X.IsTemplate && p.Y.IsTemplate {
			t.Errorf("template compared to template: %s vs %s", p.X.Name, p.Y.Name)
		}
	}
}

func TestPairsNoTemplateOnly(t *testing.T) {
	if got := Pairs([]*entity.Project{template("t1"), template("t2")}); len(got) != 0 {
		t.Errorf("two templates produced %d pairs, want 0", len(got))
	}
}

func TestWorkerClampToResidentLimit(t *testing.T) {
	cases := []struct {
		opts Options
		want int
	}{
		{Options{WorkerCount: 8}, 8},
		{Options{WorkerCount: 8, ResidentLimit: 4}, 2},
		{Options{WorkerCount: 1, ResidentLimit: 100}, 1},
		{Options{WorkerCount: 8, ResidentLimit: 2}, 1},
	}
	for _, c := range cases {
		if got := c.opts.Workers(); got != c.want {
			t.Errorf("Workers(%+v) = %d, want %d", c.opts, got, c.want)
		}
	}
}

func TestRunThreeProjects(t *testing.T) {
	projects := []*entity.Project{submission("alice"), submission("bob"), submission("carol")}
	pairs := Pairs(projects)
	if len(pairs) != 3 {
		t.Fatalf("3 projects should give 3 pairs, got %d", len(pairs))
	}

	cmp := compare.New(matcher.New(), compare.DefaultOptions())
	agg := aggregate.New(projects, len(pairs), false)
	o := New(cmp, Options{WorkerCount: 2}, zerolog.Nop())

	var ticks int64
	err := o.Run(context.Background(), projects, agg, func() { atomic.AddInt64(&ticks, 1) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	res := agg.Snapshot()
	if !res.Complete() {
		t.Fatalf("run incomplete: %d of %d pairs, failures %+v", res.Pairs, res.Expected, res.Incomplete)
	}
	if ticks != 3 {
		t.Errorf("progress ticks = %d, want 3", ticks)
	}
	// The fixture projects share a body shape, so every cell is filled.
	for _, x := range []string{"alice", "bob", "carol"} {
		for _, y := range []string{"alice", "bob", "carol"} {
			if x != y && res.Cell(x, y) < 0 {
				t.Errorf("cell %s/%s never scored", x, y)
			}
		}
	}
}

func TestRunBoundedResidency(t *testing.T) {
	projects := []*entity.Project{
		submission("a"), submission("b"), submission("c"), submission("d"),
	}
	cmp := compare.New(matcher.New(), compare.DefaultOptions())
	agg := aggregate.New(projects, len(Pairs(projects)), false)
	o := New(cmp, Options{WorkerCount: 8, ResidentLimit: 2}, zerolog.Nop())

	if err := o.Run(context.Background(), projects, agg, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res := agg.Snapshot(); !res.Complete() {
		t.Fatalf("bounded run incomplete: %+v", res.Incomplete)
	}
	// With a gate no index may stay resident after its pair releases.
	for _, p := range projects {
		if p.Resident() {
			t.Errorf("%s still resident after run", p.Name)
		}
	}
	// Each project was reloaded for each of its pairs.
	for _, p := range projects {
		if p.Loads() < 2 {
			t.Errorf("%s loaded %d times; gate should have forced reloads", p.Name, p.Loads())
		}
	}
}

func TestRunFailingProjectIsolated(t *testing.T) {
	broken := entity.NewProject("broken", "/tmp/broken", false, nil, "", nil)
	projects := []*entity.Project{submission("alice"), submission("bob"), broken}

	cmp := compare.New(matcher.New(), compare.DefaultOptions())
	agg := aggregate.New(projects, 3, false)
	o := New(cmp, Options{WorkerCount: 2}, zerolog.Nop())

	if err := o.Run(context.Background(), projects, agg, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	res := agg.Snapshot()
	if res.Pairs != 1 {
		t.Errorf("scored pairs = %d, want 1 (alice/bob)", res.Pairs)
	}
	if len(res.Incomplete) != 2 {
		t.Errorf("incomplete = %+v, want both broken pairs", res.Incomplete)
	}
	if got := res.Cell("alice", "bob"); got < 0 {
		t.Error("healthy pair missing from matrix")
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	projects := []*entity.Project{submission("a"), submission("b")}
	cmp := compare.New(matcher.New(), compare.DefaultOptions())
	agg := aggregate.New(projects, 1, false)
	o := New(cmp, Options{WorkerCount: 1}, zerolog.Nop())

	if err := o.Run(ctx, projects, agg, nil); err == nil {
		t.Fatal("canceled run should return an error")
	}
}
