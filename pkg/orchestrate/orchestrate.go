// Package orchestrate schedules pairwise project comparisons across a
// bounded worker pool while keeping parsed indexes within a memory
// budget.
package orchestrate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/doppelkit/doppel/pkg/aggregate"
	"github.com/doppelkit/doppel/pkg/compare"
	"github.com/doppelkit/doppel/pkg/entity"
)

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for the
// worker count. Comparison is CPU-bound once indexes are resident, but
// index loads block on I/O, so 2x keeps cores fed.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each pair finishes, success or not.
type ProgressFunc func()

// Options control scheduling and memory bounding.
type Options struct {
	// WorkerCount is the number of concurrent comparisons. <= 0 means
	// 2x NumCPU.
	WorkerCount int

	// ResidentLimit caps how many project indexes may be loaded at
	// once. 0 means unbounded. When set, the effective worker count is
	// clamped to ResidentLimit/2 so every worker can hold both sides
	// of its pair without deadlocking the gate.
	ResidentLimit int
}

// Orchestrator runs every scheduled pair through a comparator and
// feeds the results to an aggregator.
type Orchestrator struct {
	cmp  *compare.Comparator
	opts Options
	log  zerolog.Logger
}

// New builds an orchestrator. The logger may be a Nop logger.
func New(cmp *compare.Comparator, opts Options, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{cmp: cmp, opts: opts, log: log}
}

// Pair is one scheduled comparison.
type Pair struct {
	X *entity.Project
	Y *entity.Project
}

// Pairs enumerates the comparisons for a roster: every unordered pair
// of submissions, plus each template against each submission.
// Templates are never compared to each other; shared starter code
// looking like itself is not a finding.
func Pairs(projects []*entity.Project) []Pair {
	var templates, subs []*entity.Project
	for _, p := range projects {
		if p.IsTemplate {
			templates = append(templates, p)
		} else {
			subs = append(subs, p)
		}
	}

	var pairs []Pair
	for i := 0; i < len(subs); i++ {
		for j := i + 1; j < len(subs); j++ {
			pairs = append(pairs, Pair{X: subs[i], Y: subs[j]})
		}
	}
	for _, t := range templates {
		for _, s := range subs {
			pairs = append(pairs, Pair{X: t, Y: s})
		}
	}
	return pairs
}

// Workers resolves the effective worker count for a given options set.
func (o Options) Workers() int {
	n := o.WorkerCount
	if n <= 0 {
		n = runtime.NumCPU() * DefaultWorkerMultiplier
	}
	if o.ResidentLimit > 0 {
		if limit := o.ResidentLimit / 2; n > limit {
			n = limit
		}
		if n < 1 {
			n = 1
		}
	}
	return n
}

// Run compares every pair and records the outcomes in agg. A pair that
// fails or panics is recorded as incomplete; the run itself only
// errors when the context is canceled.
func (o *Orchestrator) Run(ctx context.Context, projects []*entity.Project, agg *aggregate.Aggregator, onProgress ProgressFunc) error {
	pairs := Pairs(projects)
	if len(pairs) == 0 {
		return nil
	}

	if o.opts.ResidentLimit > 0 {
		gate := entity.NewGate(o.opts.ResidentLimit)
		for _, p := range projects {
			p.AttachGate(gate)
		}
	}

	workers := o.opts.Workers()
	o.log.Debug().
		Int("pairs", len(pairs)).
		Int("workers", workers).
		Int("resident_limit", o.opts.ResidentLimit).
		Msg("starting comparison run")

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for _, pr := range pairs {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			agg.Add(o.comparePair(pr))
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	return p.Wait()
}

// comparePair runs one comparison, converting panics and errors into
// an incomplete result so a single bad pair cannot sink the run.
func (o *Orchestrator) comparePair(pr Pair) (res *compare.PairResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Str("x", pr.X.Name).
				Str("y", pr.Y.Name).
				Interface("panic", r).
				Msg("comparison panicked")
			res = &compare.PairResult{
				X:          pr.X.Name,
				Y:          pr.Y.Name,
				Incomplete: true,
				Err:        fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	res, err := o.cmp.Compare(pr.X, pr.Y)
	if err != nil {
		o.log.Warn().
			Str("x", pr.X.Name).
			Str("y", pr.Y.Name).
			Err(err).
			Msg("comparison failed")
		return &compare.PairResult{
			X:          pr.X.Name,
			Y:          pr.Y.Name,
			Incomplete: true,
			Err:        err.Error(),
		}
	}
	return res
}
