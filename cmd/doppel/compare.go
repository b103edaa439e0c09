package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/doppelkit/doppel/internal/diag"
	"github.com/doppelkit/doppel/internal/loader"
	"github.com/doppelkit/doppel/internal/output"
	"github.com/doppelkit/doppel/internal/progress"
	"github.com/doppelkit/doppel/pkg/aggregate"
	"github.com/doppelkit/doppel/pkg/compare"
	"github.com/doppelkit/doppel/pkg/config"
	"github.com/doppelkit/doppel/pkg/entity"
	"github.com/doppelkit/doppel/pkg/frontend"
	"github.com/doppelkit/doppel/pkg/matcher"
	"github.com/doppelkit/doppel/pkg/orchestrate"
)

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Aliases:   []string{"cmp"},
		Usage:     "Compare every submission in a directory against the others",
		ArgsUsage: "<submissions-dir>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Starter-code directory compared against each submission (repeatable)",
			},
			&cli.Float64Flag{
				Name:  "min-score",
				Usage: "Minimum entity similarity to accept a match (0.0-1.0)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent comparisons (0 = 2x CPU cores)",
			},
			&cli.IntFlag{
				Name:  "resident-limit",
				Usage: "Max parsed projects held in memory at once (0 = unbounded)",
			},
			&cli.BoolFlag{
				Name:  "details",
				Usage: "Include per-entity matches in the report",
			},
		},
		Action: runCompareCmd,
	}
}

func runCompareCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one submissions directory")
	}
	root := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyCompareFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := diag.New(cfg.Run.Debug || c.Bool("debug"))
	l := loader.New(cfg, frontend.Default(), log)

	projects, err := l.Discover(root, false)
	if err != nil {
		return fmt.Errorf("discovering submissions: %w", err)
	}
	for i, dir := range c.StringSlice("template") {
		name := fmt.Sprintf("template-%d", i+1)
		if len(c.StringSlice("template")) == 1 {
			name = "template"
		}
		tpl, err := l.Project(name, dir, true)
		if err != nil {
			return fmt.Errorf("loading template: %w", err)
		}
		projects = append(projects, tpl)
	}

	if countSubmissions(projects) < 2 {
		return fmt.Errorf("need at least two submissions under %s", root)
	}

	m := matcher.New(
		matcher.WithFastScan(cfg.Similarity.FastScan),
		matcher.WithFastScanThreshold(cfg.Similarity.FastScanThreshold),
		matcher.WithWeights(cfg.Similarity.AttributeWeight, cfg.Similarity.BodyWeight),
	)
	cmp := compare.New(m, compare.Options{
		MinScore:            cfg.Similarity.MinScore,
		SkipShortEntities:   cfg.Similarity.SkipShortEntities,
		ShortEntityEvidence: cfg.Similarity.ShortEntityTokens,
	})

	// Pre-parse when nothing bounds residency, so parse diagnostics
	// surface before the pairwise run and indexes load exactly once.
	if cfg.Run.ResidentLimit == 0 {
		warm := progress.NewTracker("Parsing submissions...", len(projects))
		if err := l.Warm(projects, warm.Tick); err != nil {
			warm.FinishError(err)
			log.Warn().Err(err).Msg("some projects failed to parse")
		} else {
			warm.FinishSuccess()
		}
	}

	pairs := orchestrate.Pairs(projects)
	agg := aggregate.New(projects, len(pairs), cfg.Run.WeightReporting || c.Bool("details"))
	orch := orchestrate.New(cmp, orchestrate.Options{
		WorkerCount:   cfg.Run.WorkerCount,
		ResidentLimit: cfg.Run.ResidentLimit,
	}, log)

	tracker := progress.NewTracker("Comparing submissions...", len(pairs))
	err = orch.Run(c.Context, projects, agg, tracker.Tick)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("comparison run: %w", err)
	}

	res := agg.Snapshot()

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(output.NewReport(res)); err != nil {
		return err
	}
	if !res.Complete() {
		color.Yellow("%d comparisons did not complete", len(res.Incomplete))
	}
	return nil
}

// applyCompareFlags lets command-line flags override the config file.
func applyCompareFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("min-score") {
		cfg.Similarity.MinScore = c.Float64("min-score")
	}
	if c.IsSet("workers") {
		cfg.Run.WorkerCount = c.Int("workers")
	}
	if c.IsSet("resident-limit") {
		cfg.Run.ResidentLimit = c.Int("resident-limit")
	}
}

func countSubmissions(projects []*entity.Project) int {
	n := 0
	for _, p := range projects {
		if !p.IsTemplate {
			n++
		}
	}
	return n
}
