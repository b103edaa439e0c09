package main

import (
	"github.com/urfave/cli/v2"

	"github.com/doppelkit/doppel/internal/output"
	"github.com/doppelkit/doppel/pkg/config"
)

// loadConfig resolves the effective configuration: --config wins,
// otherwise standard file locations, otherwise defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault()
}

// newFormatter builds the output formatter from the global flags,
// honoring the config's color setting for terminal output.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := c.String("format")
	if !c.IsSet("format") && cfg.Output.Format != "" {
		format = cfg.Output.Format
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
}
