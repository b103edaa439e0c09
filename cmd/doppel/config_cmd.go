package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/doppelkit/doppel/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and validate configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: runConfigShowCmd,
			},
			{
				Name:      "validate",
				Usage:     "Check a config file without running anything",
				ArgsUsage: "[path]",
				Action:    runConfigValidateCmd,
			},
		},
	}
}

func runConfigShowCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	content, err := configTOML(cfg)
	if err != nil {
		return err
	}
	fmt.Print(content)
	return nil
}

func runConfigValidateCmd(c *cli.Context) error {
	path := c.String("config")
	if c.Args().Len() > 0 {
		path = c.Args().First()
	}
	if path == "" {
		return fmt.Errorf("no config file given (pass a path or --config)")
	}

	if _, err := config.Load(path); err != nil {
		return err
	}
	color.Green("%s is valid", path)
	return nil
}
