package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/doppelkit/doppel/internal/diag"
	"github.com/doppelkit/doppel/internal/fetch"
	"github.com/doppelkit/doppel/internal/progress"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Clone submission repositories from a manifest",
		ArgsUsage: "<manifest>",
		Description: `The manifest lists one repository per line as "name = url".
Each repository is cloned into <dest>/<name>; existing clones are
pulled instead. The resulting directory is ready for doppel compare.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Value:   "submissions",
				Usage:   "Directory to clone into",
			},
		},
		Action: runFetchCmd,
	}
}

func runFetchCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one manifest file")
	}

	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := fetch.ParseManifest(f)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest lists no repositories")
	}

	log := diag.New(c.Bool("debug"))
	fetcher := fetch.New(c.String("dest"), log)

	tracker := progress.NewTracker("Fetching repositories...", len(entries))
	err = fetcher.FetchAll(c.Context, entries, tracker.Tick)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	fmt.Printf("Fetched %d repositories into %s\n", len(entries), c.String("dest"))
	return nil
}
