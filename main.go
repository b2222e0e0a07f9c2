package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/chip-gate/internal/common"
	"github.com/dtnitsch/chip-gate/internal/evaluate"
	"github.com/dtnitsch/chip-gate/internal/state"
	"github.com/dtnitsch/chip-gate/pkg/help"
)

func main() {
	app := &cli.App{
		Name:  "chip-gate",
		Usage: "Decide whether a product or health safety chip should appear on a page",
		Flags: common.GlobalFlags,
		Commands: []*cli.Command{
			{
				Name:   "evaluate",
				Usage:  "Run the gate pipeline for a URL and print the decisions",
				Flags:  evaluate.Flags,
				Action: evaluate.EvaluateAction,
			},
			{
				Name:   "dismiss",
				Usage:  "Hide a chip type on the URL's origin for 24h",
				Flags:  []cli.Flag{state.URLFlag, state.ChipFlag},
				Action: state.DismissAction,
			},
			{
				Name:   "unhide",
				Usage:  "Remove an origin dismissal",
				Flags:  []cli.Flag{state.URLFlag, state.ChipFlag},
				Action: state.UnhideAction,
			},
			{
				Name:   "status",
				Usage:  "Show cooldown and dismissal state for a URL",
				Flags:  []cli.Flag{state.URLFlag},
				Action: state.StatusAction,
			},
			{
				Name:  "cache",
				Usage: "Manage cached scan results",
				Subcommands: []*cli.Command{
					{
						Name:  "clear",
						Usage: "Remove cached scans for a host",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "host", Usage: "Hostname (or URL) whose scans are removed", Required: true},
							&cli.BoolFlag{Name: "product-only", Usage: "Only remove product scans (after a variant change)"},
						},
						Action: state.CacheClearAction,
					},
				},
			},
			{
				Name:  "coldstart",
				Usage: "Print a quick-start guide",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, common.ErrSetup) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
