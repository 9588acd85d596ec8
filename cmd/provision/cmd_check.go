package main

import (
	"github.com/spf13/cobra"

	"digital.vasic.provision/pkg/engine"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which checklist items are satisfied without changing anything",
		Long: `Run every check without applying fixes.

Exit codes: 0 when nothing automated is left to do, 1 when at
least one item has an automated fix that apply would run, and 2
when a check fails. Items that only need a manual step never
change the exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPass(cmd, opts, engine.ModeCheck, false)
		},
	}
}
