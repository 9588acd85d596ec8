package main

import (
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.provision/pkg/engine"
)

var applyFlags struct {
	elevate bool
}

func newApplyCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Fix every checklist item that is not satisfied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPass(cmd, opts, engine.ModeApply, applyFlags.elevate)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&applyFlags.elevate, "elevate", false,
		"relaunch elevated when a fix needs administrative rights")
	return cmd
}

// relaunchArgs returns args without the --elevate flag so the
// elevated child does not try to elevate again.
func relaunchArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--elevate" || strings.HasPrefix(a, "--elevate=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
