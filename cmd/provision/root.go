package main

import (
	"github.com/spf13/cobra"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/config"
	"digital.vasic.provision/pkg/report"
	"digital.vasic.provision/pkg/task"
)

// version is set at build time via -ldflags.
var version = "dev"

// exitUsage is returned for errors raised before a pass
// produces results, such as a bad flag or configuration.
const exitUsage = report.ExitFailed

// globalOptions holds the persistent flags shared by every
// subcommand, plus hooks tests use to replace the machine.
type globalOptions struct {
	configPath  string
	envFile     string
	stateDir    string
	simulate    bool
	format      string
	logFormat   string
	logFile     string
	verbose     bool
	monitorAddr string

	// args is the command line, kept for elevated relaunch.
	args []string

	newAdapter func(cfg *config.File) (adapter.Adapter, error)
	tasks      func() []*task.Task
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "provision",
		Short: "Bring a workstation to a known-good state",
		Long: "provision walks an ordered checklist of configuration items,\n" +
			"detects which are already satisfied and fixes the rest.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.StringVar(&opts.envFile, "env-file", "", ".env file with PROVISION_* overrides")
	f.StringVar(&opts.stateDir, "state-dir", "", "directory of the local key/value hive (overrides state_dir)")
	f.BoolVar(&opts.simulate, "simulate", false, "run against an in-memory machine")
	f.StringVar(&opts.format, "format", report.FormatText, "report format: text, markdown or json")
	f.StringVar(&opts.logFormat, "log-format", logFormatConsole, "log format: console or json")
	f.StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this file")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	f.StringVar(&opts.monitorAddr, "monitor", "", "serve live pass events on this address")

	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newApplyCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}
