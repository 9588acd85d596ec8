package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"digital.vasic.provision/pkg/task"
)

var listFlags struct {
	duplicates bool
}

func newListCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the checklist in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&listFlags.duplicates, "duplicates", false,
		"only print items whose name is used more than once")
	return cmd
}

func runList(cmd *cobra.Command, opts *globalOptions) error {
	reg, err := opts.registry()
	if err != nil {
		return err
	}

	dupAt := make(map[int]bool)
	for _, d := range reg.Duplicates() {
		for _, p := range d.Positions {
			dupAt[p] = true
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Kind", "Task", "Description"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: 60},
	})
	for i, t := range reg.Tasks() {
		if listFlags.duplicates && !dupAt[i] {
			continue
		}
		name := t.Name
		if dupAt[i] {
			name += " (duplicate name)"
		}
		tw.AppendRow(table.Row{i, taskKind(t), name, t.Description})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tw.Render())
	if n := len(reg.Duplicates()); n > 0 {
		fmt.Fprintf(out, "%d duplicate name(s)\n", n)
	}
	return nil
}

// taskKind describes which lifecycle steps t automates.
func taskKind(t *task.Task) string {
	switch {
	case t.IsReminder():
		return "reminder"
	case t.Checkable() && t.Fixable():
		return "auto"
	case t.Checkable():
		return "check"
	default:
		return "fix"
	}
}
