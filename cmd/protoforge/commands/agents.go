package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/protoforge/agent"
)

func newAgentsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the pipeline agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app := newApp(cfg, newLogger(cfg))
			defer app.Close()

			return printAgents(cmd, app.Agents())
		},
	}
}

func printAgents(cmd *cobra.Command, agents []agent.Summary) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, a := range agents {
		fmt.Fprintf(tw, "%s\t%s\n", a.ID, a.Name)
	}
	return tw.Flush()
}
