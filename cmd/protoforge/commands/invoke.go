package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/internal/printer"
	"github.com/hupe1980/protoforge/invocation"
)

func newInvokeCommand(configPath *string) *cobra.Command {
	var (
		contextText string
		contextFile string
	)

	cmd := &cobra.Command{
		Use:   "invoke <agent> [input]",
		Short: "Run a single agent with optional context",
		Example: `  protoforge invoke discovery "a plant watering reminder"
  protoforge invoke refinement --context-file draft.html`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := invocation.Request{AgentID: agent.ID(args[0]), Context: contextText}
			if len(args) == 2 {
				req.UserInput = args[1]
			}
			if contextFile != "" {
				data, err := os.ReadFile(contextFile)
				if err != nil {
					return printer.Error("Cannot read context file", err.Error(), nil)
				}
				req.Context = string(data)
			}

			app, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.InvokeSingleAgent(cmd.Context(), req)
			if err != nil {
				return failure(fmt.Sprintf("Agent %q failed", req.AgentID), err)
			}
			printer.Success("%s", resp.AgentName)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(resp.Output, "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&contextText, "context", "", "context passed to the agent")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "read the context from a file")
	cmd.MarkFlagsMutuallyExclusive("context", "context-file")
	return cmd
}
