package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/protoforge/internal/printer"
	"github.com/hupe1980/protoforge/internal/util"
	"github.com/hupe1980/protoforge/pipeline"
)

func newRunCommand(configPath *string) *cobra.Command {
	var (
		out    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run <idea>",
		Short: "Run the full pipeline once and write the prototype",
		Example: `  protoforge run "a habit tracker for remote teams" -o tracker.html
  protoforge run --json "a recipe scaler" > run.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.TrimSpace(strings.Join(args, " "))
			if input == "" {
				return printer.Error("Missing idea", "Describe the prototype you want as the argument.", nil)
			}

			app, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			printer.Step("running %d stages", len(pipeline.Stages()))
			start := time.Now()
			st, err := app.RunPipeline(cmd.Context(), input)
			reportStages(st)
			if err != nil {
				title := "Pipeline failed"
				if se := st.Err(); se != nil {
					title = fmt.Sprintf("Pipeline halted at %s", se.Stage)
				}
				return failure(title, err)
			}
			printer.Success("prototype ready in %s", time.Since(start).Round(time.Millisecond))

			var payload []byte
			if asJSON {
				payload, err = json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				payload = append(payload, '\n')
			} else {
				html, _ := st.Prototype()
				payload = []byte(util.ExtractHTML(html) + "\n")
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}
			if err := os.WriteFile(out, payload, 0o644); err != nil {
				return printer.Error("Cannot write output", err.Error(), nil)
			}
			printer.Success("wrote %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file ('-' for stdout)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the full run state as JSON instead of HTML")
	return cmd
}

func reportStages(st pipeline.State) {
	for _, stage := range pipeline.Stages() {
		if st.Output(stage) != "" {
			printer.Success("%s", stage)
		}
	}
}
