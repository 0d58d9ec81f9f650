package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <work-id>",
		Short: "Show a work item's current state and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				current, history, err := env.orch.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if current == nil {
					if jsonOutput {
						return writeJSON(cmd, map[string]any{"work_id": args[0], "state": nil})
					}
					fmt.Fprintf(out, "Work item %s has no recorded state\n", args[0])
					return nil
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"work_id": args[0],
						"state":   current,
						"history": history.Content,
					})
				}

				fmt.Fprintf(out, "Work item: %s\n", args[0])
				fmt.Fprintf(out, "Stage:     %s (%s)\n",
					formatLabel(string(current.ActiveStage)), formatLabel(string(current.StageStatus)))
				fmt.Fprintf(out, "Progress:  %s\n", formatProgress(current.OverallProgress))
				if current.StageTaskID != "" {
					fmt.Fprintf(out, "Task:      %s\n", current.StageTaskID)
				}
				if current.Finished() {
					fmt.Fprintln(out, "Pipeline finished")
				}
				fmt.Fprintln(out)

				rows := make([][]string, 0, history.Len())
				for _, snapshot := range history.Content {
					rows = append(rows, []string{
						formatDisplayTime(snapshot.UpdatedAt),
						formatLabel(string(snapshot.ActiveStage)),
						formatLabel(string(snapshot.StageStatus)),
						formatProgress(snapshot.OverallProgress),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Updated", "Stage", "Status", "Progress"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <work-id>",
		Short: "Replay the broadcast event history for a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				history, err := env.store.Events(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if history == nil || history.Len() == 0 {
					if jsonOutput {
						return writeJSON(cmd, map[string]any{"work_id": args[0], "events": []pipeline.Event{}})
					}
					fmt.Fprintf(out, "No events recorded for %s\n", args[0])
					return nil
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{"work_id": args[0], "events": history.Content})
				}

				rows := make([][]string, 0, history.Len())
				for _, event := range history.Content {
					progress := ""
					if event.Data.ShowProgress {
						progress = formatProgress(event.Data.Progress)
					}
					rows = append(rows, []string{
						formatDisplayTime(event.Data.CreatedAt),
						formatLabel(string(event.Event)),
						formatLabel(string(event.Data.Stage)),
						progress,
						event.Data.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Created", "Event", "Stage", "Progress", "Message"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
