package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/statemachine"
)

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <work-id>",
		Short: "Apply an external trigger to a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				result, err := env.orch.Advance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch result.Action {
				case statemachine.ActionFinished:
					fmt.Fprintf(out, "Work item %s is already finished\n", args[0])
				default:
					fmt.Fprintf(out, "Work item %s: %s at %s", args[0],
						strings.ToLower(string(result.Action)), result.Stage)
					if result.TaskHandle != "" {
						fmt.Fprintf(out, " (task %s)", result.TaskHandle)
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

func newCompleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <work-id> <stage>",
		Short: "Record an externally observed stage completion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			return ctx.withEnvironment(func(env *environment) error {
				state, err := env.orch.CompleteStage(cmd.Context(), args[0], stage)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stage %s completed for %s (progress %s)\n",
					stage, args[0], formatProgress(state.OverallProgress))
				return nil
			})
		},
	}
}

func newFailCommand(ctx *commandContext) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "fail <work-id> <stage>",
		Short: "Record an externally observed stage failure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			if strings.TrimSpace(message) == "" {
				message = "stage failed"
			}
			return ctx.withEnvironment(func(env *environment) error {
				if _, err := env.orch.FailStage(cmd.Context(), args[0], stage, message); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stage %s failed for %s: %s\n", stage, args[0], message)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Failure description")
	return cmd
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <work-id> [slot...]",
		Short: "Remove a work item's recorded state (default: state history and events)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				results, err := env.orch.Cleanup(cmd.Context(), args[0], args[1:]...)
				for slot, ok := range results {
					status := "cleared"
					if !ok {
						status = "failed"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", slot, status)
				}
				return err
			})
		},
	}
}
