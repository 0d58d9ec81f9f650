package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/tasks"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and maintain the dispatch queue",
	}

	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksHealthCommand(ctx))
	tasksCmd.AddCommand(newTasksClearCommand(ctx))

	return tasksCmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := make([]tasks.Status, 0, len(statusFilters))
			for _, value := range statusFilters {
				status, ok := tasks.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown task status %q", value)
				}
				filters = append(filters, status)
			}

			return ctx.withEnvironment(func(env *environment) error {
				items, err := env.queue.List(cmd.Context(), filters...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"tasks": items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No tasks")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, task := range items {
					rows = append(rows, []string{
						task.Handle,
						task.WorkID,
						task.Name,
						formatLabel(string(task.Status)),
						formatDisplayTime(task.CreatedAt),
						task.ErrorMessage,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Handle", "Work Item", "Task", "Status", "Created", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (pending, started, success, failure)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newTasksHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show aggregate task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				health, err := env.queue.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Total", fmt.Sprintf("%d", health.Total)},
					{"Pending", fmt.Sprintf("%d", health.Pending)},
					{"Started", fmt.Sprintf("%d", health.Started)},
					{"Success", fmt.Sprintf("%d", health.Success)},
					{"Failure", fmt.Sprintf("%d", health.Failure)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newTasksClearCommand(ctx *commandContext) *cobra.Command {
	var finishedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove tasks from the dispatch queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(func(env *environment) error {
				var (
					removed int64
					err     error
				)
				if finishedOnly {
					removed, err = env.queue.ClearFinished(cmd.Context())
				} else {
					removed, err = env.queue.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d tasks\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&finishedOnly, "finished", false, "Remove only tasks that reached success or failure")
	return cmd
}
