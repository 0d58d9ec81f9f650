package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/stage/drafting"
)

var knownDocuments = []string{drafting.DocRaw, drafting.DocStructured, drafting.DocPlan, drafting.DocFinal}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <work-id> <document>",
		Short: "Print a work item's document (raw, structured, plan, or final)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(strings.TrimSpace(args[1]))
			valid := false
			for _, known := range knownDocuments {
				if name == known {
					valid = true
					break
				}
			}
			if !valid {
				return fmt.Errorf("unknown document %q (expected one of: %s)",
					args[1], strings.Join(knownDocuments, ", "))
			}

			return ctx.withEnvironment(func(env *environment) error {
				raw, err := env.store.GetDocument(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				if raw == nil {
					return fmt.Errorf("document %q not found for %s", name, args[0])
				}
				var pretty any
				if err := json.Unmarshal(raw, &pretty); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), string(raw))
					return nil
				}
				return writeJSON(cmd, pretty)
			})
		},
	}
}
