package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/stage/drafting"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var body string
	var filePath string

	cmd := &cobra.Command{
		Use:   "add <work-id>",
		Short: "Upload source material and start the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workID := strings.TrimSpace(args[0])
			if workID == "" {
				return errors.New("work id is required")
			}
			if body != "" && filePath != "" {
				return errors.New("--body and --file are mutually exclusive")
			}

			content := body
			if filePath != "" {
				data, err := os.ReadFile(filePath)
				if err != nil {
					return fmt.Errorf("read source file: %w", err)
				}
				content = string(data)
			}
			if strings.TrimSpace(content) == "" {
				return errors.New("source material is empty (use --body or --file)")
			}

			return ctx.withEnvironment(func(env *environment) error {
				payload, err := json.Marshal(drafting.RawDocument{Title: title, Body: content})
				if err != nil {
					return fmt.Errorf("encode upload: %w", err)
				}
				if err := env.store.SaveDocument(cmd.Context(), workID, drafting.DocRaw, payload); err != nil {
					return fmt.Errorf("store upload: %w", err)
				}
				result, err := env.orch.Advance(cmd.Context(), workID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Work item %s: %s at %s\n",
					workID, strings.ToLower(string(result.Action)), result.Stage)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&body, "body", "", "Inline source material")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read source material from a file")
	return cmd
}
