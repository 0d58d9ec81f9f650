package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quill/internal/pipeline"
)

var labelCaser = cases.Title(language.English)

// formatLabel turns snake_case identifiers into display labels.
func formatLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return labelCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatProgress(progress int) string {
	return fmt.Sprintf("%d%%", progress)
}

func parseStageArg(value string) (pipeline.Stage, error) {
	stage, ok := pipeline.ParseStage(value)
	if !ok {
		names := make([]string, 0, len(pipeline.Stages()))
		for _, s := range pipeline.Stages() {
			names = append(names, string(s))
		}
		return "", fmt.Errorf("unknown stage %q (expected one of: %s)", value, strings.Join(names, ", "))
	}
	return stage, nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
