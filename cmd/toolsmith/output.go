package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Inline(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)
	faintStyle = lipgloss.NewStyle().Faint(true).Inline(true)
)

func validateOutput(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text, json, or yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls text for the text format
func render(cmd *cobra.Command, format string, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()

	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	default:
		text(out)
	}
	return nil
}

// field prints an indented "label: value" line
func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %-16s %v\n", label+":", value)
}

// yesNo renders a boolean with color
func yesNo(b bool) string {
	if b {
		return okStyle.Render("yes")
	}
	return warnStyle.Render("no")
}

// summarize shortens long lists for text output
func summarize(items []string, max int) string {
	if len(items) == 0 {
		return faintStyle.Render("(none)")
	}
	if len(items) <= max {
		return joinComma(items)
	}
	return fmt.Sprintf("%s, ... (%d total)", joinComma(items[:max]), len(items))
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}
