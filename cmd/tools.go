package cmd

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/mahakaal/internal/calendar"
	"github.com/teemow/mahakaal/internal/tools"
	"github.com/teemow/mahakaal/internal/tools/calendar_tools"
)

func newToolsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as markdown",
		Long: `Generate markdown documentation for every tool the assistant can call.
The catalog is built from the live tool definitions, so it always matches
what the model and MCP clients see.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Definitions do not depend on the backend.
			registry := tools.NewRegistry()
			if err := calendar_tools.Register(registry, calendar.NewMemory(), calendar_tools.Options{}); err != nil {
				return err
			}
			markdown := generateToolsMarkdown(registry.Definitions())

			if outputFile == "" {
				fmt.Fprint(cmd.OutOrStdout(), markdown)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func generateToolsMarkdown(defs []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# Tools Reference\n\n")
	sb.WriteString("Tools the scheduling assistant can call. Generated from the tool definitions.\n\n")

	sb.WriteString("| Tool | Access |\n|---|---|\n")
	for _, tool := range defs {
		fmt.Fprintf(&sb, "| [%s](#%s) | %s |\n", tool.Name, tool.Name, accessLabel(tool))
	}
	sb.WriteString("\n")

	for _, tool := range defs {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}
	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		sb.WriteString("No arguments.\n")
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		requiredStr := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requiredStr = "required"
		}

		fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(prop), requiredStr)
		if desc, ok := prop["description"].(string); ok {
			sb.WriteString(desc)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func accessLabel(tool mcp.Tool) string {
	if hint := tool.Annotations.ReadOnlyHint; hint != nil && *hint {
		return "read-only"
	}
	return "writes"
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
