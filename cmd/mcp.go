package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the calendar tools over MCP stdio",
		Long: `Expose the assistant's calendar tools to MCP clients (Claude Desktop,
Cursor, ...) over standard input/output. The same tool registry and calendar
backend as the chat API are used; no language model is involved.

Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}

			if err := mcpserver.ServeStdio(newMCPServer(a.registry)); err != nil {
				return fmt.Errorf("server stopped with error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("calendar-backend", "", "Calendar backend: google or memory")
	return cmd
}

// toolDispatcher is the part of the tool registry the MCP server needs.
type toolDispatcher interface {
	Definitions() []mcp.Tool
	Dispatch(ctx context.Context, name string, args map[string]any) string
}

// newMCPServer publishes every registry definition as an MCP tool.
func newMCPServer(registry toolDispatcher) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("mahakaal", version,
		mcpserver.WithToolCapabilities(true),
	)
	handler := mcpToolHandler(registry)
	for _, def := range registry.Definitions() {
		s.AddTool(def, handler)
	}
	return s
}

// mcpToolHandler routes MCP calls through the registry. Results reporting a
// failure are flagged as tool errors for the client.
func mcpToolHandler(registry toolDispatcher) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := registry.Dispatch(ctx, request.Params.Name, request.GetArguments())
		if isToolFailure(result) {
			return mcp.NewToolResultError(result), nil
		}
		return mcp.NewToolResultText(result), nil
	}
}

func isToolFailure(result string) bool {
	for _, prefix := range []string{"Error", "System Error", "An error occurred"} {
		if strings.HasPrefix(result, prefix) {
			return true
		}
	}
	return false
}
