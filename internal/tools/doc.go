// Package tools implements the tool registry.
//
// A Registry maps tool names to handlers and publishes their definitions as
// mcp.Tool values, the same schema format served by the MCP stdio server and
// converted for each model provider. Dispatch never fails: unknown names,
// missing required arguments, handler errors and panics all become result
// strings that are fed back to the model as Tool messages.
//
// Example:
//
//	registry := tools.NewRegistry(tools.WithMetrics(metrics))
//	if err := calendar_tools.Register(registry, svc, calendar_tools.Options{}); err != nil {
//		return err
//	}
//	if err := registry.Validate(); err != nil {
//		return err
//	}
//	result := registry.Dispatch(ctx, "get_current_datetime", nil)
package tools
