package llm

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// openAITools converts tool definitions to chat-completions function tools.
func openAITools(tools []mcp.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		params := openai.FunctionParameters{
			"type":       schemaType(tool.InputSchema),
			"properties": schemaProperties(tool.InputSchema),
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}

		result[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  params,
		})
	}
	return result
}

// anthropicTools converts tool definitions to Anthropic tool params.
func anthropicTools(tools []mcp.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: schemaProperties(tool.InputSchema),
		}
		if len(tool.InputSchema.Required) > 0 {
			schema.Required = tool.InputSchema.Required
		}

		result[i] = anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return result
}

// ollamaTools converts tool definitions to Ollama function tools.
func ollamaTools(tools []mcp.Tool) []api.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		params := api.ToolFunctionParameters{
			Type:       schemaType(tool.InputSchema),
			Required:   tool.InputSchema.Required,
			Properties: make(map[string]api.ToolProperty, len(tool.InputSchema.Properties)),
		}
		for name, prop := range tool.InputSchema.Properties {
			params.Properties[name] = ollamaProperty(prop)
		}

		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return result
}

// ollamaProperty converts one JSON schema property.
func ollamaProperty(value any) api.ToolProperty {
	var prop api.ToolProperty

	m, ok := value.(map[string]any)
	if !ok {
		raw, err := json.Marshal(value)
		if err != nil || json.Unmarshal(raw, &m) != nil {
			return prop
		}
	}

	switch t := m["type"].(type) {
	case string:
		prop.Type = api.PropertyType{t}
	case []string:
		prop.Type = api.PropertyType(t)
	case []any:
		types := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
		prop.Type = api.PropertyType(types)
	}
	if desc, ok := m["description"].(string); ok {
		prop.Description = desc
	}
	if enum, ok := m["enum"].([]any); ok {
		prop.Enum = enum
	}
	if items, ok := m["items"]; ok {
		prop.Items = items
	}
	return prop
}

func schemaType(schema mcp.ToolInputSchema) string {
	if schema.Type == "" {
		return "object"
	}
	return schema.Type
}

// schemaProperties never returns nil; providers reject "properties": null.
func schemaProperties(schema mcp.ToolInputSchema) map[string]any {
	if schema.Properties == nil {
		return map[string]any{}
	}
	return schema.Properties
}
