package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type toolClient interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	Close() error
}

// ToolSummary is a tool as advertised to clients.
type ToolSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Arguments   []string `json:"arguments"`
}

// DescribeTools connects an in-process client to s and reports what it lists.
func DescribeTools(ctx context.Context, s *server.MCPServer) ([]ToolSummary, error) {
	c, err := client.NewInProcessClient(s)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	defer c.Close()
	if err := c.Start(ctx); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return summarize(ctx, c)
}

func summarize(ctx context.Context, c toolClient) ([]ToolSummary, error) {
	tools, err := initializeAndListTools(ctx, c)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	out := make([]ToolSummary, 0, len(tools))
	for _, tool := range tools {
		schema, err := schemaToMap(tool)
		if err != nil {
			return nil, utils.WrapIfNotNil(fmt.Errorf("tool %q schema conversion failed: %w", tool.Name, err))
		}
		arguments := make([]string, 0)
		if properties, ok := schema["properties"].(map[string]any); ok {
			for name := range properties {
				arguments = append(arguments, name)
			}
		}
		sort.Strings(arguments)
		out = append(out, ToolSummary{Name: tool.Name, Description: tool.Description, Arguments: arguments})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func initializeAndListTools(ctx context.Context, c toolClient) ([]mcp.Tool, error) {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "sight tool inspector",
		Version: serverVersion,
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	serverInfo, err := c.Initialize(ctx, initRequest)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if serverInfo == nil || serverInfo.Capabilities.Tools == nil {
		return nil, nil
	}

	toolsResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if toolsResult == nil {
		return nil, nil
	}
	return toolsResult.Tools, nil
}

// schemaToMap returns a JSON-schema map for an MCP tool.
// Priority: RawInputSchema (if present) > InputSchema.
func schemaToMap(tool mcp.Tool) (map[string]any, error) {
	if len(tool.RawInputSchema) > 0 {
		var schema map[string]any
		err := json.Unmarshal(tool.RawInputSchema, &schema)
		if err != nil {
			return nil, utils.WrapIfNotNil(fmt.Errorf("invalid raw input schema: %w", err))
		}
		return schema, nil
	}

	schemaBytes, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, utils.WrapIfNotNil(fmt.Errorf("marshal input schema failed: %w", err))
	}

	var schema map[string]any
	err = json.Unmarshal(schemaBytes, &schema)
	if err != nil {
		return nil, utils.WrapIfNotNil(fmt.Errorf("unmarshal input schema failed: %w", err))
	}
	return schema, nil
}
