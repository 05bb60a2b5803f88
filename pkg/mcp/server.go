// Package mcp exposes the analysis pipeline, the history backend and the
// accessibility settings as MCP tools served over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/artbeyondsight/sight/pkg/accessibility"
	"github.com/artbeyondsight/sight/pkg/backend"
	"github.com/artbeyondsight/sight/pkg/capture"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/orchestrator"
	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "sight"
	serverVersion = "1.0.0"

	ToolAnalyzeImage     = "analyze_image"
	ToolSearchHistory    = "search_history"
	ToolDescribeSettings = "describe_settings"
)

// Analyzer runs one capture event; *orchestrator.Orchestrator satisfies it.
type Analyzer interface {
	Orchestrate(ctx context.Context, req orchestrator.Request) (model.AnalysisResult, error)
}

// History is the read side of the backend client.
type History interface {
	List(ctx context.Context, analysisType string) ([]backend.Record, error)
	Search(ctx context.Context, name string) ([]backend.Record, error)
}

// SettingsSource is implemented by *accessibility.Service.
type SettingsSource interface {
	Settings() accessibility.Settings
	SpeechDefaults() accessibility.SpeechDefaults
	ScreenReaderEnabled() bool
}

type Deps struct {
	Analyzer Analyzer
	History  History
	Settings SettingsSource
	Capture  capture.Options
}

type analyzeArgs struct {
	Path string `json:"path" jsonschema:"description=Path of the image file to analyze"`
	Mode string `json:"mode" jsonschema:"enum=museum,enum=monuments,enum=landscape,description=Analysis mode"`
	Name string `json:"name,omitempty" jsonschema:"description=Known title; used as the cache key and overrides the analyzed title"`
}

type searchArgs struct {
	Name string `json:"name,omitempty" jsonschema:"description=Case-insensitive substring of the subject name"`
	Mode string `json:"mode,omitempty" jsonschema:"enum=museum,enum=monuments,enum=landscape,description=Restrict results to one mode"`
}

type historyResult struct {
	Records []backend.Record `json:"records"`
}

type settingsResult struct {
	Settings            accessibility.Settings       `json:"settings"`
	SpeechDefaults      accessibility.SpeechDefaults `json:"speechDefaults"`
	ScreenReaderEnabled bool                         `json:"screenReaderEnabled"`
}

// NewServer registers a tool for every dependency that is set.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	if deps.Analyzer != nil {
		s.AddTool(mcp.NewTool(ToolAnalyzeImage,
			mcp.WithDescription("Analyze a captured image of an artwork, monument or landscape and store the result."),
			mcp.WithInputSchema[analyzeArgs](),
			mcp.WithOutputSchema[model.AnalysisResult](),
		), analyzeHandler(deps))
	}
	if deps.History != nil {
		s.AddTool(mcp.NewTool(ToolSearchHistory,
			mcp.WithDescription("List stored analyses, optionally filtered by name or mode."),
			mcp.WithInputSchema[searchArgs](),
			mcp.WithOutputSchema[historyResult](),
		), searchHandler(deps.History))
	}
	if deps.Settings != nil {
		s.AddTool(mcp.NewTool(ToolDescribeSettings,
			mcp.WithDescription("Show the current speech and accessibility settings."),
			mcp.WithOutputSchema[settingsResult](),
		), settingsHandler(deps.Settings))
	}
	return s
}

// Serve speaks MCP on in/out until ctx is cancelled or in is closed.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	log := logging.NewLogger(ctx)
	log.Infof("mcp_server_started name=%q", serverName)
	err := server.NewStdioServer(s).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		log.Errorf("error: %v", err)
		return utils.WrapIfNotNil(err)
	}
	return nil
}

func analyzeHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode, err := model.ParseMode(request.GetString("mode", string(model.ModeMuseum)))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		image, err := capture.FromFile(path, deps.Capture)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("image could not be read", err), nil
		}

		result, err := deps.Analyzer.Orchestrate(ctx, orchestrator.Request{
			Image: image,
			Mode:  mode,
			Name:  request.GetString("name", ""),
		})
		if err != nil {
			return mcp.NewToolResultErrorFromErr("analysis failed", err), nil
		}
		return structured(result)
	}
}

func searchHandler(history History) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := strings.TrimSpace(request.GetString("name", ""))
		modeArg := strings.TrimSpace(request.GetString("mode", ""))
		mode := model.Mode("")
		if modeArg != "" {
			parsed, err := model.ParseMode(modeArg)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			mode = parsed
		}

		var records []backend.Record
		var err error
		if name != "" {
			records, err = history.Search(ctx, name)
		} else {
			records, err = history.List(ctx, string(mode))
		}
		if err != nil {
			return mcp.NewToolResultErrorFromErr("history unavailable", err), nil
		}

		filtered := make([]backend.Record, 0, len(records))
		for _, record := range records {
			if mode != "" && record.AnalysisType != string(mode) {
				continue
			}
			filtered = append(filtered, record)
		}
		return structured(historyResult{Records: filtered})
	}
}

func settingsHandler(source SettingsSource) server.ToolHandlerFunc {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return structured(settingsResult{
			Settings:            source.Settings(),
			SpeechDefaults:      source.SpeechDefaults(),
			ScreenReaderEnabled: source.ScreenReaderEnabled(),
		})
	}
}

// structured returns value as structured content with its JSON as the text
// fallback for clients that only read text.
func structured(value any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return mcp.NewToolResultStructured(value, string(data)), nil
}
