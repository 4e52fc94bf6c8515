// Package mcp provides the stdio MCP server exposing device, scene and rule
// tools to agents. Every tool proxies to the running daemon's control API.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/homie/internal/buildinfo"
	"github.com/go-ports/homie/internal/client"
	"github.com/go-ports/homie/internal/models"
)

const unreachableMessage = "Failed to connect to Homie. Is the daemon running?"

const setDescription = `Set a device's power and/or brightness. Names are fuzzy-matched: exact, then case-insensitive, then substring. Giving a brightness without "on" turns the device on. Brightness is clamped to 0-100.`

// NewServer creates and registers all tools on a new MCP server backed by cl.
// It is separate from Serve so tests can obtain a configured server without
// the stdio transport.
func NewServer(cl *client.Client) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("homie", buildinfo.Version)
	registerTools(s, cl)
	return s
}

// Serve starts the stdio MCP server against the API at baseURL, blocking
// until stdin closes.
func Serve(_ context.Context, baseURL string) error {
	return mcpserver.ServeStdio(NewServer(client.New(baseURL)))
}

func registerTools(s *mcpserver.MCPServer, cl *client.Client) {
	s.AddTool(mcp.NewTool("device_list",
		mcp.WithDescription("List every device with its room, power state and brightness."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		devs, err := cl.Devices(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(models.DeviceList{Devices: nonNil(devs)})
	})

	s.AddTool(mcp.NewTool("scene_list",
		mcp.WithDescription("List every scene and how many device actions it performs."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		scenes, err := cl.Scenes(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(models.SceneList{Scenes: nonNil(scenes)})
	})

	s.AddTool(mcp.NewTool("device_set",
		mcp.WithDescription(setDescription),
		mcp.WithString("name",
			mcp.Description("Device name or a unique part of it."),
			mcp.Required(),
		),
		mcp.WithBoolean("on",
			mcp.Description("Desired power state."),
		),
		mcp.WithNumber("brightness",
			mcp.Description("Brightness percentage, 0-100."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		on := optionalBool(args, "on")
		brightness := optionalInt(args, "brightness")
		if on == nil && brightness == nil {
			return mcp.NewToolResultError("on or brightness is required"), nil
		}
		dev, err := cl.Set(ctx, req.GetString("name", ""), on, brightness)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(dev)
	})

	s.AddTool(mcp.NewTool("device_toggle",
		mcp.WithDescription("Flip a device's power state."),
		mcp.WithString("name",
			mcp.Description("Device name or a unique part of it."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dev, err := cl.Toggle(ctx, req.GetString("name", ""))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(dev)
	})

	s.AddTool(mcp.NewTool("scene_trigger",
		mcp.WithDescription("Run a scene by name."),
		mcp.WithString("name",
			mcp.Description("Scene name or a unique part of it."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("name", "")
		if err := cl.TriggerScene(ctx, name); err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"triggered": name})
	})

	s.AddTool(mcp.NewTool("rule_list",
		mcp.WithDescription("List automation rules and which of them are currently active."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := cl.Rules(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(list)
	})

	s.AddTool(mcp.NewTool("homie_status",
		mcp.WithDescription("Show daemon status: device and scene counts, active rules, the current app and whether the API is exposed to the network."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := cl.Debug(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(info)
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, client.ErrUnreachable) {
		return mcp.NewToolResultError(unreachableMessage)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultError(apiErr.Message)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// optionalBool returns nil when key is absent or not a boolean.
func optionalBool(args map[string]any, key string) *bool {
	v, ok := args[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

// optionalInt returns nil when key is absent or not a number. Fractions round
// to the nearest integer.
func optionalInt(args map[string]any, key string) *int {
	switch v := args[key].(type) {
	case float64:
		n := int(math.Round(v))
		return &n
	case int:
		return &v
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}
	return s
}
