package mcp_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/go-ports/homie/internal/api"
	"github.com/go-ports/homie/internal/client"
	"github.com/go-ports/homie/internal/devices"
	"github.com/go-ports/homie/internal/engine"
	internalmcp "github.com/go-ports/homie/internal/mcp"
	"github.com/go-ports/homie/internal/models"
	"github.com/go-ports/homie/internal/rulestore"
)

// newMCPClient starts a control API over a fake directory and returns an
// in-process MCP client proxying to it, started and initialized.
func newMCPClient(c *qt.C) (*mcpclient.Client, *devices.Fake) {
	c.TB.Helper()

	dir := devices.NewFake(
		models.Device{ID: "lamp", Name: "Office Lamp", Room: "Office", Type: "light", Brightness: models.Ptr(20)},
		models.Device{ID: "fan", Name: "Bedroom Fan", Room: "Bedroom", Type: "outlet", IsOn: true},
	)
	dir.AddScene(models.Scene{ID: "s", Name: "Good Night", Home: "Flat", Actions: 2})

	eng := engine.New(engine.Options{
		Directory: dir,
		Store:     rulestore.New(filepath.Join(c.TB.TempDir(), "rules.json")),
		Dispatch:  engine.Inline,
	})
	c.Assert(eng.Load(), qt.IsNil)

	srv := httptest.NewServer(api.New(api.Options{Directory: dir, Engine: eng}).Handler())
	c.TB.Cleanup(srv.Close)

	cl, err := mcpclient.NewInProcessClient(internalmcp.NewServer(client.New(srv.URL)))
	c.Assert(err, qt.IsNil)
	c.TB.Cleanup(func() { _ = cl.Close() })

	c.Assert(cl.Start(context.Background()), qt.IsNil)

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "homie-test", Version: "0.0.1"}
	_, err = cl.Initialize(context.Background(), initReq)
	c.Assert(err, qt.IsNil)

	return cl, dir
}

// callTool invokes the named tool and returns the text of the first content
// item and whether the result is an error.
func callTool(c *qt.C, cl *mcpclient.Client, name string, args map[string]any) (string, bool) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := cl.CallTool(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Content, qt.HasLen, 1)

	tc, ok := mcp.AsTextContent(result.Content[0])
	c.Assert(ok, qt.IsTrue)
	return tc.Text, result.IsError
}

// ---------------------------------------------------------------------------
// ListTools
// ---------------------------------------------------------------------------

func TestMCPListTools_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	result, err := cl.ListTools(context.Background(), mcp.ListToolsRequest{})
	c.Assert(err, qt.IsNil)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	for _, want := range []string{"device_list", "scene_list", "device_set", "device_toggle", "scene_trigger", "rule_list", "homie_status"} {
		c.Assert(names, qt.Contains, want)
	}
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

func TestMCPDeviceList_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	text, isErr := callTool(c, cl, "device_list", nil)
	c.Assert(isErr, qt.IsFalse)

	var list models.DeviceList
	c.Assert(json.Unmarshal([]byte(text), &list), qt.IsNil)
	c.Assert(list.Devices, qt.HasLen, 2)
}

func TestMCPDeviceSet_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, dir := newMCPClient(c)

	text, isErr := callTool(c, cl, "device_set", map[string]any{"name": "office", "brightness": 75})
	c.Assert(isErr, qt.IsFalse)

	var dev models.Device
	c.Assert(json.Unmarshal([]byte(text), &dev), qt.IsNil)
	c.Assert(dev.IsOn, qt.IsTrue)
	c.Assert(*dev.Brightness, qt.Equals, 75)
	c.Assert(dir.SetCalls(), qt.DeepEquals, []devices.SetCall{{DeviceID: "lamp", On: true, Brightness: models.Ptr(75)}})
}

func TestMCPDeviceSet_FailurePath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	c.Run("no change requested", func(c *qt.C) {
		text, isErr := callTool(c, cl, "device_set", map[string]any{"name": "office"})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Equals, "on or brightness is required")
	})

	c.Run("unknown device", func(c *qt.C) {
		text, isErr := callTool(c, cl, "device_set", map[string]any{"name": "garage", "on": true})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Equals, "no device matching 'garage'")
	})
}

func TestMCPToggleAndScene_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, dir := newMCPClient(c)

	text, isErr := callTool(c, cl, "device_toggle", map[string]any{"name": "Bedroom Fan"})
	c.Assert(isErr, qt.IsFalse)
	var dev models.Device
	c.Assert(json.Unmarshal([]byte(text), &dev), qt.IsNil)
	c.Assert(dev.IsOn, qt.IsFalse)

	_, isErr = callTool(c, cl, "scene_trigger", map[string]any{"name": "night"})
	c.Assert(isErr, qt.IsFalse)
	c.Assert(dir.Triggers(), qt.DeepEquals, []string{"Good Night"})
}

func TestMCPRuleListAndStatus_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	text, isErr := callTool(c, cl, "rule_list", nil)
	c.Assert(isErr, qt.IsFalse)
	var list models.RuleList
	c.Assert(json.Unmarshal([]byte(text), &list), qt.IsNil)
	c.Assert(list.Rules, qt.HasLen, 2)
	c.Assert(list.Active, qt.HasLen, 0)

	text, isErr = callTool(c, cl, "homie_status", nil)
	c.Assert(isErr, qt.IsFalse)
	var info models.DebugInfo
	c.Assert(json.Unmarshal([]byte(text), &info), qt.IsNil)
	c.Assert(info.DevicesLoaded, qt.Equals, 2)
	c.Assert(info.ScenesLoaded, qt.Equals, 1)
}

func TestMCPUnreachable(t *testing.T) {
	c := qt.New(t)

	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	cl, err := mcpclient.NewInProcessClient(internalmcp.NewServer(client.New(url)))
	c.Assert(err, qt.IsNil)
	defer cl.Close()
	c.Assert(cl.Start(context.Background()), qt.IsNil)
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "homie-test", Version: "0.0.1"}
	_, err = cl.Initialize(context.Background(), initReq)
	c.Assert(err, qt.IsNil)

	text, isErr := callTool(c, cl, "device_list", nil)
	c.Assert(isErr, qt.IsTrue)
	c.Assert(text, qt.Equals, "Failed to connect to Homie. Is the daemon running?")
}
