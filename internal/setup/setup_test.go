package setup_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/setup"
)

func readJSON(c *qt.C, path string) map[string]any {
	c.TB.Helper()
	data, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	var m map[string]any
	c.Assert(json.Unmarshal(data, &m), qt.IsNil)
	return m
}

// ---------------------------------------------------------------------------
// TargetFor
// ---------------------------------------------------------------------------

func TestTargetFor_HappyPath(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	cases := []struct {
		agent   setup.Agent
		project bool
		want    string
	}{
		{setup.ClaudeCode, false, filepath.Join(dir, ".claude.json")},
		{setup.ClaudeCode, true, filepath.Join(dir, ".mcp.json")},
		{setup.ClaudeDesktop, false, filepath.Join(dir, "claude_desktop_config.json")},
		{setup.Cursor, false, filepath.Join(dir, "mcp.json")},
		{setup.Codex, false, filepath.Join(dir, "config.toml")},
		{setup.Opencode, false, filepath.Join(dir, "opencode.json")},
	}

	for _, tc := range cases {
		c.Run(string(tc.agent), func(c *qt.C) {
			target, err := setup.TargetFor(tc.agent, dir, tc.project)
			c.Assert(err, qt.IsNil)
			c.Assert(target.Path, qt.Equals, tc.want)
			c.Assert(target.Agent, qt.Equals, tc.agent)
		})
	}
}

func TestTargetFor_FailurePath(t *testing.T) {
	c := qt.New(t)

	_, err := setup.TargetFor("emacs", "", false)
	c.Assert(err, qt.ErrorIs, setup.ErrUnknownAgent)
	c.Assert(err, qt.ErrorMatches, `.*want one of claude-code, claude-desktop, cursor, codex, opencode.*`)
}

// ---------------------------------------------------------------------------
// JSON targets
// ---------------------------------------------------------------------------

func TestInstallUninstall_MCPServers(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	target, err := setup.TargetFor(setup.Cursor, dir, false)
	c.Assert(err, qt.IsNil)
	c.Assert(os.WriteFile(target.Path, []byte(`{"mcpServers":{"other":{"command":"x"}},"theme":"dark"}`), 0o644), qt.IsNil)

	added, err := setup.Install(target, "http://127.0.0.1:9000")
	c.Assert(err, qt.IsNil)
	c.Assert(added, qt.IsTrue)

	m := readJSON(c, target.Path)
	c.Assert(m["theme"], qt.Equals, "dark")
	servers := m["mcpServers"].(map[string]any)
	c.Assert(servers["other"], qt.IsNotNil)
	entry := servers["homie"].(map[string]any)
	c.Assert(entry["command"], qt.Equals, "homie")
	c.Assert(entry["args"], qt.DeepEquals, []any{"mcp"})
	c.Assert(entry["env"], qt.DeepEquals, map[string]any{"HOMIE_API": "http://127.0.0.1:9000"})

	added, err = setup.Install(target, "")
	c.Assert(err, qt.IsNil)
	c.Assert(added, qt.IsFalse)

	removed, err := setup.Uninstall(target)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.IsTrue)
	m = readJSON(c, target.Path)
	c.Assert(m["mcpServers"].(map[string]any)["homie"], qt.IsNil)

	removed, err = setup.Uninstall(target)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.IsFalse)
}

func TestUninstall_RemovesEmptyFile(t *testing.T) {
	c := qt.New(t)

	target, err := setup.TargetFor(setup.Opencode, t.TempDir(), true)
	c.Assert(err, qt.IsNil)

	added, err := setup.Install(target, "")
	c.Assert(err, qt.IsNil)
	c.Assert(added, qt.IsTrue)
	entry := readJSON(c, target.Path)["mcp"].(map[string]any)["homie"].(map[string]any)
	c.Assert(entry["command"], qt.DeepEquals, []any{"homie", "mcp"})

	removed, err := setup.Uninstall(target)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.IsTrue)
	_, err = os.Stat(target.Path)
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestInstall_FailurePath(t *testing.T) {
	c := qt.New(t)

	target, err := setup.TargetFor(setup.ClaudeDesktop, t.TempDir(), false)
	c.Assert(err, qt.IsNil)
	c.Assert(os.WriteFile(target.Path, []byte("// not json"), 0o644), qt.IsNil)

	_, err = setup.Install(target, "")
	c.Assert(err, qt.ErrorMatches, "setup.Install: .* is not a JSON object: .*")

	data, err := os.ReadFile(target.Path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "// not json")
}

// ---------------------------------------------------------------------------
// TOML target
// ---------------------------------------------------------------------------

func TestInstallUninstall_TOML(t *testing.T) {
	c := qt.New(t)

	target, err := setup.TargetFor(setup.Codex, t.TempDir(), false)
	c.Assert(err, qt.IsNil)
	c.Assert(os.WriteFile(target.Path, []byte("model = \"o3\"\n\n[mcp_servers.other]\ncommand = \"x\"\n"), 0o644), qt.IsNil)

	added, err := setup.Install(target, "http://127.0.0.1:9000")
	c.Assert(err, qt.IsNil)
	c.Assert(added, qt.IsTrue)

	data, err := os.ReadFile(target.Path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, "[mcp_servers.homie]\ncommand = \"homie\"\nargs = [\"mcp\"]\nenv = { HOMIE_API = \"http://127.0.0.1:9000\" }\n")

	added, err = setup.Install(target, "")
	c.Assert(err, qt.IsNil)
	c.Assert(added, qt.IsFalse)

	removed, err := setup.Uninstall(target)
	c.Assert(err, qt.IsNil)
	c.Assert(removed, qt.IsTrue)
	data, err = os.ReadFile(target.Path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "model = \"o3\"\n\n[mcp_servers.other]\ncommand = \"x\"\n")
}
