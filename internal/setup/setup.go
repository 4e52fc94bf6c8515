// Package setup registers and removes the homie MCP server in the config
// files of supported agents (Claude Code, Claude Desktop, Cursor, Codex,
// OpenCode).
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServerName is the key the MCP server is registered under.
const ServerName = "homie"

// Agent names a supported MCP client.
type Agent string

const (
	ClaudeCode    Agent = "claude-code"
	ClaudeDesktop Agent = "claude-desktop"
	Cursor        Agent = "cursor"
	Codex         Agent = "codex"
	Opencode      Agent = "opencode"
)

// Agents lists every supported agent in display order.
var Agents = []Agent{ClaudeCode, ClaudeDesktop, Cursor, Codex, Opencode}

// ErrUnknownAgent is returned for an agent name not in Agents.
var ErrUnknownAgent = errors.New("unknown agent")

type format int

const (
	formatMCPServers format = iota // {"mcpServers": {name: entry}}
	formatOpencode                 // {"mcp": {name: entry}}
	formatTOML                     // [mcp_servers.name]
)

// Target is one agent config file.
type Target struct {
	Agent  Agent
	Path   string
	format format
}

// TargetFor returns the config file for agent. dir replaces the agent's
// default config directory; project selects the per-project file where the
// agent has one.
//
//revive:disable:flag-parameter
func TargetFor(agent Agent, dir string, project bool) (Target, error) {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	pick := func(def string) string {
		if dir != "" {
			return dir
		}
		return def
	}

	switch agent {
	case ClaudeCode:
		if project {
			return Target{agent, filepath.Join(pick(cwd), ".mcp.json"), formatMCPServers}, nil
		}
		return Target{agent, filepath.Join(pick(home), ".claude.json"), formatMCPServers}, nil
	case ClaudeDesktop:
		cfgDir, err := os.UserConfigDir()
		if err != nil && dir == "" {
			return Target{}, fmt.Errorf("setup.TargetFor: %w", err)
		}
		return Target{agent, filepath.Join(pick(filepath.Join(cfgDir, "Claude")), "claude_desktop_config.json"), formatMCPServers}, nil
	case Cursor:
		base := filepath.Join(home, ".cursor")
		if project {
			base = filepath.Join(cwd, ".cursor")
		}
		return Target{agent, filepath.Join(pick(base), "mcp.json"), formatMCPServers}, nil
	case Codex:
		return Target{agent, filepath.Join(pick(filepath.Join(home, ".codex")), "config.toml"), formatTOML}, nil
	case Opencode:
		if project {
			return Target{agent, filepath.Join(pick(cwd), "opencode.json"), formatOpencode}, nil
		}
		return Target{agent, filepath.Join(pick(filepath.Join(home, ".config", "opencode")), "opencode.json"), formatOpencode}, nil
	}
	return Target{}, fmt.Errorf("setup.TargetFor: %w %q (want one of %s)", ErrUnknownAgent, agent, agentList())
}

//revive:enable:flag-parameter

// Install adds the homie server to t. apiURL, when set, is passed to the
// server as HOMIE_API. Returns false if an entry was already present.
func Install(t Target, apiURL string) (bool, error) {
	if t.format == formatTOML {
		return appendTOMLSection(t.Path, apiURL)
	}

	key := "mcpServers"
	entry := map[string]any{"type": "stdio", "command": ServerName, "args": []any{"mcp"}}
	if apiURL != "" {
		entry["env"] = map[string]any{"HOMIE_API": apiURL}
	}
	if t.format == formatOpencode {
		key = "mcp"
		entry = map[string]any{"type": "local", "command": []any{ServerName, "mcp"}}
		if apiURL != "" {
			entry["environment"] = map[string]any{"HOMIE_API": apiURL}
		}
	}

	data, err := readJSON(t.Path)
	if err != nil {
		return false, fmt.Errorf("setup.Install: %w", err)
	}
	servers, _ := data[key].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		data[key] = servers
	}
	if _, exists := servers[ServerName]; exists {
		return false, nil
	}
	servers[ServerName] = entry
	if err := writeJSON(t.Path, data); err != nil {
		return false, fmt.Errorf("setup.Install: %w", err)
	}
	return true, nil
}

// Uninstall removes the homie server from t. A file left empty is deleted.
// Returns false if there was nothing to remove.
func Uninstall(t Target) (bool, error) {
	if _, err := os.Stat(t.Path); os.IsNotExist(err) {
		return false, nil
	}
	if t.format == formatTOML {
		return removeTOMLSection(t.Path)
	}

	key := "mcpServers"
	if t.format == formatOpencode {
		key = "mcp"
	}
	data, err := readJSON(t.Path)
	if err != nil {
		return false, fmt.Errorf("setup.Uninstall: %w", err)
	}
	servers, _ := data[key].(map[string]any)
	if _, exists := servers[ServerName]; !exists {
		return false, nil
	}
	delete(servers, ServerName)
	if len(servers) == 0 {
		delete(data, key)
	}
	if len(data) == 0 {
		return true, os.Remove(t.Path)
	}
	if err := writeJSON(t.Path, data); err != nil {
		return false, fmt.Errorf("setup.Uninstall: %w", err)
	}
	return true, nil
}

func agentList() string {
	names := make([]string, len(Agents))
	for i, a := range Agents {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// ---------------------------------------------------------------------------
// JSON files
// ---------------------------------------------------------------------------

// readJSON returns the object in path, or an empty one when the file is
// missing. A file that exists but isn't a JSON object is an error so a
// hand-edited config is never overwritten.
func readJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return make(map[string]any), nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", path, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

func writeJSON(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644) // #nosec G306 -- agent MCP config holds no secrets
}

// ---------------------------------------------------------------------------
// TOML files (text-based; only the [mcp_servers.homie] table is touched)
// ---------------------------------------------------------------------------

const tomlHeader = "[mcp_servers." + ServerName + "]"

func tomlSection(apiURL string) string {
	s := "\n" + tomlHeader + "\ncommand = \"" + ServerName + "\"\nargs = [\"mcp\"]\n"
	if apiURL != "" {
		s += fmt.Sprintf("env = { HOMIE_API = %q }\n", apiURL)
	}
	return s
}

func appendTOMLSection(path, apiURL string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("setup.Install: %w", err)
	}
	if strings.Contains(string(data), tomlHeader) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("setup.Install: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("setup.Install: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(tomlSection(apiURL)); err != nil {
		return false, fmt.Errorf("setup.Install: %w", err)
	}
	return true, nil
}

// removeTOMLSection drops the homie table header and its keys up to the next
// table header or EOF.
func removeTOMLSection(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("setup.Uninstall: %w", err)
	}
	if !strings.Contains(string(data), tomlHeader) {
		return false, nil
	}

	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == tomlHeader:
			inSection = true
			continue
		case inSection && strings.HasPrefix(trimmed, "["):
			inSection = false
		}
		if !inSection {
			kept = append(kept, line)
		}
	}
	cleaned := strings.TrimRight(strings.Join(kept, "\n"), "\n")
	if strings.TrimSpace(cleaned) == "" {
		return true, os.Remove(path)
	}
	return true, os.WriteFile(path, []byte(cleaned+"\n"), 0o644) // #nosec G306 -- agent TOML config holds no secrets
}
