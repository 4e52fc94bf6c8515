// Package shared holds the context passed to all homie commands.
package shared

import (
	"strings"

	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/setup"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// Home overrides the application directory.
	// When empty, resolution falls through to HOMIE_HOME env var → persisted config → user config dir.
	Home string
}

// ResolveHome returns the home directory and where it came from.
func (c *Context) ResolveHome() (path, source string) {
	if c.Home != "" {
		return c.Home, "flag"
	}
	return config.ResolveHome()
}

// AgentArgs returns the agent names accepted by setup and uninstall.
func AgentArgs() []string {
	names := make([]string, len(setup.Agents))
	for i, a := range setup.Agents {
		names[i] = string(a)
	}
	return names
}

// AgentNames returns AgentArgs as a comma-separated list.
func AgentNames() string {
	return strings.Join(AgentArgs(), ", ")
}
