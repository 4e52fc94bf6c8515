// Package setupcmd implements the `homie setup` command.
package setupcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/homie/shared"
	"github.com/go-ports/homie/internal/setup"
)

// Command implements `homie setup`.
type Command struct {
	ctx       *shared.Context
	cmd       *cobra.Command
	configDir string
	project   bool
	api       string
}

// New creates the setup command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:       "setup <agent>",
		Short:     "Register the Homie MCP server with an agent",
		Long:      "Register the Homie MCP server with an agent.\n\nAgents: " + shared.AgentNames(),
		Args:      cobra.ExactArgs(1),
		ValidArgs: shared.AgentArgs(),
		RunE:      c.run,
	}
	c.cmd.Flags().StringVar(&c.configDir, "config-dir", "", "Directory holding the agent's MCP config file")
	c.cmd.Flags().BoolVar(&c.project, "project", false, "Install in the current project instead of globally")
	c.cmd.Flags().StringVar(&c.api, "api", "", "Control API base URL passed to the server as HOMIE_API")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	target, err := setup.TargetFor(setup.Agent(args[0]), c.configDir, c.project)
	if err != nil {
		return err
	}
	added, err := setup.Install(target, c.api)
	if err != nil {
		return err
	}
	if added {
		fmt.Fprintf(cmd.OutOrStdout(), "Installed: mcp server %q in %s\n", setup.ServerName, target.Path)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Already installed")
	}
	return nil
}
