// Package uninstallcmd implements the `homie uninstall` command.
package uninstallcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/homie/shared"
	"github.com/go-ports/homie/internal/setup"
)

// Command implements `homie uninstall`.
type Command struct {
	ctx       *shared.Context
	cmd       *cobra.Command
	configDir string
	project   bool
}

// New creates the uninstall command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:       "uninstall <agent>",
		Short:     "Remove the Homie MCP server from an agent",
		Long:      "Remove the Homie MCP server from an agent.\n\nAgents: " + shared.AgentNames(),
		Args:      cobra.ExactArgs(1),
		ValidArgs: shared.AgentArgs(),
		RunE:      c.run,
	}
	c.cmd.Flags().StringVar(&c.configDir, "config-dir", "", "Directory holding the agent's MCP config file")
	c.cmd.Flags().BoolVar(&c.project, "project", false, "Remove from the current project instead of globally")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	target, err := setup.TargetFor(setup.Agent(args[0]), c.configDir, c.project)
	if err != nil {
		return err
	}
	removed, err := setup.Uninstall(target)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed: mcp server %q from %s\n", setup.ServerName, target.Path)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to remove")
	}
	return nil
}
