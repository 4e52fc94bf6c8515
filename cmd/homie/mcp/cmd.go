// Package mcpcmd implements the `homie mcp` command.
package mcpcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/homie/shared"
	"github.com/go-ports/homie/internal/client"
	internalmcp "github.com/go-ports/homie/internal/mcp"
)

// Command implements `homie mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
	api string
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the Homie MCP server (stdio transport) against a running daemon",
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.api, "api", "", "Control API base URL (default: $HOMIE_API → "+client.DefaultBaseURL+")")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	return internalmcp.Serve(cmd.Context(), client.ResolveBaseURL(c.api))
}
