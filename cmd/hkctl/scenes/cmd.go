// Package scenescmd implements `hkctl scenes`.
package scenescmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

// Command implements `hkctl scenes`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the scenes command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "scenes",
		Short: "List all scenes",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	scenes, err := c.ctx.Client().Scenes(cmd.Context())
	if err != nil {
		return shared.Failure(err, shared.ConnectFailure)
	}

	out := cmd.OutOrStdout()
	if len(scenes) == 0 {
		fmt.Fprintln(out, "No scenes found.")
		return nil
	}

	fmt.Fprint(out, "🎬 Scenes:\n\n")
	for _, s := range scenes {
		fmt.Fprintf(out, "  • %s (%d actions)\n", s.Name, s.Actions)
	}
	fmt.Fprintf(out, "\nTotal: %d scenes\n", len(scenes))
	return nil
}
