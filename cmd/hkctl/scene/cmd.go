// Package scenecmd implements `hkctl scene`.
package scenecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

// Command implements `hkctl scene`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the scene command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "scene <name>",
		Short: "Trigger a scene",
		Args:  shared.JoinedName("hkctl scene <scene-name>"),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	name := shared.Name(args)
	if err := c.ctx.Client().TriggerScene(cmd.Context(), name); err != nil {
		return shared.Failure(err, fmt.Sprintf("Failed to trigger scene '%s'", name))
	}
	shared.Success(cmd.OutOrStdout(), "Scene '%s' triggered", name)
	return nil
}
