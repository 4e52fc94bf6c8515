// Package powercmd implements `hkctl on` and `hkctl off`.
package powercmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

// Command implements `hkctl on` or `hkctl off`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
	on  bool
}

// New creates the on command when on is true and the off command otherwise.
func New(ctx *shared.Context, on bool) *Command {
	c := &Command{ctx: ctx, on: on}
	verb := "off"
	if on {
		verb = "on"
	}
	c.cmd = &cobra.Command{
		Use:   verb + " <name>",
		Short: "Turn device " + verb,
		Args:  shared.JoinedName("hkctl " + verb + " <device-name>"),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	name := shared.Name(args)
	dev, err := c.ctx.Client().Set(cmd.Context(), name, &c.on, nil)
	if err != nil {
		return shared.Failure(err, fmt.Sprintf("Failed to set '%s'", name))
	}
	if dev.Name != "" {
		name = dev.Name
	}
	shared.Success(cmd.OutOrStdout(), "%s → %s", name, shared.OnOff(c.on))
	return nil
}
