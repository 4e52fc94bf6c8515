// Package togglecmd implements `hkctl toggle`.
package togglecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

// Command implements `hkctl toggle`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the toggle command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "toggle <name>",
		Short: "Toggle device on/off",
		Args:  shared.JoinedName("hkctl toggle <device-name>"),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	name := shared.Name(args)
	dev, err := c.ctx.Client().Toggle(cmd.Context(), name)
	if err != nil {
		return shared.Failure(err, fmt.Sprintf("Failed to toggle '%s'", name))
	}
	if dev.Name == "" {
		shared.Success(cmd.OutOrStdout(), "Toggled '%s'", name)
		return nil
	}
	shared.Success(cmd.OutOrStdout(), "%s → %s", dev.Name, shared.OnOff(dev.IsOn))
	return nil
}
