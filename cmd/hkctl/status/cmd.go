// Package statuscmd implements `hkctl status`.
package statuscmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

// Command implements `hkctl status`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the status command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "status <name>",
		Aliases: []string{"get"},
		Short:   "Get device status",
		Args:    shared.JoinedName("hkctl status <device-name>"),
		RunE:    c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	name := shared.Name(args)
	dev, err := c.ctx.Client().Device(cmd.Context(), name)
	if err != nil {
		return shared.Failure(err, fmt.Sprintf("Device '%s' not found", name))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📱 %s\n", dev.Name)
	fmt.Fprintf(out, "   Status: %s\n", statusLabel(dev.IsOn))
	if dev.Brightness != nil {
		fmt.Fprintf(out, "   Brightness: %d%%\n", *dev.Brightness)
	}
	if dev.Room != "" {
		fmt.Fprintf(out, "   Room: %s\n", dev.Room)
	}
	return nil
}

func statusLabel(on bool) string {
	if on {
		return "🟢 ON"
	}
	return "⚪️ OFF"
}
