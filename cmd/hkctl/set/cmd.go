// Package setcmd implements `hkctl set`.
package setcmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

const usage = "Usage: hkctl set <device-name> <0-100>"

// Command implements `hkctl set`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the set command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "set <name> <0-100>",
		Short: "Set brightness level",
		Args:  validArgs,
		RunE:  c.run,
	}
	// Everything after the name is positional, so a negative level reaches
	// the clamp instead of being read as a shorthand flag.
	c.cmd.Flags().SetInterspersed(false)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func validArgs(_ *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errors.New(usage)
	}
	if _, err := strconv.Atoi(args[len(args)-1]); err != nil {
		return errors.New(usage)
	}
	return nil
}

func (c *Command) run(cmd *cobra.Command, args []string) error {
	name := shared.Name(args[:len(args)-1])
	level, _ := strconv.Atoi(args[len(args)-1])
	level = max(0, min(100, level))

	on := true
	if _, err := c.ctx.Client().Set(cmd.Context(), name, &on, &level); err != nil {
		return shared.Failure(err, fmt.Sprintf("Failed to set brightness for '%s'", name))
	}
	shared.Success(cmd.OutOrStdout(), "%s → %d%%", name, level)
	return nil
}
