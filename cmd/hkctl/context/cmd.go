// Package contextcmd implements `hkctl context`.
package contextcmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
	"github.com/go-ports/homie/internal/models"
)

// Command implements `hkctl context`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the context command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "context <app-identifier> [display name]",
		Short: "Evaluate rules as if the given app came to the front",
		Args:  shared.JoinedName("hkctl context <app-identifier> [display name]"),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	ev := models.ContextEvent{AppIdentifier: args[0], DisplayName: shared.Name(args[1:])}
	if ev.DisplayName == "" {
		ev.DisplayName = ev.AppIdentifier
	}
	active, err := c.ctx.Client().InjectContext(cmd.Context(), ev)
	if err != nil {
		return shared.Failure(err, "Failed to evaluate context")
	}

	names := "None"
	if len(active) > 0 {
		names = strings.Join(active, ", ")
	}
	shared.Success(cmd.OutOrStdout(), "Context → %s", ev.AppIdentifier)
	fmt.Fprintf(cmd.OutOrStdout(), "   Active Rules: %s\n", names)
	return nil
}
