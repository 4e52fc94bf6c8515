// Package infocmd implements `hkctl info`.
package infocmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
)

// Command implements `hkctl info`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the info command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "info",
		Aliases: []string{"status-all"},
		Short:   "Show Homie status",
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	cl := c.ctx.Client()
	info, err := cl.Debug(cmd.Context())
	if err != nil {
		return shared.Failure(err, shared.ConnectFailure)
	}

	active := "None"
	if len(info.ActiveRules) > 0 {
		active = strings.Join(info.ActiveRules, ", ")
	}
	security := color.New(color.FgGreen).Sprint("localhost only")
	if info.SecurityDegraded {
		security = color.New(color.FgRed).Sprint("⚠️  API reachable from the network")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🏠 Homie Status")
	fmt.Fprintf(out, "   Devices: %d\n", info.DevicesLoaded)
	fmt.Fprintf(out, "   Scenes: %d\n", info.ScenesLoaded)
	fmt.Fprintf(out, "   Active Rules: %s\n", active)
	if info.CurrentApp != "" {
		fmt.Fprintf(out, "   Current App: %s\n", info.CurrentApp)
	}
	fmt.Fprintf(out, "   Context Source: %s\n", info.ContextSource)
	fmt.Fprintf(out, "   Security: %s\n", security)
	fmt.Fprintf(out, "   API: %s\n", cl.BaseURL)
	if info.Version != "" {
		fmt.Fprintf(out, "   Version: %s\n", info.Version)
	}
	return nil
}
