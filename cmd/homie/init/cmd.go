// Package initcmd implements the `homie init` command.
package initcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/homie/shared"
	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/rulestore"
)

// Command implements `homie init`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the init command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "init",
		Short: "Create the home directory, a starter config and the default rules",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	home, _ := c.ctx.ResolveHome()
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	out := cmd.OutOrStdout()

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfgPath, []byte(config.Template), 0o600); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", cfgPath)
	}

	store := rulestore.InHome(home)
	rules, err := store.Load()
	if err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}
	fmt.Fprintf(out, "Homie initialized at %s (%d rules in %s)\n", home, len(rules), store.Path())
	return nil
}
