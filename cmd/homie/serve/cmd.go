// Package servecmd implements the `homie serve` command.
package servecmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/homie/shared"
	"github.com/go-ports/homie/internal/api"
	"github.com/go-ports/homie/internal/buildinfo"
	"github.com/go-ports/homie/internal/service"
)

// Command implements `homie serve`.
type Command struct {
	ctx  *shared.Context
	cmd  *cobra.Command
	addr string
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the rule engine, context source and control API",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.addr, "addr", "", "Override server.addr from config.yaml")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	home, _ := c.ctx.ResolveHome()
	svc, err := service.New(service.Options{
		Home:      home,
		Addr:      c.addr,
		LogOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	printBanner(cmd.OutOrStdout(), svc)
	return svc.Run(cmd.Context())
}

func printBanner(w io.Writer, svc *service.Service) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(w, "🏠 Homie %s\n", buildinfo.Version)
	fmt.Fprintf(w, "   Home:    %s\n", svc.Home)
	addr := svc.Config.Server.Addr
	if api.IsLoopback(addr) {
		fmt.Fprintf(w, "   API:     %s\n", green.Sprintf("http://%s", addr))
	} else {
		fmt.Fprintf(w, "   API:     %s\n", yellow.Sprintf("http://%s (reachable from the network)", addr))
	}
	fmt.Fprintf(w, "   Rules:   %d loaded\n", len(svc.Engine().Rules()))
	fmt.Fprintf(w, "   Devices: %d, scenes: %d\n", len(svc.Directory().ListDevices()), len(svc.Directory().ListScenes()))
}
