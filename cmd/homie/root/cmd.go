// Package rootcmd wires the root cobra.Command for the homie daemon binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	configcmd "github.com/go-ports/homie/cmd/homie/config"
	initcmd "github.com/go-ports/homie/cmd/homie/init"
	mcpcmd "github.com/go-ports/homie/cmd/homie/mcp"
	servecmd "github.com/go-ports/homie/cmd/homie/serve"
	setupcmd "github.com/go-ports/homie/cmd/homie/setup"
	"github.com/go-ports/homie/cmd/homie/shared"
	uninstallcmd "github.com/go-ports/homie/cmd/homie/uninstall"
	"github.com/go-ports/homie/internal/buildinfo"
)

// New creates and returns the root cobra.Command for homie.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "homie",
		Short:         "Homie: switch your lights when you switch apps",
		Version:       buildinfo.Summary(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.Home, "home", "",
		"Override home directory (default: $HOMIE_HOME env → persisted config → user config dir)",
	)

	root.AddCommand(
		initcmd.New(ctx).Cmd(),
		servecmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		setupcmd.New(ctx).Cmd(),
		uninstallcmd.New(ctx).Cmd(),
	)

	return root
}
