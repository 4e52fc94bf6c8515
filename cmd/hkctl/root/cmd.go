// Package rootcmd wires the root cobra.Command for the hkctl binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	contextcmd "github.com/go-ports/homie/cmd/hkctl/context"
	infocmd "github.com/go-ports/homie/cmd/hkctl/info"
	listcmd "github.com/go-ports/homie/cmd/hkctl/list"
	powercmd "github.com/go-ports/homie/cmd/hkctl/power"
	rulescmd "github.com/go-ports/homie/cmd/hkctl/rules"
	scenecmd "github.com/go-ports/homie/cmd/hkctl/scene"
	scenescmd "github.com/go-ports/homie/cmd/hkctl/scenes"
	setcmd "github.com/go-ports/homie/cmd/hkctl/set"
	"github.com/go-ports/homie/cmd/hkctl/shared"
	statuscmd "github.com/go-ports/homie/cmd/hkctl/status"
	togglecmd "github.com/go-ports/homie/cmd/hkctl/toggle"
	"github.com/go-ports/homie/internal/buildinfo"
	"github.com/go-ports/homie/internal/client"
)

const examples = `  hkctl toggle "Office Lamp"
  hkctl on office
  hkctl set kitchen 50
  hkctl scene "Good Night"

Device/scene names support fuzzy matching.`

// New creates and returns the root cobra.Command for hkctl.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "hkctl",
		Short:         "hkctl - Homie CLI",
		Example:       examples,
		Version:       buildinfo.Summary(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.API, "api", "",
		"Control API base URL (default: $"+client.EnvBaseURL+" → "+client.DefaultBaseURL+")",
	)

	root.AddCommand(
		listcmd.New(ctx).Cmd(),
		scenescmd.New(ctx).Cmd(),
		statuscmd.New(ctx).Cmd(),
		togglecmd.New(ctx).Cmd(),
		powercmd.New(ctx, true).Cmd(),
		powercmd.New(ctx, false).Cmd(),
		setcmd.New(ctx).Cmd(),
		scenecmd.New(ctx).Cmd(),
		infocmd.New(ctx).Cmd(),
		rulescmd.New(ctx).Cmd(),
		contextcmd.New(ctx).Cmd(),
	)

	return root
}
