// Package listcmd implements `hkctl list`.
package listcmd

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
	"github.com/go-ports/homie/internal/models"
)

const noRoom = "No Room"

// Command implements `hkctl list`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the list command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "devices"},
		Short:   "List all devices (grouped by room)",
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	devs, err := c.ctx.Client().Devices(cmd.Context())
	if err != nil {
		return shared.Failure(err, shared.ConnectFailure)
	}

	out := cmd.OutOrStdout()
	if len(devs) == 0 {
		fmt.Fprintln(out, "No devices found.")
		return nil
	}

	fmt.Fprint(out, "📱 Devices:\n\n")
	for _, group := range byRoom(devs) {
		fmt.Fprintf(out, "  %s:\n", group.room)
		for _, d := range group.devices {
			status := "⚪️"
			if d.IsOn {
				status = "🟢"
			}
			brightness := ""
			if d.Brightness != nil {
				brightness = fmt.Sprintf(" (%d%%)", *d.Brightness)
			}
			fmt.Fprintf(out, "    %s %s%s\n", status, d.Name, brightness)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Total: %d devices\n", len(devs))
	return nil
}

type roomGroup struct {
	room    string
	devices []models.Device
}

// byRoom groups devices by room, rooms and names sorted.
func byRoom(devs []models.Device) []roomGroup {
	index := make(map[string]int)
	var groups []roomGroup
	for _, d := range devs {
		room := d.Room
		if room == "" {
			room = noRoom
		}
		i, ok := index[room]
		if !ok {
			i = len(groups)
			index[room] = i
			groups = append(groups, roomGroup{room: room})
		}
		groups[i].devices = append(groups[i].devices, d)
	}
	slices.SortFunc(groups, func(a, b roomGroup) int { return cmp.Compare(a.room, b.room) })
	for _, g := range groups {
		slices.SortFunc(g.devices, func(a, b models.Device) int { return cmp.Compare(a.Name, b.Name) })
	}
	return groups
}
