// Package rulescmd implements the `hkctl rules` command group.
package rulescmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-ports/homie/cmd/hkctl/shared"
	"github.com/go-ports/homie/internal/models"
)

// Command implements `hkctl rules`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the rules command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "rules",
		Short: "List and manage automation rules",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	c.cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List rules and whether they are active",
			Args:  cobra.NoArgs,
			RunE:  c.runList,
		},
		newEnable(ctx, true),
		newEnable(ctx, false),
		newDelete(ctx),
		newAdd(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	list, err := c.ctx.Client().Rules(cmd.Context())
	if err != nil {
		return shared.Failure(err, shared.ConnectFailure)
	}

	out := cmd.OutOrStdout()
	if len(list.Rules) == 0 {
		fmt.Fprintln(out, "No rules found.")
		return nil
	}

	fmt.Fprint(out, "📋 Rules:\n\n")
	for _, r := range list.Rules {
		printRule(out, r, slices.Contains(list.Active, r.ID))
	}
	fmt.Fprintf(out, "Total: %d rules, %d active\n", len(list.Rules), len(list.Active))
	return nil
}

func printRule(w io.Writer, r models.Rule, active bool) {
	marker := "⚪️"
	state := "disabled"
	if r.Enabled {
		marker = "🟢"
		state = "enabled"
	}
	if active {
		state = color.New(color.FgGreen).Sprint("active")
	}
	fmt.Fprintf(w, "  %s %s (%s)\n", marker, r.Name, state)
	fmt.Fprintf(w, "     id:   %s\n", r.ID)
	fmt.Fprintf(w, "     when: %s\n", describeConditions(r.Conditions))
	fmt.Fprintf(w, "     do:   %s\n", describeActions(r.Actions))
	if !r.Revert {
		fmt.Fprintln(w, "     revert: no")
	}
	fmt.Fprintln(w)
}

func describeConditions(c models.Conditions) string {
	var parts []string
	if c.App != nil {
		parts = append(parts, "app "+*c.App)
	}
	if tr := c.TimeRange; tr != nil {
		after, before := "", ""
		if tr.After != nil {
			after = *tr.After
		}
		if tr.Before != nil {
			before = *tr.Before
		}
		parts = append(parts, fmt.Sprintf("between %s-%s", after, before))
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, ", ")
}

func describeActions(actions []models.Action) string {
	if len(actions) == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		switch a.Kind {
		case models.ActionScene:
			parts = append(parts, fmt.Sprintf("scene '%s'", a.SceneName))
		case models.ActionDevice:
			s := a.DeviceID
			if a.On != nil {
				s += " " + map[bool]string{true: "on", false: "off"}[*a.On]
			}
			if a.Brightness != nil {
				s += fmt.Sprintf(" %d%%", *a.Brightness)
			}
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

// findRule matches key against rule ids, then names case-insensitively.
func findRule(rules []models.Rule, key string) (models.Rule, error) {
	for _, r := range rules {
		if r.ID == key {
			return r, nil
		}
	}
	var hits []models.Rule
	for _, r := range rules {
		if strings.EqualFold(r.Name, key) {
			hits = append(hits, r)
		}
	}
	switch len(hits) {
	case 0:
		return models.Rule{}, fmt.Errorf("❌ No rule matching '%s'", key)
	case 1:
		return hits[0], nil
	default:
		return models.Rule{}, fmt.Errorf("❌ '%s' matches %d rules; use the id", key, len(hits))
	}
}

// ---------------------------------------------------------------------------
// rules enable / disable
// ---------------------------------------------------------------------------

func newEnable(ctx *shared.Context, enabled bool) *cobra.Command {
	verb := "disable"
	if enabled {
		verb = "enable"
	}
	return &cobra.Command{
		Use:   verb + " <id|name>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a rule",
		Args:  shared.JoinedName("hkctl rules " + verb + " <id|name>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := ctx.Client()
			list, err := cl.Rules(cmd.Context())
			if err != nil {
				return shared.Failure(err, shared.ConnectFailure)
			}
			r, err := findRule(list.Rules, shared.Name(args))
			if err != nil {
				return err
			}
			r.Enabled = enabled
			if _, err := cl.UpdateRule(cmd.Context(), r); err != nil {
				return shared.Failure(err, fmt.Sprintf("Failed to %s '%s'", verb, r.Name))
			}
			shared.Success(cmd.OutOrStdout(), "Rule '%s' %sd", r.Name, verb)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// rules delete
// ---------------------------------------------------------------------------

func newDelete(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a rule",
		Args:    shared.JoinedName("hkctl rules delete <id|name>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := ctx.Client()
			list, err := cl.Rules(cmd.Context())
			if err != nil {
				return shared.Failure(err, shared.ConnectFailure)
			}
			r, err := findRule(list.Rules, shared.Name(args))
			if err != nil {
				return err
			}
			if err := cl.DeleteRule(cmd.Context(), r.ID); err != nil {
				return shared.Failure(err, fmt.Sprintf("Failed to delete '%s'", r.Name))
			}
			shared.Success(cmd.OutOrStdout(), "Rule '%s' deleted", r.Name)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// rules add
// ---------------------------------------------------------------------------

type addFlags struct {
	name       string
	app        string
	after      string
	before     string
	scenes     []string
	devices    []string
	on         bool
	off        bool
	brightness int
	noRevert   bool
	disabled   bool
}

func newAdd(ctx *shared.Context) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a rule",
		Example: `  hkctl rules add --name "Video Call" --app us.zoom.xos --device desk-lamp --on --brightness 80
  hkctl rules add --name Evening --app 'com.adobe.*' --after 18:00 --scene "Dim Lights"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := f.rule(cmd.Flags().Changed("brightness"))
			if err != nil {
				return err
			}
			created, err := ctx.Client().AddRule(cmd.Context(), r)
			if err != nil {
				return shared.Failure(err, fmt.Sprintf("Failed to add '%s'", r.Name))
			}
			shared.Success(cmd.OutOrStdout(), "Rule '%s' added (id: %s)", created.Name, created.ID)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "Rule name (required)")
	fl.StringVar(&f.app, "app", "", "App identifier pattern, e.g. us.zoom.xos or com.adobe.*")
	fl.StringVar(&f.after, "after", "", "Only from this time of day (HH:MM)")
	fl.StringVar(&f.before, "before", "", "Only until this time of day (HH:MM)")
	fl.StringArrayVar(&f.scenes, "scene", nil, "Scene to trigger (repeatable)")
	fl.StringArrayVar(&f.devices, "device", nil, "Device id to change (repeatable)")
	fl.BoolVar(&f.on, "on", false, "Turn the devices on")
	fl.BoolVar(&f.off, "off", false, "Turn the devices off")
	fl.IntVar(&f.brightness, "brightness", 0, "Set the devices' brightness (0-100)")
	fl.BoolVar(&f.noRevert, "no-revert", false, "Leave devices as they are when the rule stops matching")
	fl.BoolVar(&f.disabled, "disabled", false, "Create the rule disabled")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("on", "off")
	return cmd
}

// rule builds the rule described by the flags.
func (f addFlags) rule(withBrightness bool) (models.Rule, error) {
	if len(f.scenes) == 0 && len(f.devices) == 0 {
		return models.Rule{}, errors.New("❌ A rule needs at least one --scene or --device")
	}
	if len(f.devices) > 0 && !f.on && !f.off && !withBrightness {
		return models.Rule{}, errors.New("❌ --device needs --on, --off or --brightness")
	}

	r := models.Rule{
		Name:    f.name,
		Revert:  !f.noRevert,
		Enabled: !f.disabled,
		Actions: make([]models.Action, 0, len(f.scenes)+len(f.devices)),
	}
	if f.app != "" {
		r.Conditions.App = models.Ptr(f.app)
	}
	if f.after != "" || f.before != "" {
		r.Conditions.TimeRange = &models.TimeRange{}
		if f.after != "" {
			r.Conditions.TimeRange.After = models.Ptr(f.after)
		}
		if f.before != "" {
			r.Conditions.TimeRange.Before = models.Ptr(f.before)
		}
	}
	for _, s := range f.scenes {
		r.Actions = append(r.Actions, models.SceneAction(s))
	}

	var on *bool
	switch {
	case f.on:
		on = models.Ptr(true)
	case f.off:
		on = models.Ptr(false)
	}
	var brightness *int
	if withBrightness {
		brightness = models.Ptr(max(0, min(100, f.brightness)))
	}
	for _, d := range f.devices {
		r.Actions = append(r.Actions, models.DeviceAction(d, on, brightness))
	}
	return r, nil
}
