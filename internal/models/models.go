// Package models defines the core data types for the automation core.
package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

// Rule is a named condition → action automation.
type Rule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Conditions Conditions `json:"conditions"`
	Actions    []Action   `json:"actions"`
	Revert     bool       `json:"revert"`  // restore captured device state on deactivation
	Enabled    bool       `json:"enabled"` // disabled rules are never evaluated
}

// Conditions gate a rule. Nil fields impose no constraint.
type Conditions struct {
	App       *string    `json:"app,omitempty"` // app identifier pattern, supports a leading or trailing *
	TimeRange *TimeRange `json:"timeRange,omitempty"`
	Focus     *string    `json:"focus,omitempty"` // reserved; always satisfied
}

// TimeRange bounds the time of day, each side as "HH:MM".
type TimeRange struct {
	After  *string `json:"after,omitempty"`
	Before *string `json:"before,omitempty"`
}

// NewRuleID returns a fresh rule identifier.
func NewRuleID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of r so callers can't alias engine-owned state.
func (r Rule) Clone() Rule {
	out := r
	out.Conditions = Conditions{
		App:   cloneString(r.Conditions.App),
		Focus: cloneString(r.Conditions.Focus),
	}
	if tr := r.Conditions.TimeRange; tr != nil {
		out.Conditions.TimeRange = &TimeRange{
			After:  cloneString(tr.After),
			Before: cloneString(tr.Before),
		}
	}
	if r.Actions != nil {
		out.Actions = make([]Action, len(r.Actions))
		for i, a := range r.Actions {
			out.Actions[i] = a.clone()
		}
	}
	return out
}

// DeviceIDs returns the device ids referenced by the rule's DeviceSet actions,
// in action order, without duplicates.
func (r Rule) DeviceIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, a := range r.Actions {
		if a.Kind != ActionDevice || seen[a.DeviceID] {
			continue
		}
		seen[a.DeviceID] = true
		ids = append(ids, a.DeviceID)
	}
	return ids
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// ActionKind discriminates the Action union.
type ActionKind string

const (
	ActionScene  ActionKind = "scene"
	ActionDevice ActionKind = "device"
)

// Action is a tagged union: a scene trigger or a per-device state change.
// Only the fields belonging to Kind are meaningful.
type Action struct {
	Kind ActionKind

	// ActionScene
	SceneName string

	// ActionDevice
	DeviceID   string
	On         *bool
	Brightness *int
}

// SceneAction returns an action that triggers the named scene.
func SceneAction(name string) Action {
	return Action{Kind: ActionScene, SceneName: name}
}

// DeviceAction returns an action that sets a device's power and/or brightness.
func DeviceAction(deviceID string, on *bool, brightness *int) Action {
	return Action{Kind: ActionDevice, DeviceID: deviceID, On: on, Brightness: brightness}
}

type actionJSON struct {
	Type       ActionKind `json:"type"`
	Scene      string     `json:"scene,omitempty"`
	DeviceID   string     `json:"deviceId,omitempty"`
	On         *bool      `json:"on,omitempty"`
	Brightness *int       `json:"brightness,omitempty"`
}

// MarshalJSON encodes the action with an explicit "type" discriminator.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case ActionScene:
		return json.Marshal(actionJSON{Type: ActionScene, Scene: a.SceneName})
	case ActionDevice:
		return json.Marshal(actionJSON{
			Type:       ActionDevice,
			DeviceID:   a.DeviceID,
			On:         a.On,
			Brightness: a.Brightness,
		})
	default:
		return nil, fmt.Errorf("models: unknown action kind %q", a.Kind)
	}
}

// UnmarshalJSON decodes an action, rejecting unknown or incomplete variants.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case ActionScene:
		if raw.Scene == "" {
			return fmt.Errorf("models: scene action without scene name")
		}
		*a = SceneAction(raw.Scene)
	case ActionDevice:
		if raw.DeviceID == "" {
			return fmt.Errorf("models: device action without deviceId")
		}
		*a = DeviceAction(raw.DeviceID, raw.On, raw.Brightness)
	default:
		return fmt.Errorf("models: unknown action type %q", raw.Type)
	}
	return nil
}

func (a Action) clone() Action {
	out := a
	if a.On != nil {
		v := *a.On
		out.On = &v
	}
	if a.Brightness != nil {
		v := *a.Brightness
		out.Brightness = &v
	}
	return out
}

// ---------------------------------------------------------------------------
// Context and device state
// ---------------------------------------------------------------------------

// ContextEvent reports a transition of the foreground application.
type ContextEvent struct {
	AppIdentifier string `json:"appIdentifier"`
	DisplayName   string `json:"displayName"`
}

// DeviceSnapshot is the device state captured when a reverting rule activates.
type DeviceSnapshot struct {
	IsOn       bool `json:"isOn"`
	Brightness *int `json:"brightness,omitempty"`
}

// Device is an actuatable accessory known to the device directory.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Room       string `json:"room,omitempty"`
	Type       string `json:"type"`
	IsOn       bool   `json:"isOn"`
	Brightness *int   `json:"brightness,omitempty"`
}

// Snapshot returns the device's current power and brightness.
func (d Device) Snapshot() DeviceSnapshot {
	return DeviceSnapshot{IsOn: d.IsOn, Brightness: cloneInt(d.Brightness)}
}

// Scene is a named group of device actions.
type Scene struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Home    string `json:"home"`
	Actions int    `json:"actions"`
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// Ptr returns a pointer to v. Handy for optional rule fields.
func Ptr[T any](v T) *T { return &v }

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
