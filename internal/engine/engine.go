// Package engine implements the context-aware rule engine: it decides which
// rules are active for the current foreground application and time of day,
// fires their actions against the device directory, and restores captured
// device state when a reverting rule stops holding.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-ports/homie/internal/devices"
	"github.com/go-ports/homie/internal/events"
	"github.com/go-ports/homie/internal/models"
	"github.com/go-ports/homie/internal/pattern"
)

var (
	// ErrDuplicateRule is returned by Add when the rule id is already taken.
	ErrDuplicateRule = errors.New("duplicate rule id")

	// ErrInvalidRule is returned by Add for rules without a name.
	ErrInvalidRule = errors.New("invalid rule")
)

// Store persists the rule set.
type Store interface {
	Load() ([]models.Rule, error)
	Save(rules []models.Rule) error
}

// Dispatcher runs a device call. The engine never waits for it, but calls
// must run in dispatch order so a later action overrides an earlier one.
type Dispatcher func(fn func())

// Inline runs fn on the calling goroutine.
func Inline(fn func()) { fn() }

// Options configures an Engine. Directory and Store are required.
type Options struct {
	Directory devices.Directory
	Store     Store
	Events    events.Publisher // nil → events.Discard
	Logger    *slog.Logger     // nil → slog.Default()
	Now       func() time.Time // nil → time.Now
	Dispatch  Dispatcher       // nil → a Queue owned by the engine
}

// State is a point-in-time copy of which rules are active and what device
// state they captured.
type State struct {
	Active    []string                                    `json:"active"`
	Snapshots map[string]map[string]models.DeviceSnapshot `json:"snapshots"`
}

// Engine owns the rule list, the active set and the snapshot table. Every
// exported method is serialized on one mutex.
type Engine struct {
	dir      devices.Directory
	store    Store
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
	dispatch Dispatcher
	queue    *Queue // owned; nil when Options.Dispatch was given

	mu          sync.Mutex
	rules       []models.Rule
	active      map[string]bool
	snapshots   map[string]map[string]models.DeviceSnapshot
	lastContext *models.ContextEvent
}

// New creates an engine with an empty rule set. Call Load to read the store.
func New(opts Options) *Engine {
	e := &Engine{
		dir:       opts.Directory,
		store:     opts.Store,
		events:    opts.Events,
		logger:    opts.Logger,
		now:       opts.Now,
		dispatch:  opts.Dispatch,
		active:    make(map[string]bool),
		snapshots: make(map[string]map[string]models.DeviceSnapshot),
	}
	if e.events == nil {
		e.events = events.Discard{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine")
	if e.now == nil {
		e.now = time.Now
	}
	if e.dispatch == nil {
		e.queue = NewQueue()
		e.dispatch = e.queue.Dispatch
	}
	return e
}

// Close waits for pending device calls when the engine owns its queue.
// Evaluations after Close no longer reach the devices.
func (e *Engine) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

// Evaluate runs every enabled rule against ev in stored order, activating
// rules whose conditions now hold and deactivating those that stopped holding.
// Disabled rules are skipped entirely.
func (e *Engine) Evaluate(ev models.ContextEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := ev
	e.lastContext = &cur
	e.events.Publish(events.Event{Type: events.TypeContextChanged, Context: &cur})

	now := e.now()
	e.logger.Debug("evaluating rules", "app", ev.AppIdentifier, "rules", len(e.rules))

	for i := range e.rules {
		r := e.rules[i]
		if !r.Enabled {
			continue
		}
		should := matches(r.Conditions, ev, now)
		switch {
		case should && !e.active[r.ID]:
			e.activate(r)
		case !should && e.active[r.ID]:
			e.deactivate(r)
		}
	}
}

func matches(c models.Conditions, ev models.ContextEvent, now time.Time) bool {
	if c.App != nil && !pattern.Matches(ev.AppIdentifier, *c.App) {
		return false
	}
	if !inWindow(c.TimeRange, now) {
		return false
	}
	// Focus is reserved and always satisfied.
	return true
}

// activate must be called with e.mu held.
func (e *Engine) activate(r models.Rule) {
	e.active[r.ID] = true
	e.logger.Info("rule activated", "rule", r.Name, "id", r.ID)

	if r.Revert {
		snap := make(map[string]models.DeviceSnapshot)
		for _, id := range r.DeviceIDs() {
			if d, ok := e.dir.GetDevice(id); ok {
				snap[id] = d.Snapshot()
			}
		}
		if len(snap) > 0 {
			e.snapshots[r.ID] = snap
		} else {
			delete(e.snapshots, r.ID)
		}
	}

	for _, a := range r.Actions {
		e.execute(r, a)
	}
	e.events.Publish(events.Event{Type: events.TypeRuleActivated, RuleID: r.ID, RuleName: r.Name})
}

// deactivate must be called with e.mu held.
func (e *Engine) deactivate(r models.Rule) {
	delete(e.active, r.ID)
	e.logger.Info("rule deactivated", "rule", r.Name, "id", r.ID)

	snap, ok := e.snapshots[r.ID]
	delete(e.snapshots, r.ID)
	if r.Revert && ok {
		ids := make([]string, 0, len(snap))
		for id := range snap {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			d, found := e.dir.GetDevice(id)
			if !found {
				e.logger.Warn("cannot restore device", "rule", r.Name, "device", id, "err", devices.ErrUnknownDevice)
				continue
			}
			s := snap[id]
			e.setDevice(r, d, s.IsOn, s.Brightness)
		}
	}
	e.events.Publish(events.Event{Type: events.TypeRuleDeactivated, RuleID: r.ID, RuleName: r.Name})
}

// execute must be called with e.mu held. Failures are logged; the remaining
// actions still run.
func (e *Engine) execute(r models.Rule, a models.Action) {
	switch a.Kind {
	case models.ActionScene:
		name := a.SceneName
		e.dispatch(func() {
			if err := e.dir.TriggerScene(context.Background(), name); err != nil {
				e.logger.Warn("scene trigger failed", "rule", r.Name, "scene", name, "err", err)
			}
		})
	case models.ActionDevice:
		d, ok := e.dir.GetDevice(a.DeviceID)
		if !ok {
			e.logger.Warn("action skipped", "rule", r.Name, "device", a.DeviceID, "err", devices.ErrUnknownDevice)
			return
		}
		on := d.IsOn
		if a.On != nil {
			on = *a.On
		}
		var brightness *int
		if a.Brightness != nil {
			v := *a.Brightness
			brightness = &v
		}
		e.setDevice(r, d, on, brightness)
	default:
		e.logger.Warn("unknown action kind", "rule", r.Name, "kind", a.Kind)
	}
}

func (e *Engine) setDevice(r models.Rule, d models.Device, on bool, brightness *int) {
	e.dispatch(func() {
		if err := e.dir.SetDeviceState(context.Background(), d, on, brightness); err != nil {
			e.logger.Warn("device update failed", "rule", r.Name, "device", d.ID, "err", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Load replaces the rule set with the store's contents. Every rule starts
// inactive and all snapshots are dropped. The store returns usable rules even
// when it reports an error, so the returned error is informational.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules, err := e.store.Load()
	e.rules = rules
	e.active = make(map[string]bool)
	e.snapshots = make(map[string]map[string]models.DeviceSnapshot)
	e.logger.Info("rules loaded", "count", len(rules))
	e.events.Publish(events.Event{Type: events.TypeRulesChanged})
	if err != nil {
		return fmt.Errorf("engine.Load: %w", err)
	}
	return nil
}

// Save persists the current rule list.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Save(e.rules); err != nil {
		return fmt.Errorf("engine.Save: %w", err)
	}
	return nil
}

// Add appends rule and persists the list. An empty id is replaced with a
// fresh one. The stored rule is returned.
func (e *Engine) Add(rule models.Rule) (models.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rule.Name == "" {
		return models.Rule{}, fmt.Errorf("engine.Add: %w: name is required", ErrInvalidRule)
	}
	r := rule.Clone()
	if r.ID == "" {
		r.ID = models.NewRuleID()
	}
	if e.indexOf(r.ID) >= 0 {
		return models.Rule{}, fmt.Errorf("engine.Add: %w: %s", ErrDuplicateRule, r.ID)
	}
	if r.Actions == nil {
		r.Actions = []models.Action{}
	}

	e.rules = append(e.rules, r)
	e.logger.Info("rule added", "rule", r.Name, "id", r.ID)
	e.persist()
	e.events.Publish(events.Event{Type: events.TypeRulesChanged, RuleID: r.ID, RuleName: r.Name})
	return r.Clone(), nil
}

// Update replaces the rule with the same id in place. It returns false and
// does nothing when the id is unknown. Disabling an active rule deactivates it
// at once; other condition changes take effect at the next evaluation.
func (e *Engine) Update(rule models.Rule) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(rule.ID)
	if idx < 0 {
		return false
	}
	r := rule.Clone()
	if r.Actions == nil {
		r.Actions = []models.Action{}
	}
	e.rules[idx] = r

	if e.active[r.ID] {
		switch {
		case !r.Enabled:
			e.deactivate(r)
		case !r.Revert || len(r.DeviceIDs()) == 0:
			delete(e.snapshots, r.ID)
		}
	}

	e.logger.Info("rule updated", "rule", r.Name, "id", r.ID)
	e.persist()
	e.events.Publish(events.Event{Type: events.TypeRulesChanged, RuleID: r.ID, RuleName: r.Name})
	return true
}

// Delete removes the rule, its active flag and its snapshot. Captured state
// is discarded, not replayed. It returns false when the id is unknown.
func (e *Engine) Delete(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}
	r := e.rules[idx]
	e.rules = append(e.rules[:idx:idx], e.rules[idx+1:]...)
	delete(e.active, id)
	delete(e.snapshots, id)

	e.logger.Info("rule deleted", "rule", r.Name, "id", id)
	e.persist()
	e.events.Publish(events.Event{Type: events.TypeRulesChanged, RuleID: id, RuleName: r.Name})
	return true
}

// persist must be called with e.mu held. A failed save leaves the in-memory
// state authoritative; the next mutation retries.
func (e *Engine) persist() {
	if err := e.store.Save(e.rules); err != nil {
		e.logger.Warn("failed to persist rules", "err", err)
	}
}

func (e *Engine) indexOf(id string) int {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Rules returns a copy of the rule list in stored order.
func (e *Engine) Rules() []models.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Clone()
	}
	return out
}

// Rule returns a copy of the rule with the given id.
func (e *Engine) Rule(id string) (models.Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexOf(id); idx >= 0 {
		return e.rules[idx].Clone(), true
	}
	return models.Rule{}, false
}

// ActiveRules returns the ids of active rules in stored order.
func (e *Engine) ActiveRules() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeIDs()
}

// ActiveRuleNames returns the names of active rules in stored order.
func (e *Engine) ActiveRuleNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := []string{}
	for _, r := range e.rules {
		if e.active[r.ID] {
			names = append(names, r.Name)
		}
	}
	return names
}

// State returns a copy of the active set and snapshot table.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Active:    e.activeIDs(),
		Snapshots: make(map[string]map[string]models.DeviceSnapshot, len(e.snapshots)),
	}
	for ruleID, snap := range e.snapshots {
		cp := make(map[string]models.DeviceSnapshot, len(snap))
		for devID, s := range snap {
			cp[devID] = models.Device{IsOn: s.IsOn, Brightness: s.Brightness}.Snapshot()
		}
		st.Snapshots[ruleID] = cp
	}
	return st
}

// LastContext returns the most recently evaluated context event.
func (e *Engine) LastContext() (models.ContextEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastContext == nil {
		return models.ContextEvent{}, false
	}
	return *e.lastContext, true
}

func (e *Engine) activeIDs() []string {
	ids := []string{}
	for _, r := range e.rules {
		if e.active[r.ID] {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
