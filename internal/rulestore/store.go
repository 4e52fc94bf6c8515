// Package rulestore persists the rule set as a JSON document in the home
// directory.
package rulestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ports/homie/internal/models"
)

// FileName is the rule document's name inside the home directory.
const FileName = "rules.json"

var (
	// ErrCorrupt is returned by Load when the rule document exists but can't be
	// decoded. The defaults are returned alongside it and the file is left as is.
	ErrCorrupt = errors.New("rule store corrupt")

	// ErrPersistence is returned when the rule document can't be written.
	ErrPersistence = errors.New("rule store write failed")
)

// Store reads and writes the rule document.
type Store struct {
	path string
}

// New returns a Store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// InHome returns a Store for the rule document inside home.
func InHome(home string) *Store {
	return New(filepath.Join(home, FileName))
}

// Path returns the location of the rule document.
func (s *Store) Path() string { return s.path }

// Load reads the rule set.
//
// A missing document is seeded with DefaultRules, which are written back
// immediately. A document that fails to decode yields DefaultRules together
// with an error wrapping ErrCorrupt; callers should log it and carry on with
// the returned rules.
func (s *Store) Load() ([]models.Rule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		rules := DefaultRules()
		if err := s.Save(rules); err != nil {
			return rules, err
		}
		return rules, nil
	}
	if err != nil {
		return DefaultRules(), fmt.Errorf("rulestore.Load: %w: %w", ErrCorrupt, err)
	}

	var rules []models.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return DefaultRules(), fmt.Errorf("rulestore.Load: %w: %w", ErrCorrupt, err)
	}
	if err := validate(rules); err != nil {
		return DefaultRules(), fmt.Errorf("rulestore.Load: %w: %w", ErrCorrupt, err)
	}
	return rules, nil
}

// Save replaces the rule document with rules. The write goes to a temporary
// file in the same directory which is then renamed over the target, so
// readers see either the old or the new document.
func (s *Store) Save(rules []models.Rule) error {
	if rules == nil {
		rules = make([]models.Rule, 0)
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rulestore.Save: %w: %w", ErrPersistence, err)
	}
	return nil
}

// validate rejects documents that decode but break the id invariant.
func validate(rules []models.Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule %q has no id", r.Name)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// DefaultRules returns the templates written on first run. Both are disabled
// so a fresh install never touches a device until the user opts in.
func DefaultRules() []models.Rule {
	return []models.Rule{
		{
			ID:   models.NewRuleID(),
			Name: "Video Call Mode",
			Conditions: models.Conditions{
				App: models.Ptr("us.zoom.xos"),
			},
			Actions: make([]models.Action, 0),
			Revert:  true,
			Enabled: false,
		},
		{
			ID:   models.NewRuleID(),
			Name: "Photo Editing",
			Conditions: models.Conditions{
				App: models.Ptr("com.adobe.Lightroom*"),
				TimeRange: &models.TimeRange{
					After:  models.Ptr("18:00"),
					Before: models.Ptr("23:59"),
				},
			},
			Actions: make([]models.Action, 0),
			Revert:  true,
			Enabled: false,
		},
	}
}
