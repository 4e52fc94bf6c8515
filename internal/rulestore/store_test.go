package rulestore_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/models"
	"github.com/go-ports/homie/internal/rulestore"
)

func sampleRules() []models.Rule {
	return []models.Rule{
		{
			ID:   "r-1",
			Name: "Editing lights",
			Conditions: models.Conditions{
				App:       models.Ptr("com.adobe.Lightroom*"),
				TimeRange: &models.TimeRange{After: models.Ptr("18:00")},
			},
			Actions: []models.Action{
				models.DeviceAction("lamp-1", models.Ptr(true), models.Ptr(35)),
				models.SceneAction("Darkroom"),
			},
			Revert:  true,
			Enabled: true,
		},
		{
			ID:         "r-2",
			Name:       "Calls",
			Conditions: models.Conditions{App: models.Ptr("us.zoom.xos"), Focus: models.Ptr("Work")},
			Actions:    []models.Action{models.DeviceAction("key-light", nil, models.Ptr(100))},
		},
	}
}

// ---------------------------------------------------------------------------
// Save / Load
// ---------------------------------------------------------------------------

func TestSaveLoad_RoundTrip(t *testing.T) {
	c := qt.New(t)

	s := rulestore.InHome(t.TempDir())
	want := sampleRules()
	c.Assert(s.Save(want), qt.IsNil)

	got, err := s.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, want)
}

func TestSave_ReplacesDocument(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	s := rulestore.InHome(dir)
	c.Assert(s.Save(sampleRules()), qt.IsNil)
	c.Assert(s.Save(sampleRules()[:1]), qt.IsNil)

	got, err := s.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 1)

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].Name(), qt.Equals, rulestore.FileName)
}

func TestSave_FailurePath(t *testing.T) {
	c := qt.New(t)

	// The parent "directory" is a regular file, so nothing can be created below it.
	blocker := filepath.Join(t.TempDir(), "blocker")
	c.Assert(os.WriteFile(blocker, []byte("x"), 0o600), qt.IsNil)

	s := rulestore.New(filepath.Join(blocker, "rules.json"))
	err := s.Save(sampleRules())
	c.Assert(errors.Is(err, rulestore.ErrPersistence), qt.IsTrue)
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

func TestLoad_SeedsMissingStore(t *testing.T) {
	c := qt.New(t)

	s := rulestore.InHome(filepath.Join(t.TempDir(), "fresh"))
	first, err := s.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(first, qt.HasLen, 2)
	for _, r := range first {
		c.Assert(r.Enabled, qt.IsFalse)
		c.Assert(r.Revert, qt.IsTrue)
		c.Assert(r.ID, qt.Not(qt.Equals), "")
	}
	c.Assert(*first[0].Conditions.App, qt.Equals, "us.zoom.xos")
	c.Assert(*first[1].Conditions.App, qt.Equals, "com.adobe.Lightroom*")

	_, statErr := os.Stat(s.Path())
	c.Assert(statErr, qt.IsNil)

	second, err := s.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.DeepEquals, first)
}

func TestLoad_CorruptStore(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{{{ nope"},
		{"unknown action type", `[{"id":"a","name":"x","conditions":{},"actions":[{"type":"laser"}],"revert":true,"enabled":true}]`},
		{"duplicate ids", `[{"id":"a","name":"x","conditions":{}},{"id":"a","name":"y","conditions":{}}]`},
		{"missing id", `[{"name":"x","conditions":{}}]`},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			s := rulestore.InHome(c.TB.TempDir())
			c.Assert(os.WriteFile(s.Path(), []byte(tc.body), 0o600), qt.IsNil)

			rules, err := s.Load()
			c.Assert(errors.Is(err, rulestore.ErrCorrupt), qt.IsTrue)
			c.Assert(rules, qt.HasLen, 2)
			c.Assert(rules[0].Enabled, qt.IsFalse)

			// The damaged document is preserved for the user to inspect.
			data, readErr := os.ReadFile(s.Path())
			c.Assert(readErr, qt.IsNil)
			c.Assert(string(data), qt.Equals, tc.body)
		})
	}
}

func TestDefaultRules_FreshIDs(t *testing.T) {
	c := qt.New(t)
	a, b := rulestore.DefaultRules(), rulestore.DefaultRules()
	c.Assert(a[0].ID, qt.Not(qt.Equals), b[0].ID)
	c.Assert(a[0].ID, qt.Not(qt.Equals), a[1].ID)
}
