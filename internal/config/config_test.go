package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/config"
)

func writeConfig(c *qt.C, body string) string {
	path := filepath.Join(c.TB.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte(body), 0o600), qt.IsNil)
	return path
}

func TestDefault_HappyPath(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg.Server.Addr, qt.Equals, "127.0.0.1:8420")
	c.Assert(cfg.Context.Backend, qt.Equals, config.BackendAuto)
	c.Assert(cfg.Context.PollInterval, qt.Equals, 1500*time.Millisecond)
	c.Assert(cfg.Probe.Interval, qt.Equals, 5*time.Minute)
	c.Assert(cfg.Logging.Level, qt.Equals, "info")
	c.Assert(cfg.Logging.Format, qt.Equals, "text")
	c.Assert(cfg.Validate(), qt.IsNil)
}

func TestLoad_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("non-existent file returns defaults without error", func(c *qt.C) {
		cfg, err := config.Load("/nonexistent/config.yaml")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Server.Addr, qt.Equals, config.DefaultAddr)
	})

	tests := []struct {
		name         string
		yaml         string
		wantAddr     string
		wantBackend  string
		wantPoll     time.Duration
		wantProbe    time.Duration
		wantLevel    string
		wantFormat   string
		wantDatabase string
	}{
		{
			name:         "full override",
			yaml:         "server:\n  addr: 127.0.0.1:9000\ncontext:\n  backend: poll\n  poll_interval: 2s\nprobe:\n  interval: 1m\nlogging:\n  level: DEBUG\n  format: json\ndatabase:\n  path: /tmp/x.db\n",
			wantAddr:     "127.0.0.1:9000",
			wantBackend:  "poll",
			wantPoll:     2 * time.Second,
			wantProbe:    time.Minute,
			wantLevel:    "debug",
			wantFormat:   "json",
			wantDatabase: "/tmp/x.db",
		},
		{
			name:        "partial override keeps defaults",
			yaml:        "context:\n  backend: push\n",
			wantAddr:    config.DefaultAddr,
			wantBackend: "push",
			wantPoll:    1500 * time.Millisecond,
			wantProbe:   5 * time.Minute,
			wantLevel:   "info",
			wantFormat:  "text",
		},
		{
			name:        "empty values are ignored",
			yaml:        "server:\n  addr: \"\"\nlogging:\n  level: \"\"\n",
			wantAddr:    config.DefaultAddr,
			wantBackend: "auto",
			wantPoll:    1500 * time.Millisecond,
			wantProbe:   5 * time.Minute,
			wantLevel:   "info",
			wantFormat:  "text",
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			cfg, err := config.Load(writeConfig(c, tt.yaml))
			c.Assert(err, qt.IsNil)
			c.Assert(cfg.Server.Addr, qt.Equals, tt.wantAddr)
			c.Assert(cfg.Context.Backend, qt.Equals, tt.wantBackend)
			c.Assert(cfg.Context.PollInterval, qt.Equals, tt.wantPoll)
			c.Assert(cfg.Probe.Interval, qt.Equals, tt.wantProbe)
			c.Assert(cfg.Logging.Level, qt.Equals, tt.wantLevel)
			c.Assert(cfg.Logging.Format, qt.Equals, tt.wantFormat)
			c.Assert(cfg.Database.Path, qt.Equals, tt.wantDatabase)
		})
	}
}

func TestLoad_HomeSeeds(t *testing.T) {
	c := qt.New(t)

	cfg, err := config.Load(writeConfig(c, `
home:
  devices:
    - id: lamp-1
      name: Office Lamp
      room: Office
      type: light
      on: true
      brightness: 60
    - id: fan-1
      name: Desk Fan
      type: outlet
  scenes:
    - name: Good Night
      home: Flat
      actions:
        - device: lamp-1
          on: false
`))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Home.Devices, qt.HasLen, 2)
	c.Assert(cfg.Home.Devices[0].Name, qt.Equals, "Office Lamp")
	c.Assert(*cfg.Home.Devices[0].Brightness, qt.Equals, 60)
	c.Assert(cfg.Home.Devices[1].Brightness, qt.IsNil)
	c.Assert(cfg.Home.Scenes, qt.HasLen, 1)
	c.Assert(cfg.Home.Scenes[0].Actions[0].Device, qt.Equals, "lamp-1")
}

func TestLoad_FailurePath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "server: [unterminated\n"},
		{"bad poll interval", "context:\n  poll_interval: soon\n"},
		{"bad probe interval", "probe:\n  interval: 5 minutes\n"},
		{"unknown backend", "context:\n  backend: carrier-pigeon\n"},
		{"address without port", "server:\n  addr: localhost\n"},
		{"negative poll interval", "context:\n  poll_interval: -1s\n"},
		{"duplicate device id", "home:\n  devices:\n    - {id: a, name: A}\n    - {id: a, name: B}\n"},
		{"scene references unknown device", "home:\n  scenes:\n    - name: S\n      actions:\n        - device: ghost\n"},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			_, err := config.Load(writeConfig(c, tc.yaml))
			c.Assert(err, qt.IsNotNil)
		})
	}
}

func TestDatabasePath(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg.DatabasePath("/h"), qt.Equals, filepath.Join("/h", "devices.db"))
	cfg.Database.Path = "/elsewhere.db"
	c.Assert(cfg.DatabasePath("/h"), qt.Equals, "/elsewhere.db")
}

func TestResolveHome_EnvOverride(t *testing.T) {
	c := qt.New(t)

	tmp := t.TempDir()
	t.Setenv("HOMIE_HOME", tmp)

	path, source := config.ResolveHome()
	c.Assert(source, qt.Equals, "env")
	c.Assert(path, qt.Equals, tmp)
}

func TestPersistedHome_RoundTrip(t *testing.T) {
	c := qt.New(t)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("HOMIE_HOME", "")
	target := t.TempDir()

	got, err := config.SetPersistedHome(target)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, target)

	path, source := config.ResolveHome()
	c.Assert(source, qt.Equals, "config")
	c.Assert(path, qt.Equals, target)

	changed, err := config.ClearPersistedHome()
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsTrue)

	_, source = config.ResolveHome()
	c.Assert(source, qt.Equals, "default")
}

func TestTemplate_LoadsCleanly(t *testing.T) {
	c := qt.New(t)

	cfg, err := config.Load(writeConfig(c, config.Template))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.Addr, qt.Equals, config.DefaultAddr)
	c.Assert(cfg.Context.PollInterval, qt.Equals, 1500*time.Millisecond)
	c.Assert(cfg.Home.Devices, qt.HasLen, 1)
	c.Assert(cfg.Home.Scenes[0].Actions[0].Device, qt.Equals, "desk-lamp")
}
