package service_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/client"
	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/contextsource"
	"github.com/go-ports/homie/internal/models"
	"github.com/go-ports/homie/internal/service"
)

const homeConfig = `
logging:
  level: error
home:
  devices:
    - id: lamp-1
      name: Office Lamp
      room: Office
      type: light
      on: true
      brightness: 60
  scenes:
    - name: Good Night
      actions:
        - device: lamp-1
          on: false
`

// stubSource hands its handler to the test instead of watching windows.
type stubSource struct {
	handlers chan contextsource.Handler
	stopped  bool
}

func (s *stubSource) Start(context.Context) error { return nil }
func (s *stubSource) Stop()                       { s.stopped = true }
func (*stubSource) Running() bool                 { return true }
func (*stubSource) Name() string                  { return config.BackendPush }

func newHome(c *qt.C, body string) string {
	home := c.TB.TempDir()
	c.Assert(os.WriteFile(filepath.Join(home, "config.yaml"), []byte(body), 0o600), qt.IsNil)
	return home
}

// waitFor polls cond until it holds or a deadline passes.
func waitFor(c *qt.C, cond func() bool) {
	c.TB.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_HappyPath(t *testing.T) {
	c := qt.New(t)

	src := &stubSource{handlers: make(chan contextsource.Handler, 1)}
	svc, err := service.New(service.Options{
		Home:      newHome(c, homeConfig),
		LogOutput: io.Discard,
		OpenSource: func(_ context.Context, _ config.ContextConfig, h contextsource.Handler, _ *slog.Logger) (contextsource.Source, error) {
			src.handlers <- h
			return src, nil
		},
	})
	c.Assert(err, qt.IsNil)
	defer svc.Close()

	c.Assert(svc.Engine().Rules(), qt.HasLen, 2)
	dev, ok := svc.Directory().GetDevice("lamp-1")
	c.Assert(ok, qt.IsTrue)
	c.Assert(dev.IsOn, qt.IsTrue)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	cl := client.New("http://" + ln.Addr().String())
	bg := context.Background()

	devs, err := cl.Devices(bg)
	c.Assert(err, qt.IsNil)
	c.Assert(devs, qt.HasLen, 1)

	_, err = cl.AddRule(bg, models.Rule{
		Name:       "Browsing",
		Conditions: models.Conditions{App: models.Ptr("com.apple.Safari")},
		Actions:    []models.Action{models.DeviceAction("lamp-1", models.Ptr(false), nil)},
		Revert:     true,
		Enabled:    true,
	})
	c.Assert(err, qt.IsNil)

	emit := <-src.handlers
	emit(models.ContextEvent{AppIdentifier: "com.apple.Safari", DisplayName: "Safari"})
	waitFor(c, func() bool {
		d, err := cl.Device(bg, "Office Lamp")
		return err == nil && !d.IsOn
	})

	info, err := cl.Debug(bg)
	c.Assert(err, qt.IsNil)
	c.Assert(info.ContextSource, qt.Equals, config.BackendPush)
	c.Assert(info.ActiveRules, qt.DeepEquals, []string{"Browsing"})
	c.Assert(info.CurrentApp, qt.Equals, "com.apple.Safari")
	c.Assert(info.SecurityDegraded, qt.IsFalse)

	emit(models.ContextEvent{AppIdentifier: "com.apple.Terminal", DisplayName: "Terminal"})
	waitFor(c, func() bool {
		d, err := cl.Device(bg, "Office Lamp")
		return err == nil && d.IsOn && d.Brightness != nil && *d.Brightness == 60
	})

	cancel()
	c.Assert(<-done, qt.IsNil)
	c.Assert(src.stopped, qt.IsTrue)

	data, err := os.ReadFile(filepath.Join(svc.Home, "rules.json"))
	c.Assert(err, qt.IsNil)
	var stored []models.Rule
	c.Assert(json.Unmarshal(data, &stored), qt.IsNil)
	c.Assert(stored, qt.HasLen, 3)
	c.Assert(stored[2].Name, qt.Equals, "Browsing")
}

func TestService_NoContextSource(t *testing.T) {
	c := qt.New(t)

	svc, err := service.New(service.Options{
		Home:      newHome(c, homeConfig),
		LogOutput: io.Discard,
		OpenSource: func(context.Context, config.ContextConfig, contextsource.Handler, *slog.Logger) (contextsource.Source, error) {
			return nil, contextsource.ErrNoBackend
		},
	})
	c.Assert(err, qt.IsNil)
	defer svc.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	info, err := client.New("http://"+ln.Addr().String()).Debug(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(info.ContextSource, qt.Equals, service.NoSource)
	c.Assert(info.DevicesLoaded, qt.Equals, 1)
	c.Assert(info.ScenesLoaded, qt.Equals, 1)

	cancel()
	c.Assert(<-done, qt.IsNil)
}

func TestService_CorruptRulesFallBackToDefaults(t *testing.T) {
	c := qt.New(t)

	home := newHome(c, homeConfig)
	c.Assert(os.WriteFile(filepath.Join(home, "rules.json"), []byte("{not json"), 0o600), qt.IsNil)

	svc, err := service.New(service.Options{Home: home, LogOutput: io.Discard})
	c.Assert(err, qt.IsNil)
	defer svc.Close()

	c.Assert(svc.Engine().Rules(), qt.HasLen, 2)
	data, err := os.ReadFile(filepath.Join(home, "rules.json"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "{not json")
}

func TestService_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("invalid config", func(c *qt.C) {
		_, err := service.New(service.Options{Home: newHome(c, "context:\n  backend: smoke\n"), LogOutput: io.Discard})
		c.Assert(err, qt.ErrorMatches, "service.New: load config: .*")
	})

	c.Run("invalid address override", func(c *qt.C) {
		_, err := service.New(service.Options{Home: newHome(c, ""), Addr: "nowhere", LogOutput: io.Discard})
		c.Assert(err, qt.ErrorMatches, "service.New: server.addr .*")
	})
}
