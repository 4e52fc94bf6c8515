package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/config"
	"github.com/go-ports/homie/internal/events"
)

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

func TestStatus_HappyPath(t *testing.T) {
	c := qt.New(t)

	var st Status
	c.Assert(st.SecurityDegraded(), qt.IsFalse)
	c.Assert(st.ContextSource(), qt.Equals, NoSource)

	c.Assert(st.setDegraded(true), qt.IsTrue)
	c.Assert(st.setDegraded(true), qt.IsFalse)
	c.Assert(st.SecurityDegraded(), qt.IsTrue)
	c.Assert(st.setDegraded(false), qt.IsTrue)

	src := &fakeSource{name: config.BackendPoll, running: true}
	st.setSource(src)
	c.Assert(st.ContextSource(), qt.Equals, "poll")

	src.running = false
	c.Assert(st.ContextSource(), qt.Equals, NoSource)

	src.running = true
	st.setSource(nil)
	c.Assert(st.ContextSource(), qt.Equals, NoSource)
}

type fakeSource struct {
	name    string
	running bool
}

func (*fakeSource) Start(context.Context) error { return nil }
func (*fakeSource) Stop()                       {}
func (s *fakeSource) Running() bool             { return s.running }
func (s *fakeSource) Name() string              { return s.name }

// ---------------------------------------------------------------------------
// reportExposure
// ---------------------------------------------------------------------------

func TestReportExposure_PublishesTransitionsOnly(t *testing.T) {
	c := qt.New(t)

	bc := events.NewBroadcaster(nil)
	defer bc.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := bc.Subscribe(ctx)

	s := &Service{Status: &Status{}, events: bc}
	s.reportExposure(false)
	s.reportExposure(true)
	s.reportExposure(true)
	s.reportExposure(false)

	var got []bool
	for len(got) < 2 {
		ev := <-ch
		c.Assert(ev.Type, qt.Equals, events.TypeSecurityChanged)
		got = append(got, *ev.Degraded)
	}
	c.Assert(got, qt.DeepEquals, []bool{true, false})
	select {
	case ev := <-ch:
		c.Fatalf("unexpected event %+v", ev)
	default:
	}
}

// ---------------------------------------------------------------------------
// NewLogger
// ---------------------------------------------------------------------------

func TestNewLogger(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name      string
		cfg       config.LoggingConfig
		wantDebug bool
		wantJSON  bool
	}{
		{"debug text", config.LoggingConfig{Level: "debug", Format: "text"}, true, false},
		{"info json", config.LoggingConfig{Level: "info", Format: "json"}, false, true},
		{"unknown falls back", config.LoggingConfig{Level: "loud", Format: "xml"}, false, false},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tc.cfg)
			logger.Debug("quiet")
			logger.Info("hello")

			out := buf.String()
			c.Assert(strings.Contains(out, "quiet"), qt.Equals, tc.wantDebug)
			c.Assert(strings.Contains(out, "hello"), qt.IsTrue)
			c.Assert(strings.HasPrefix(out, "{"), qt.Equals, tc.wantJSON)
		})
	}
}
