package events_test

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/events"
)

func receive(c *qt.C, ch <-chan events.Event) events.Event {
	c.TB.Helper()
	select {
	case ev, ok := <-ch:
		c.Assert(ok, qt.IsTrue)
		return ev
	case <-time.After(time.Second):
		c.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func TestBroadcaster_FanOut(t *testing.T) {
	c := qt.New(t)
	b := events.NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := b.Subscribe(ctx)
	z, _ := b.Subscribe(ctx)

	b.Publish(events.Event{Type: events.TypeRuleActivated, RuleID: "r1"})

	for _, ch := range []<-chan events.Event{a, z} {
		ev := receive(c, ch)
		c.Assert(ev.Type, qt.Equals, events.TypeRuleActivated)
		c.Assert(ev.RuleID, qt.Equals, "r1")
		c.Assert(ev.Time.IsZero(), qt.IsFalse)
	}
}

func TestBroadcaster_ContextCancelUnsubscribes(t *testing.T) {
	c := qt.New(t)
	b := events.NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		c.Assert(ok, qt.IsFalse)
	case <-time.After(time.Second):
		c.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber left must not panic.
	b.Publish(events.Event{Type: events.TypeRulesChanged})
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	c := qt.New(t)
	b := events.NewBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			b.Publish(events.Event{Type: events.TypeContextChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		c.Fatal("Publish blocked on a full subscriber")
	}
	c.Assert(len(ch), qt.Equals, cap(ch))
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	c := qt.New(t)
	b := events.NewBroadcaster(nil)
	b.Close()

	ch, _ := b.Subscribe(context.Background())
	_, ok := <-ch
	c.Assert(ok, qt.IsFalse)
}
