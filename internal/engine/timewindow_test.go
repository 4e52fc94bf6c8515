package engine

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/homie/internal/models"
)

func TestParseClock(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"00:00", 0, true},
		{"9:05", 9*60 + 5, true},
		{"18:00", 18 * 60, true},
		{"23:59", 23*60 + 59, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"12:5", 0, false},
		{"123:00", 0, false},
		{"noon", 0, false},
		{"", 0, false},
		{"-1:00", 0, false},
	}

	for _, tc := range cases {
		c.Run(tc.in, func(c *qt.C) {
			got, ok := parseClock(tc.in)
			c.Assert(ok, qt.Equals, tc.wantOK)
			c.Assert(got, qt.Equals, tc.want)
		})
	}
}

func TestInWindow(t *testing.T) {
	c := qt.New(t)

	at := func(h, m int) time.Time { return time.Date(2026, 3, 14, h, m, 0, 0, time.Local) }
	evening := &models.TimeRange{After: models.Ptr("18:00"), Before: models.Ptr("23:59")}

	cases := []struct {
		name string
		tr   *models.TimeRange
		now  time.Time
		want bool
	}{
		{"nil range", nil, at(3, 0), true},
		{"one minute early", evening, at(17, 59), false},
		{"lower bound inclusive", evening, at(18, 0), true},
		{"upper bound inclusive", evening, at(23, 59), true},
		{"after only", &models.TimeRange{After: models.Ptr("18:00")}, at(23, 30), true},
		{"after only, too early", &models.TimeRange{After: models.Ptr("18:00")}, at(7, 0), false},
		{"before only", &models.TimeRange{Before: models.Ptr("09:00")}, at(9, 1), false},
		{"unparsable bound is ignored", &models.TimeRange{After: models.Ptr("dusk"), Before: models.Ptr("10:00")}, at(0, 1), true},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(inWindow(tc.tr, tc.now), qt.Equals, tc.want)
		})
	}
}
