package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-ports/homie/internal/models"
)

// parseClock parses "H:MM" or "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// inWindow reports whether now falls inside tr. Both bounds are inclusive and
// a bound that does not parse imposes no constraint.
func inWindow(tr *models.TimeRange, now time.Time) bool {
	if tr == nil {
		return true
	}
	minutes := now.Hour()*60 + now.Minute()
	if tr.After != nil {
		if after, ok := parseClock(*tr.After); ok && minutes < after {
			return false
		}
	}
	if tr.Before != nil {
		if before, ok := parseClock(*tr.Before); ok && minutes > before {
			return false
		}
	}
	return true
}
