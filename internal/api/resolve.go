package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ports/homie/internal/models"
)

var (
	// ErrNoMatch means no device or scene name matched the query.
	ErrNoMatch = errors.New("no match")

	// ErrAmbiguous means the best matching tier held more than one candidate.
	ErrAmbiguous = errors.New("ambiguous name")
)

// resolve finds the single item whose name best matches query. Tiers, in
// order: exact, case-insensitive exact, case-insensitive substring. The first
// non-empty tier wins; more than one candidate in it is ambiguous.
func resolve[T any](items []T, nameOf func(T) string, kind, query string) (T, error) {
	var zero T
	q := strings.TrimSpace(query)
	if q == "" {
		return zero, fmt.Errorf("%w: empty %s name", ErrNoMatch, kind)
	}
	lq := strings.ToLower(q)

	tiers := []func(string) bool{
		func(n string) bool { return n == q },
		func(n string) bool { return strings.EqualFold(n, q) },
		func(n string) bool { return strings.Contains(strings.ToLower(n), lq) },
	}
	for _, match := range tiers {
		var hits []T
		for _, it := range items {
			if match(nameOf(it)) {
				hits = append(hits, it)
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], nil
		default:
			names := make([]string, len(hits))
			for i, h := range hits {
				names[i] = nameOf(h)
			}
			return zero, fmt.Errorf("%w: '%s' matches %d %ss: %s", ErrAmbiguous, q, len(hits), kind, strings.Join(names, ", "))
		}
	}
	return zero, fmt.Errorf("%w: no %s matching '%s'", ErrNoMatch, kind, q)
}

func resolveDevice(devs []models.Device, query string) (models.Device, error) {
	return resolve(devs, func(d models.Device) string { return d.Name }, "device", query)
}

func resolveScene(scenes []models.Scene, query string) (models.Scene, error) {
	return resolve(scenes, func(s models.Scene) string { return s.Name }, "scene", query)
}

// matchMessage strips the sentinel prefix for display.
func matchMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrNoMatch, ErrAmbiguous} {
		if errors.Is(err, sentinel) {
			return strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	return msg
}
