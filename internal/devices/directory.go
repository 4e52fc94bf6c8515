// Package devices defines the device directory the automation core actuates,
// along with a SQLite-backed local directory and an in-memory fake.
package devices

import (
	"context"
	"errors"

	"github.com/go-ports/homie/internal/models"
)

var (
	// ErrUnknownDevice is returned when an operation names a device the
	// directory doesn't know.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrUnknownScene is returned when a scene name doesn't resolve.
	ErrUnknownScene = errors.New("unknown scene")
)

// Directory looks up and actuates devices and scenes.
//
// SetDeviceState and TriggerScene may block on the device layer; the rule
// engine calls them off its critical section.
type Directory interface {
	GetDevice(id string) (models.Device, bool)
	SetDeviceState(ctx context.Context, d models.Device, on bool, brightness *int) error
	TriggerScene(ctx context.Context, name string) error
	ListDevices() []models.Device
	ListScenes() []models.Scene
}
