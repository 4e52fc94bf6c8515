package devices

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-ports/homie/internal/models"
)

// SetCall records one SetDeviceState invocation on a Fake.
type SetCall struct {
	DeviceID   string
	On         bool
	Brightness *int
}

// Fake is an in-memory Directory for tests. It applies state changes
// immediately and records every call.
type Fake struct {
	mu       sync.Mutex
	devices  map[string]models.Device
	order    []string
	scenes   []models.Scene
	setCalls []SetCall
	triggers []string
	failSet  map[string]bool
}

// NewFake returns a Fake holding devices.
func NewFake(devs ...models.Device) *Fake {
	f := &Fake{
		devices: make(map[string]models.Device),
		failSet: make(map[string]bool),
	}
	for _, d := range devs {
		f.devices[d.ID] = d
		f.order = append(f.order, d.ID)
	}
	return f
}

// AddScene registers a scene that TriggerScene will accept.
func (f *Fake) AddScene(s models.Scene) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes = append(f.scenes, s)
}

// FailSetFor makes SetDeviceState fail for deviceID.
func (f *Fake) FailSetFor(deviceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet[deviceID] = true
}

// Put overwrites a device's state directly, bypassing the call log.
func (f *Fake) Put(d models.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[d.ID]; !ok {
		f.order = append(f.order, d.ID)
	}
	f.devices[d.ID] = d
}

// GetDevice implements Directory.
func (f *Fake) GetDevice(id string) (models.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	return d, ok
}

// SetDeviceState implements Directory.
func (f *Fake) SetDeviceState(_ context.Context, d models.Device, on bool, brightness *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b *int
	if brightness != nil {
		v := *brightness
		b = &v
	}
	f.setCalls = append(f.setCalls, SetCall{DeviceID: d.ID, On: on, Brightness: b})

	if f.failSet[d.ID] {
		return fmt.Errorf("fake: set %s failed", d.ID)
	}
	cur, ok := f.devices[d.ID]
	if !ok {
		return fmt.Errorf("fake: %w: %s", ErrUnknownDevice, d.ID)
	}
	cur.IsOn = on
	if b != nil {
		cur.Brightness = b
	}
	f.devices[d.ID] = cur
	return nil
}

// TriggerScene implements Directory.
func (f *Fake) TriggerScene(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, name)
	for _, s := range f.scenes {
		if s.Name == name {
			return nil
		}
	}
	return fmt.Errorf("fake: %w: %s", ErrUnknownScene, name)
}

// ListDevices implements Directory.
func (f *Fake) ListDevices() []models.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Device, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.devices[id])
	}
	return out
}

// ListScenes implements Directory.
func (f *Fake) ListScenes() []models.Scene {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Scene, len(f.scenes))
	copy(out, f.scenes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetCalls returns the recorded SetDeviceState calls.
func (f *Fake) SetCalls() []SetCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SetCall, len(f.setCalls))
	copy(out, f.setCalls)
	return out
}

// Triggers returns the recorded scene names.
func (f *Fake) Triggers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.triggers))
	copy(out, f.triggers)
	return out
}
