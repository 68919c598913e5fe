package wavy

import (
	"sync"
)

// DeviceInfo describes one playback device a Driver can open.
type DeviceInfo struct {
	Index     int
	ID        string
	Name      string
	IsDefault bool

	// native is the driver specific device identifier
	native any
}

// DriverConfig is what a Driver is opened with.
type DriverConfig struct {
	SampleRate int
	Channels   int

	// PeriodFrames is the requested callback size. Zero lets the driver decide.
	PeriodFrames int
	Device       DeviceInfo
}

// RenderFunc fills out with frameCount interleaved frames. Drivers call it from their
// real-time thread.
type RenderFunc func(out []float32, frameCount int)

// Driver connects the mixer to an audio device. A driver renders through exactly one
// RenderFunc between Open and Close.
type Driver interface {
	Devices() ([]DeviceInfo, error)
	Open(cfg DriverConfig, render RenderFunc) error
	Close() error
}

// DeviceSelector picks the device to open from a non-empty list and returns its index.
// An out of range index selects the default device.
type DeviceSelector func(devices []DeviceInfo) int

func SelectDefaultDevice(devices []DeviceInfo) int {
	for i, d := range devices {
		if d.IsDefault {
			return i
		}
	}
	return 0
}

// SelectDeviceIndex selects the device at index, falling back to the default device.
func SelectDeviceIndex(index uint32) DeviceSelector {
	return func(devices []DeviceInfo) int {
		if int(index) < len(devices) {
			return int(index)
		}
		return SelectDefaultDevice(devices)
	}
}

func selectDevice(devices []DeviceInfo, selector DeviceSelector) DeviceInfo {

	if selector == nil {
		selector = SelectDefaultDevice
	}

	i := selector(devices)
	if i < 0 || i >= len(devices) {
		i = SelectDefaultDevice(devices)
	}
	return devices[i]
}

var _ Driver = &ManualDriver{}

// ManualDriver never starts a thread of its own. Pump runs the render callback on the
// caller's goroutine, which makes it suitable for headless use and tests.
type ManualDriver struct {
	mu      sync.Mutex
	devices []DeviceInfo
	cfg     DriverConfig
	render  RenderFunc
	buf     []float32
	opened  bool
}

func NewManualDriver() *ManualDriver {
	return &ManualDriver{
		devices: []DeviceInfo{{Index: 0, ID: "manual", Name: "Manual render", IsDefault: true}},
	}
}

// SetDevices replaces the devices the driver reports.
func (d *ManualDriver) SetDevices(devices []DeviceInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.devices = devices
}

func (d *ManualDriver) Devices() ([]DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DeviceInfo, len(d.devices))
	copy(out, d.devices)
	return out, nil
}

func (d *ManualDriver) Open(cfg DriverConfig, render RenderFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.render = render
	d.opened = true
	return nil
}

func (d *ManualDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.render = nil
	d.opened = false
	return nil
}

// Config returns the configuration the driver was last opened with.
func (d *ManualDriver) Config() DriverConfig {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cfg
}

func (d *ManualDriver) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.opened
}

// Pump renders frames and returns the interleaved output. The returned slice is reused
// by the next call. Returns nil if the driver is closed.
func (d *ManualDriver) Pump(frames int) []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.render == nil || frames <= 0 {
		return nil
	}

	n := frames * d.cfg.Channels
	if cap(d.buf) < n {
		d.buf = make([]float32, n)
	}
	d.buf = d.buf[:n]

	d.render(d.buf, frames)
	return d.buf
}
