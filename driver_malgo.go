//go:build !headless

package wavy

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// DefaultDriver returns the miniaudio backed driver.
func DefaultDriver() Driver {
	return NewMalgoDriver()
}

var _ Driver = &MalgoDriver{}

// MalgoDriver plays through miniaudio. Its data callback is the single render callback.
type MalgoDriver struct {
	mu       sync.Mutex
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	deviceID malgo.DeviceID

	render   RenderFunc
	channels int
	buf      []float32
}

func NewMalgoDriver() *MalgoDriver {
	return &MalgoDriver{}
}

// context lazily creates the miniaudio context. Must hold d.mu.
func (d *MalgoDriver) context() (*malgo.AllocatedContext, error) {

	if d.ctx != nil {
		return d.ctx, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
	}

	d.ctx = ctx
	return ctx, nil
}

func (d *MalgoDriver) Devices() ([]DeviceInfo, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, err := d.context()
	if err != nil {
		return nil, err
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerating playback devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		info := infos[i]
		devices = append(devices, DeviceInfo{
			Index:     i,
			ID:        info.ID.String(),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
			native:    info.ID,
		})
	}

	return devices, nil
}

func (d *MalgoDriver) Open(cfg DriverConfig, render RenderFunc) error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return nil
	}

	ctx, err := d.context()
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	if id, ok := cfg.Device.native.(malgo.DeviceID); ok {
		d.deviceID = id
		deviceConfig.Playback.DeviceID = d.deviceID.Pointer()
	}

	d.render = render
	d.channels = cfg.Channels
	d.buf = make([]float32, maxRenderFrames*cfg.Channels)

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onData,
	})
	if err != nil {
		return fmt.Errorf("initializing playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("starting playback device: %w", err)
	}

	d.device = device
	return nil
}

// onData runs on the miniaudio thread.
func (d *MalgoDriver) onData(pOutput, _ []byte, frameCount uint32) {

	ch := d.channels
	for off := 0; off < int(frameCount); off += maxRenderFrames {

		frames := min(maxRenderFrames, int(frameCount)-off)
		buf := d.buf[:frames*ch]
		d.render(buf, frames)

		out := pOutput[off*ch*4:]
		for i, s := range buf {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
		}
	}
}

// Close stops the device, which waits for an in flight callback, then frees the context.
func (d *MalgoDriver) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		if err := d.device.Stop(); err != nil {
			d.device.Uninit()
			d.device = nil
			return fmt.Errorf("stopping playback device: %w", err)
		}
		d.device.Uninit()
		d.device = nil
	}

	if d.ctx != nil {
		err := d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
		if err != nil {
			return fmt.Errorf("releasing audio context: %w", err)
		}
	}

	return nil
}
