//go:build !headless

package wavy

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

// oto only allows one context per process, so every OtoDriver shares it.
// Those values are set by the first Open.
var (
	otoMu         sync.Mutex
	otoCtx        *oto.Context
	otoSampleRate int
	otoChanCount  int
)

const otoBitDepthInBytes = 2

func sharedOtoContext(sampleRate, chanCount int) (*oto.Context, error) {

	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoSampleRate != sampleRate || otoChanCount != chanCount {
			return nil, fmt.Errorf("%w: oto context already running at %dHz/%dch", ErrDriverUnavailable, otoSampleRate, otoChanCount)
		}
		return otoCtx, nil
	}

	ctx, readyChan, err := oto.NewContext(sampleRate, chanCount, otoBitDepthInBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
	}
	<-readyChan

	otoCtx = ctx
	otoSampleRate = sampleRate
	otoChanCount = chanCount
	return ctx, nil
}

var _ Driver = &OtoDriver{}

// OtoDriver plays through oto. oto pulls from a reader, and each Read is one render callback.
type OtoDriver struct {
	mu     sync.Mutex
	player oto.Player
}

func NewOtoDriver() *OtoDriver {
	return &OtoDriver{}
}

// Devices reports the system default output, the only device oto can open.
func (d *OtoDriver) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{Index: 0, ID: "default", Name: "System default", IsDefault: true}}, nil
}

func (d *OtoDriver) Open(cfg DriverConfig, render RenderFunc) error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil {
		return nil
	}

	ctx, err := sharedOtoContext(cfg.SampleRate, cfg.Channels)
	if err != nil {
		return err
	}

	r := &otoReader{
		render:   render,
		channels: cfg.Channels,
		buf:      make([]float32, maxRenderFrames*cfg.Channels),
	}

	d.player = ctx.NewPlayer(r)
	if bs, ok := d.player.(interface{ SetBufferSize(int) }); ok && cfg.PeriodFrames > 0 {
		bs.SetBufferSize(cfg.PeriodFrames * cfg.Channels * otoBitDepthInBytes)
	}
	d.player.Play()

	return nil
}

func (d *OtoDriver) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return nil
	}

	err := d.player.Close()
	d.player = nil
	return err
}

var _ io.Reader = &otoReader{}

// otoReader converts rendered float frames to signed 16-bit little-endian.
type otoReader struct {
	render   RenderFunc
	channels int
	buf      []float32
}

func (r *otoReader) Read(p []byte) (int, error) {

	frameBytes := r.channels * otoBitDepthInBytes
	frames := min(len(p)/frameBytes, maxRenderFrames)
	if frames == 0 {
		return 0, nil
	}

	buf := r.buf[:frames*r.channels]
	r.render(buf, frames)

	for i, s := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(float32ToInt16(s)))
	}

	return frames * frameBytes, nil
}

func float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(x * 32767)
}
