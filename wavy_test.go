package wavy_test

import (
	"testing"

	"github.com/bloeys/wavy/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLifecycle(t *testing.T) {

	drv := wavy.NewManualDriver()
	ctx := wavy.NewContext(wavy.WithDriver(drv), wavy.WithLogger(quietLogger()))
	assert.False(t, ctx.IsInitialized())

	out := []float32{1, 1, 1, 1}
	ctx.Render(out, 2)
	assert.Equal(t, []float32{0, 0, 0, 0}, out, "uninitialized context renders silence")

	require.NoError(t, ctx.Initialize(wavy.SampleRate_44100, wavy.SoundChannelCount_2, nil))
	require.NoError(t, ctx.Initialize(wavy.SampleRate_48000, wavy.SoundChannelCount_1, nil))

	assert.True(t, ctx.IsInitialized())
	assert.True(t, drv.IsOpen())
	assert.Equal(t, sampleRate, ctx.SampleRate(), "second Initialize must be a no-op")
	assert.Equal(t, channelNum, ctx.Channels())
	assert.Equal(t, sampleRate, drv.Config().SampleRate)
	assert.Len(t, drv.Pump(128), 128*channelNum)

	ctx.Deinitialize()
	ctx.Deinitialize()

	assert.False(t, ctx.IsInitialized())
	assert.False(t, drv.IsOpen())
	assert.Nil(t, drv.Pump(128))

	// Everything is a no-op again
	ctx.NewFrame()
	s := wavy.NewSource(nil)
	ctx.AddSource(s)
	assert.Equal(t, wavy.SourceState_Uninitialized, s.State())
	assert.Empty(t, ctx.Sources())

	_, err := ctx.NewClipFromMemory([]byte{1, 2, 3}, false)
	assert.ErrorIs(t, err, wavy.ErrNotInitialized)
}

func TestInitializeWithSettings(t *testing.T) {

	drv := wavy.NewManualDriver()
	drv.SetDevices([]wavy.DeviceInfo{
		{Index: 0, ID: "a", Name: "Speakers", IsDefault: true},
		{Index: 1, ID: "b", Name: "Headphones"},
	})

	ctx := wavy.NewContext(wavy.WithDriver(drv), wavy.WithLogger(quietLogger()))
	settings := wavy.DefaultSettings()
	settings.SampleRate = 48000
	settings.BufferSize = 256
	settings.DeviceID = 1

	require.NoError(t, ctx.InitializeWithSettings(settings, wavy.SoundChannelCount_2))
	defer ctx.Deinitialize()

	cfg := drv.Config()
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 256, cfg.PeriodFrames)
	assert.Equal(t, "Headphones", cfg.Device.Name)
}

func TestInitializeFallsBackToDefaultDevice(t *testing.T) {

	drv := wavy.NewManualDriver()
	drv.SetDevices([]wavy.DeviceInfo{
		{Index: 0, ID: "a", Name: "HDMI"},
		{Index: 1, ID: "b", Name: "Speakers", IsDefault: true},
	})

	ctx := wavy.NewContext(wavy.WithDriver(drv), wavy.WithLogger(quietLogger()))
	require.NoError(t, ctx.Initialize(wavy.SampleRate_44100, wavy.SoundChannelCount_2, wavy.SelectDeviceIndex(7)))
	defer ctx.Deinitialize()

	assert.Equal(t, "Speakers", drv.Config().Device.Name)
}

func TestInitializeWithoutDevices(t *testing.T) {

	drv := wavy.NewManualDriver()
	drv.SetDevices(nil)
	ctx := wavy.NewContext(wavy.WithDriver(drv), wavy.WithLogger(quietLogger()))

	devices, err := ctx.Devices()
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)

	err = ctx.Initialize(wavy.SampleRate_44100, wavy.SoundChannelCount_2, nil)
	assert.ErrorIs(t, err, wavy.ErrNoDevices)
	assert.False(t, ctx.IsInitialized())
	assert.False(t, drv.IsOpen())
}

func TestInitializeInvalidFormat(t *testing.T) {

	ctx := wavy.NewContext(wavy.WithDriver(wavy.NewManualDriver()), wavy.WithLogger(quietLogger()))

	err := ctx.Initialize(wavy.SampleRate_44100, wavy.SoundChannelCount(9), nil)
	assert.ErrorIs(t, err, wavy.ErrInvalidFormat)

	err = ctx.Initialize(0, wavy.SoundChannelCount_2, nil)
	assert.ErrorIs(t, err, wavy.ErrInvalidFormat)
	assert.False(t, ctx.IsInitialized())
}

func TestContextsAreIndependent(t *testing.T) {

	ctxA, drvA := newTestContext(t)
	_, drvB := newTestContext(t)

	s := wavy.NewSource(nil)
	ctxA.AddSource(s)
	s.AddGenerator(constGenerator(0.5))
	s.Play()

	outA := drvA.Pump(16)
	assert.InDelta(t, 0.5, outA[0], 1e-6)

	outB := drvB.Pump(16)
	for _, v := range outB {
		assert.Zero(t, v)
	}
}

func TestMasterVolume(t *testing.T) {

	ctx, drv := newTestContext(t)
	assert.Equal(t, float32(1), ctx.MasterVolume())

	s := wavy.NewSource(nil)
	ctx.AddSource(s)
	s.AddGenerator(constGenerator(0.5))
	s.Play()

	ctx.SetMasterVolume(0.5)
	out := drv.Pump(8)
	assert.InDelta(t, 0.25, out[0], 1e-6)

	// Mixed output is clamped
	ctx.SetMasterVolume(4)
	out = drv.Pump(8)
	assert.Equal(t, float32(1), out[0])
}

func TestRegistries(t *testing.T) {

	ctx, _ := newTestContext(t)

	s := wavy.NewSource(nil)
	ctx.AddSource(s)
	ctx.AddSource(s)
	assert.Len(t, ctx.Sources(), 1)

	l := wavy.NewListener(nil)
	ctx.AddListener(l)
	ctx.AddListener(l)
	assert.Len(t, ctx.Listeners(), 1)
	assert.True(t, l.IsInitialized())

	ctx.RemoveSource(s)
	assert.Empty(t, ctx.Sources())
	assert.Equal(t, wavy.SourceState_Destroyed, s.State())

	// A destroyed source can't come back
	ctx.AddSource(s)
	assert.Empty(t, ctx.Sources())

	l.Destroy()
	assert.Empty(t, ctx.Listeners())
	assert.False(t, l.IsInitialized())
}

func TestDeinitializeDestroysEverything(t *testing.T) {

	ctx, _ := newTestContext(t)

	eff := &countingEffect{}
	gen := &countingGenerator{}
	s := wavy.NewSource(nil)
	ctx.AddSource(s)
	s.AddEffect(eff)
	s.AddGenerator(gen)
	s.Play()

	clip, err := ctx.NewClipFromMemory(wavBytes(t, sampleRate, 1, 100), false)
	require.NoError(t, err)
	l := wavy.NewListener(nil)
	ctx.AddListener(l)

	ctx.Deinitialize()

	assert.Equal(t, wavy.SourceState_Destroyed, s.State())
	assert.EqualValues(t, 1, eff.destroys.Load())
	assert.EqualValues(t, 1, gen.destroys.Load())
	assert.True(t, clip.IsDisposed())
	assert.False(t, l.IsInitialized())
	assert.Zero(t, ctx.BackendBufferCount())
	assert.Empty(t, ctx.Sources())
	assert.Empty(t, ctx.Clips())
	assert.Empty(t, ctx.Listeners())
}
