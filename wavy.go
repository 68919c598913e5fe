package wavy

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Pre-defined errors
var (
	ErrUnknownSoundType  = errors.New("unknown sound type. Sound file extension must be one of: .mp3, .wav, .ogg, .flac")
	ErrInvalidSoundData  = errors.New("invalid sound data")
	ErrNotInitialized    = errors.New("audio context is not initialized")
	ErrInvalidFormat     = errors.New("invalid output format")
	ErrNoDevices         = errors.New("no playback devices available")
	ErrDriverUnavailable = errors.New("audio driver unavailable")
	ErrClipFileNotFound  = errors.New("audio clip file not found")
	ErrEmptyClipData     = errors.New("audio clip data is empty")
	ErrClipDisposed      = errors.New("audio clip is disposed")
	ErrSettingsSize      = errors.New("audio settings file has the wrong size")
	ErrSettingsMagic     = errors.New("audio settings file has a bad magic number")
	ErrSettingsChecksum  = errors.New("audio settings file failed its checksum")
	ErrInvalidWhence     = errors.New("invalid whence value. Must be: io.SeekStart, io.SeekCurrent, or io.SeekEnd")
	ErrNegativeSeekPos   = errors.New("negative seeker position")
)

// Context owns the audio device, the mixer and every source, listener and clip created
// through it. Contexts are independent of each other.
//
// Apart from Render, which the driver calls from its real-time thread, Context and the
// objects registered with it are meant to be driven from one owning goroutine.
type Context struct {
	mu     sync.Mutex
	log    *slog.Logger
	driver Driver
	m      atomic.Pointer[mixer]

	sampleRate int
	channels   int

	sources   []*AudioSource
	listeners []*AudioListener
	clips     []*AudioClip
	cache     map[uint64]*cacheEntry
}

type Option func(*Context)

func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDriver sets the device driver. The default is DefaultDriver().
func WithDriver(d Driver) Option {
	return func(c *Context) {
		c.driver = d
	}
}

func NewContext(opts ...Option) *Context {

	c := &Context{
		log:   slog.Default(),
		cache: map[uint64]*cacheEntry{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.driver == nil {
		c.driver = DefaultDriver()
	}

	return c
}

// Initialize opens the selected device and starts rendering. A nil selector picks the
// default device.
//
// Calling Initialize on an initialized context does nothing. On failure the error is
// logged and returned and the context stays uninitialized, in which state every other
// operation is a no-op.
func (c *Context) Initialize(sr SampleRate, chanCount SoundChannelCount, selector DeviceSelector) error {
	return c.initialize(DriverConfig{
		SampleRate: int(sr),
		Channels:   int(chanCount),
	}, selector)
}

// InitializeWithSettings initializes with the sample rate, buffer size and device of s.
func (c *Context) InitializeWithSettings(s Settings, chanCount SoundChannelCount) error {
	return c.initialize(DriverConfig{
		SampleRate:   int(s.SampleRate),
		Channels:     int(chanCount),
		PeriodFrames: int(s.BufferSize),
	}, SelectDeviceIndex(s.DeviceID))
}

func (c *Context) initialize(cfg DriverConfig, selector DeviceSelector) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.m.Load() != nil {
		return nil
	}

	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.Channels > maxChannels {
		err := fmt.Errorf("%w: %dHz with %d channels", ErrInvalidFormat, cfg.SampleRate, cfg.Channels)
		c.log.Error("audio context initialization failed", slog.Any("err", err))
		return err
	}

	devices, err := c.driver.Devices()
	if err == nil && len(devices) == 0 {
		err = ErrNoDevices
	}
	if err != nil {
		c.log.Error("audio context initialization failed", slog.Any("err", err))
		return err
	}
	cfg.Device = selectDevice(devices, selector)

	m := newMixer(cfg.SampleRate, cfg.Channels, c.log)
	c.m.Store(m)

	if err := c.driver.Open(cfg, c.Render); err != nil {
		c.m.Store(nil)
		m.shutdown()

		err = fmt.Errorf("opening audio device %q: %w", cfg.Device.Name, err)
		c.log.Error("audio context initialization failed", slog.Any("err", err))
		return err
	}

	c.sampleRate = cfg.SampleRate
	c.channels = cfg.Channels
	c.log.Info("audio context initialized",
		slog.Int("sampleRate", cfg.SampleRate),
		slog.Int("channels", cfg.Channels),
		slog.String("device", cfg.Device.Name),
	)

	return nil
}

// Deinitialize tears down every source in registration order, frees every cached clip,
// destroys every listener and then closes the device. Repeated calls are no-ops.
func (c *Context) Deinitialize() {

	c.mu.Lock()
	m := c.m.Load()
	if m == nil {
		c.mu.Unlock()
		return
	}

	sources, clips, listeners := c.sources, c.clips, c.listeners
	c.sources, c.clips, c.listeners = nil, nil, nil
	c.mu.Unlock()

	for _, s := range sources {
		s.destroy(false)
	}

	for _, clip := range clips {
		clip.dispose(false)
	}

	c.mu.Lock()
	for hash, e := range c.cache {
		m.freeBuffer(e.handle)
		delete(c.cache, hash)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l.destroy(false)
	}

	m.shutdown()
	if err := c.driver.Close(); err != nil {
		c.log.Warn("failed to close audio driver", slog.Any("err", err))
	}

	c.m.Store(nil)
	c.log.Info("audio context deinitialized")
}

func (c *Context) IsInitialized() bool {
	return c.m.Load() != nil
}

func (c *Context) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sampleRate
}

func (c *Context) Channels() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.channels
}

// Render is the render callback registered with the driver. It can also be called
// directly to pull audio without a device. out must hold frameCount*Channels() samples.
func (c *Context) Render(out []float32, frameCount int) {

	m := c.m.Load()
	if m == nil {
		clear(out)
		return
	}

	m.render(out, frameCount)
}

// NewFrame must be called once per tick of the owning loop. It raises pending source
// events and pushes listener and source transforms ahead of the next render callback.
func (c *Context) NewFrame() {

	c.mu.Lock()
	if c.m.Load() == nil {
		c.mu.Unlock()
		return
	}

	listeners := slices.Clone(c.listeners)
	sources := slices.Clone(c.sources)
	c.mu.Unlock()

	for _, l := range listeners {
		l.update()
	}

	for _, s := range sources {
		s.update()
	}
}

// Devices lists the playback devices of the driver. No devices is not an error.
func (c *Context) Devices() ([]DeviceInfo, error) {

	devices, err := c.driver.Devices()
	if err != nil {
		return nil, err
	}

	if devices == nil {
		devices = []DeviceInfo{}
	}
	return devices, nil
}

func (c *Context) MasterVolume() float32 {
	m := c.m.Load()
	if m == nil {
		return 0
	}
	return m.master.Load()
}

func (c *Context) SetMasterVolume(v float32) {
	if m := c.m.Load(); m != nil {
		m.master.Store(max(v, 0))
	}
}

// AddSource initializes s and registers it. Adding a registered source does nothing.
func (c *Context) AddSource(s *AudioSource) {

	if s == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.m.Load()
	if m == nil || slices.Contains(c.sources, s) {
		return
	}

	if s.attach(c, m) {
		c.sources = append(c.sources, s)
	}
}

// RemoveSource destroys s and unregisters it.
func (c *Context) RemoveSource(s *AudioSource) {

	c.mu.Lock()
	found := slices.Contains(c.sources, s)
	c.mu.Unlock()

	if !found {
		return
	}

	s.destroy(false)
	c.forgetSource(s)
}

func (c *Context) forgetSource(s *AudioSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.Index(c.sources, s); i >= 0 {
		c.sources = slices.Delete(c.sources, i, i+1)
	}
}

// Sources returns the registered sources in registration order.
func (c *Context) Sources() []*AudioSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.sources)
}

// AddListener initializes l and registers it. Adding a registered listener does nothing.
func (c *Context) AddListener(l *AudioListener) {

	if l == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.m.Load()
	if m == nil || slices.Contains(c.listeners, l) {
		return
	}

	if l.attach(c, m) {
		c.listeners = append(c.listeners, l)
	}
}

// RemoveListener destroys l and unregisters it.
func (c *Context) RemoveListener(l *AudioListener) {

	c.mu.Lock()
	found := slices.Contains(c.listeners, l)
	c.mu.Unlock()

	if !found {
		return
	}

	l.destroy(false)
	c.forgetListener(l)
}

func (c *Context) forgetListener(l *AudioListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.Index(c.listeners, l); i >= 0 {
		c.listeners = slices.Delete(c.listeners, i, i+1)
	}
}

func (c *Context) Listeners() []*AudioListener {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.listeners)
}

// AddClip registers a clip created by this context. Clips register themselves when
// created, so this only matters after RemoveClip.
func (c *Context) AddClip(clip *AudioClip) {

	if clip == nil || clip.ctx != c {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if clip.disposed || slices.Contains(c.clips, clip) {
		return
	}
	c.clips = append(c.clips, clip)
}

// RemoveClip disposes clip and unregisters it.
func (c *Context) RemoveClip(clip *AudioClip) {

	c.mu.Lock()
	found := slices.Contains(c.clips, clip)
	c.mu.Unlock()

	if !found {
		return
	}

	clip.Dispose()
}

func (c *Context) forgetClip(clip *AudioClip) {
	if i := slices.Index(c.clips, clip); i >= 0 {
		c.clips = slices.Delete(c.clips, i, i+1)
	}
}

func (c *Context) Clips() []*AudioClip {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.clips)
}
