package wavy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// mixer is the software backend: it owns voices, listeners and clip memory and turns
// them into one interleaved float32 stream on every render callback.
type mixer struct {
	sampleRate int
	channels   int

	guard     renderGuard
	live      atomic.Bool
	master    atomicFloat32
	voices    stageList[*voice]
	listeners stageList[*listenerState]

	bufMu      sync.Mutex
	buffers    map[BufferHandle]*soundBuffer
	nextHandle BufferHandle

	// feeders for streamed clips are children of ctx
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func newMixer(sampleRate, channels int, log *slog.Logger) *mixer {

	ctx, cancel := context.WithCancel(context.Background())
	m := &mixer{
		sampleRate: sampleRate,
		channels:   channels,
		buffers:    map[BufferHandle]*soundBuffer{},
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}

	m.master.Store(1)
	m.live.Store(true)
	return m
}

// render fills out with frameCount frames. It never blocks or allocates.
func (m *mixer) render(out []float32, frameCount int) {

	m.guard.enter()
	defer m.guard.exit()

	n := frameCount * m.channels
	clear(out[:n])
	if !m.live.Load() {
		return
	}

	for off := 0; off < frameCount; off += maxRenderFrames {
		frames := min(maxRenderFrames, frameCount-off)
		m.renderBlock(out[off*m.channels:(off+frames)*m.channels], frames)
	}

	master := m.master.Load()
	for i := range out[:n] {
		s := out[i] * master
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = s
	}
}

func (m *mixer) renderBlock(out []float32, frames int) {

	var lst *listenerState
	for _, l := range m.listeners.Load() {
		if l.enabled.Load() {
			lst = l
			break
		}
	}

	for _, v := range m.voices.Load() {
		if lst != nil && v.spatial.Load() {
			sp := spatialize(v, lst)
			v.render(m, out, frames, &sp)
			continue
		}
		v.render(m, out, frames, nil)
	}
}

func (m *mixer) addVoice(v *voice) {
	if v.scratch == nil {
		v.scratch = make([]float32, maxRenderFrames*m.channels)
	}
	m.voices.Add(v)
}

// removeVoice unregisters v and returns once the render thread can no longer touch it.
func (m *mixer) removeVoice(v *voice) {
	m.voices.Remove(v)
	m.guard.synchronize()
}

func (m *mixer) addListener(l *listenerState) {
	m.listeners.Add(l)
}

func (m *mixer) removeListener(l *listenerState) {
	m.listeners.Remove(l)
	m.guard.synchronize()
}

// synchronize waits out any render callback in flight.
func (m *mixer) synchronize() {
	m.guard.synchronize()
}

// allocBuffer copies data into backend memory and returns its handle.
func (m *mixer) allocBuffer(data []byte) BufferHandle {

	m.bufMu.Lock()
	defer m.bufMu.Unlock()

	m.nextHandle++
	sb := &soundBuffer{
		handle: m.nextHandle,
		data:   make([]byte, len(data)),
		typ:    sniffSoundType(data),
	}
	copy(sb.data, data)

	m.buffers[sb.handle] = sb
	return sb.handle
}

func (m *mixer) buffer(h BufferHandle) (*soundBuffer, bool) {
	m.bufMu.Lock()
	defer m.bufMu.Unlock()

	sb, ok := m.buffers[h]
	return sb, ok
}

func (m *mixer) freeBuffer(h BufferHandle) {
	m.bufMu.Lock()
	defer m.bufMu.Unlock()

	delete(m.buffers, h)
}

func (m *mixer) bufferCount() int {
	m.bufMu.Lock()
	defer m.bufMu.Unlock()

	return len(m.buffers)
}

// shutdown stops rendering and cancels every feeder. The render callback outputs
// silence from here on.
func (m *mixer) shutdown() {
	m.live.Store(false)
	m.guard.synchronize()
	m.cancel()
}
