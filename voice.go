package wavy

import (
	"sync/atomic"
)

const (
	// maxRenderFrames is the largest block the mixer renders in one pass.
	// Larger callbacks are split.
	maxRenderFrames = 4096
	maxChannels     = 8

	endQueueCapacity = 64

	defaultMinDistance = 1
	defaultMaxDistance = 1000
)

// playback is what a voice is currently reading from. A nil data and feeder means the
// voice only runs its generators.
type playback struct {
	data   *pcmData
	feeder *streamFeeder
}

func (p *playback) length() int64 {
	switch {
	case p == nil:
		return 0
	case p.data != nil:
		return p.data.frames()
	case p.feeder != nil:
		return max(p.feeder.frames, 0)
	default:
		return 0
	}
}

// voice is the backend side of an AudioSource. Fields written by the owning thread are
// atomics, everything without an atomic is owned by the render thread.
type voice struct {

	// state is generation<<1 | playingBit. Every Play/Stop bumps the generation so the
	// render thread can't stop a playback that started after it looked.
	state atomic.Uint64

	current atomic.Pointer[playback]
	seek    atomic.Int64
	cursor  atomic.Int64
	atEnd   atomic.Bool

	volume     atomicFloat32
	pitch      atomicFloat32
	loop       atomic.Bool
	spatial    atomic.Bool
	doppler    atomicFloat32
	minDist    atomicFloat32
	maxDist    atomicFloat32
	rolloff    atomicFloat32
	model      atomic.Int32
	position   atomicVec3
	direction  atomicVec3
	velocity   atomicVec3
	generators *stageList[Generator]
	effects    *stageList[Effect]

	ends      *spscQueue[struct{}]
	lostEnds  atomic.Int64
	readCount atomic.Int64
	procCount atomic.Int64

	// render thread only
	lastPlayback *playback
	pos          float64
	streamAcc    float64
	streamFrame  [maxChannels]float32
	consumed     int64
	scratch      []float32
}

func newVoice(generators *stageList[Generator], effects *stageList[Effect]) *voice {
	v := &voice{
		generators: generators,
		effects:    effects,
		ends:       newSPSCQueue[struct{}](endQueueCapacity),
	}

	v.seek.Store(-1)
	v.volume.Store(1)
	v.pitch.Store(1)
	v.doppler.Store(1)
	v.minDist.Store(defaultMinDistance)
	v.maxDist.Store(defaultMaxDistance)
	v.rolloff.Store(1)
	v.model.Store(int32(AttenuationModel_Inverse))
	v.direction.Store(vecForward)
	return v
}

func (v *voice) playing() bool {
	return v.state.Load()&1 == 1
}

func (v *voice) start() {
	for {
		s := v.state.Load()
		if v.state.CompareAndSwap(s, (s+2)|1) {
			return
		}
	}
}

func (v *voice) stop() {
	for {
		s := v.state.Load()
		if v.state.CompareAndSwap(s, (s+2)&^1) {
			return
		}
	}
}

func (v *voice) length() int64 {
	return v.current.Load().length()
}

// reset prepares the render side state for a new playback.
func (v *voice) reset(pb *playback) {
	v.lastPlayback = pb
	v.pos = 0
	v.streamAcc = 1
	v.consumed = 0
	clear(v.streamFrame[:])
}

// render mixes this voice into out. sp is nil unless the voice is spatialized.
func (v *voice) render(m *mixer, out []float32, frames int, sp *spatialParams) {

	state := v.state.Load()
	if state&1 == 0 {
		return
	}

	pb := v.current.Load()
	if pb == nil {
		return
	}

	if pb != v.lastPlayback {
		v.reset(pb)
	}

	if s := v.seek.Swap(-1); s >= 0 {
		v.pos = float64(s)
	}

	ch := m.channels
	buf := v.scratch[:frames*ch]
	clear(buf)

	step := float64(v.pitch.Load())
	gain := v.volume.Load()
	chanGain := [maxChannels]float32{1, 1, 1, 1, 1, 1, 1, 1}
	if sp != nil {
		gain *= sp.gain
		step *= sp.pitch
		if ch >= 2 {
			chanGain[0] = sp.left
			chanGain[1] = sp.right
		}
	}
	if step < 0 {
		step = 0
	}

	ended := false
	switch {
	case pb.data != nil:
		ended = v.readData(pb.data, buf, frames, ch, step*float64(pb.data.sampleRate)/float64(m.sampleRate))
	case pb.feeder != nil:
		ended = v.readStream(pb.feeder, buf, frames, ch, step)
	}

	if gens := v.generators.Load(); len(gens) > 0 {
		for _, g := range gens {
			g.Generate(buf, frames, ch)
		}
		v.readCount.Add(int64(frames))
	}

	if effs := v.effects.Load(); len(effs) > 0 {
		for _, e := range effs {
			e.Process(buf, frames, ch)
		}
		v.procCount.Add(int64(frames))
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			out[i*ch+c] += buf[i*ch+c] * gain * chanGain[c]
		}
	}

	if ended {
		v.finish(state)
	}
}

// finish stops the voice if it is still in the playback that ended and queues End for
// the owning thread. Ends that don't fit in the queue are counted instead.
func (v *voice) finish(state uint64) {
	if !v.state.CompareAndSwap(state, (state+2)&^1) {
		return
	}
	v.atEnd.Store(true)
	if !v.ends.Push(struct{}{}) {
		v.lostEnds.Add(1)
	}
}

// readData resamples decoded PCM into buf. Returns true when a non looping voice runs out.
func (v *voice) readData(d *pcmData, buf []float32, frames, ch int, step float64) bool {

	total := d.frames()
	loop := v.loop.Load()
	if total == 0 {
		return !loop
	}

	ended := false
	for i := 0; i < frames; i++ {

		if v.pos >= float64(total) {
			if !loop {
				ended = true
				break
			}
			for v.pos >= float64(total) {
				v.pos -= float64(total)
			}
		}

		idx := int64(v.pos)
		next := idx + 1
		if next >= total {
			next = idx
			if loop {
				next = 0
			}
		}

		frac := float32(v.pos - float64(idx))
		for c := 0; c < ch; c++ {
			a := sampleAt(d.samples, idx, d.channels, c, ch)
			b := sampleAt(d.samples, next, d.channels, c, ch)
			buf[i*ch+c] = a + (b-a)*frac
		}

		v.pos += step
	}

	v.cursor.Store(min(int64(v.pos), total))
	return ended
}

// readStream drains the feeder ring. Pitch is applied by holding or skipping frames.
func (v *voice) readStream(f *streamFeeder, buf []float32, frames, ch int, step float64) bool {

	sch := f.channels
	if sch > maxChannels {
		return true
	}

	for i := 0; i < frames; i++ {

		v.streamAcc += step
		for v.streamAcc >= 1 {
			if f.ring.Read(v.streamFrame[:sch]) < sch {
				if f.canEnd(v.loop.Load()) {
					f.released.Store(true)
					v.cursor.Store(v.consumed)
					return true
				}
				//Underrun, hold the last frame
				v.streamAcc = 1
				break
			}
			v.streamAcc--
			v.consumed++
		}

		for c := 0; c < ch; c++ {
			buf[i*ch+c] = sampleAt(v.streamFrame[:sch], 0, sch, c, ch)
		}
	}

	v.cursor.Store(v.consumed)
	return false
}

// sampleAt returns channel c of frame for an output with outCh channels, mapping the
// source layout of srcCh channels onto it.
func sampleAt(samples []float32, frame int64, srcCh, c, outCh int) float32 {

	base := frame * int64(srcCh)
	switch {
	case srcCh == outCh:
		return samples[base+int64(c)]
	case srcCh == 1:
		return samples[base]
	case outCh == 1:
		var sum float32
		for i := 0; i < srcCh; i++ {
			sum += samples[base+int64(i)]
		}
		return sum / float32(srcCh)
	default:
		return samples[base+int64(c%srcCh)]
	}
}
