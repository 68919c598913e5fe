package wavy

import (
	"math"
	"sync/atomic"
	"time"
)

// Generator synthesizes samples into an interleaved buffer of frameCount*channels samples.
// Implementations must add to buf rather than overwrite it so generators compose.
//
// Generate runs on the render thread and must not block or allocate.
type Generator interface {
	Generate(buf []float32, frameCount, channels int)
	// OnDestroy releases resources once the generator is detached from its source.
	OnDestroy()
}

// Effect transforms an interleaved buffer in place.
//
// Process runs on the render thread and must not block or allocate.
type Effect interface {
	Process(buf []float32, frameCount, channels int)
	// OnDestroy releases resources once the effect is detached from its source.
	OnDestroy()
}

type generatorFunc struct {
	fn func(buf []float32, frameCount, channels int)
}

func (g *generatorFunc) Generate(buf []float32, frameCount, channels int) {
	g.fn(buf, frameCount, channels)
}

func (g *generatorFunc) OnDestroy() {}

// NewGeneratorFunc wraps fn as a Generator with no resources to release.
func NewGeneratorFunc(fn func(buf []float32, frameCount, channels int)) Generator {
	return &generatorFunc{fn: fn}
}

type effectFunc struct {
	fn func(buf []float32, frameCount, channels int)
}

func (e *effectFunc) Process(buf []float32, frameCount, channels int) {
	e.fn(buf, frameCount, channels)
}

func (e *effectFunc) OnDestroy() {}

// NewEffectFunc wraps fn as an Effect with no resources to release.
func NewEffectFunc(fn func(buf []float32, frameCount, channels int)) Effect {
	return &effectFunc{fn: fn}
}

type Waveform int

const (
	Waveform_Sine Waveform = iota
	Waveform_Square
	Waveform_Saw
	Waveform_Triangle
)

const defaultWavetableSize = 1024

// Wavetable is a single cycle of a waveform read back at arbitrary frequencies.
// It keeps its own phase, so one table must only feed one stage.
type Wavetable struct {
	table []float32
	phase float64
}

func NewWavetable(w Waveform, size int) *Wavetable {

	if size < 2 {
		size = defaultWavetableSize
	}

	table := make([]float32, size)
	for i := range table {
		t := float64(i) / float64(size)
		var v float64
		switch w {
		case Waveform_Square:
			v = 1
			if t >= 0.5 {
				v = -1
			}
		case Waveform_Saw:
			v = 2*t - 1
		case Waveform_Triangle:
			v = 1 - 4*math.Abs(t-0.5)
		default:
			v = math.Sin(2 * math.Pi * t)
		}
		table[i] = float32(v)
	}

	return &Wavetable{table: table}
}

// NewWavetableFromSamples uses a copy of samples as one cycle.
func NewWavetableFromSamples(samples []float32) *Wavetable {
	table := make([]float32, len(samples))
	copy(table, samples)
	return &Wavetable{table: table}
}

// Sample returns the interpolated value at the current phase and advances it by one
// sample period of frequency at sampleRate.
func (w *Wavetable) Sample(frequency float32, sampleRate int) float32 {

	n := len(w.table)
	if n == 0 || sampleRate <= 0 {
		return 0
	}

	i := int(w.phase)
	frac := float32(w.phase - float64(i))
	a := w.table[i%n]
	b := w.table[(i+1)%n]

	w.phase += float64(frequency) * float64(n) / float64(sampleRate)
	w.phase = math.Mod(w.phase, float64(n))
	if w.phase < 0 {
		w.phase += float64(n)
	}

	return a + (b-a)*frac
}

// Reset moves the phase back to the start of the cycle.
func (w *Wavetable) Reset() {
	w.phase = 0
}

var _ Effect = &FadeIn{}

// FadeIn ramps gain from 0 to 1 with a cubic ease-out curve over a fixed number of
// rendered frames.
type FadeIn struct {
	totalFrames int64
	elapsed     atomic.Int64
	reset       atomic.Bool
}

// NewFadeIn creates a fade lasting d at the given output sample rate.
func NewFadeIn(d time.Duration, sampleRate int) *FadeIn {
	return NewFadeInFrames(int64(d.Seconds() * float64(sampleRate)))
}

func NewFadeInFrames(frames int64) *FadeIn {
	return &FadeIn{totalFrames: max(frames, 0)}
}

// Reset replays the ramp from zero on the next rendered buffer.
func (f *FadeIn) Reset() {
	f.reset.Store(true)
}

// Done reports whether the full ramp has been rendered.
func (f *FadeIn) Done() bool {
	return f.elapsed.Load() >= f.totalFrames && !f.reset.Load()
}

func (f *FadeIn) Process(buf []float32, frameCount, channels int) {

	elapsed := f.elapsed.Load()
	if f.reset.Swap(false) {
		elapsed = 0
	}

	if elapsed >= f.totalFrames {
		f.elapsed.Store(elapsed)
		return
	}

	for i := 0; i < frameCount; i++ {
		g := float32(1)
		if elapsed < f.totalFrames {
			g = easeOutCubic(float32(elapsed) / float32(f.totalFrames))
			elapsed++
		}

		frame := buf[i*channels : (i+1)*channels]
		for c := range frame {
			frame[c] *= g
		}
	}

	f.elapsed.Store(elapsed)
}

func (f *FadeIn) OnDestroy() {}

func easeOutCubic(t float32) float32 {
	inv := 1 - t
	return 1 - inv*inv*inv
}

var _ Effect = &LFO{}

// LFO modulates amplitude by the absolute value of a wavetable oscillating at Frequency.
type LFO struct {
	table      *Wavetable
	frequency  atomicFloat32
	sampleRate int
}

func NewLFO(w Waveform, frequency float32, sampleRate int) *LFO {
	l := &LFO{
		table:      NewWavetable(w, defaultWavetableSize),
		sampleRate: sampleRate,
	}
	l.frequency.Store(frequency)
	return l
}

func (l *LFO) Frequency() float32 {
	return l.frequency.Load()
}

func (l *LFO) SetFrequency(hz float32) {
	l.frequency.Store(hz)
}

func (l *LFO) Process(buf []float32, frameCount, channels int) {

	freq := l.frequency.Load()
	for i := 0; i < frameCount; i++ {
		g := l.table.Sample(freq, l.sampleRate)
		if g < 0 {
			g = -g
		}

		frame := buf[i*channels : (i+1)*channels]
		for c := range frame {
			frame[c] *= g
		}
	}
}

func (l *LFO) OnDestroy() {}

var _ Generator = &Oscillator{}

// Oscillator adds a periodic tone to every channel.
type Oscillator struct {
	table      *Wavetable
	frequency  atomicFloat32
	amplitude  atomicFloat32
	sampleRate int
}

func NewOscillator(w Waveform, frequency, amplitude float32, sampleRate int) *Oscillator {
	o := &Oscillator{
		table:      NewWavetable(w, defaultWavetableSize),
		sampleRate: sampleRate,
	}
	o.frequency.Store(frequency)
	o.amplitude.Store(amplitude)
	return o
}

func (o *Oscillator) SetFrequency(hz float32) {
	o.frequency.Store(hz)
}

func (o *Oscillator) SetAmplitude(a float32) {
	o.amplitude.Store(a)
}

func (o *Oscillator) Generate(buf []float32, frameCount, channels int) {

	freq := o.frequency.Load()
	amp := o.amplitude.Load()
	for i := 0; i < frameCount; i++ {
		v := o.table.Sample(freq, o.sampleRate) * amp
		frame := buf[i*channels : (i+1)*channels]
		for c := range frame {
			frame[c] += v
		}
	}
}

func (o *Oscillator) OnDestroy() {}

var _ Generator = &NoiseGenerator{}

// NoiseGenerator adds white noise from a xorshift32 sequence.
type NoiseGenerator struct {
	state     uint32
	amplitude atomicFloat32
}

func NewNoiseGenerator(amplitude float32, seed uint32) *NoiseGenerator {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	n := &NoiseGenerator{state: seed}
	n.amplitude.Store(amplitude)
	return n
}

func (n *NoiseGenerator) Generate(buf []float32, frameCount, channels int) {

	amp := n.amplitude.Load()
	for i := 0; i < frameCount*channels; i++ {
		n.state ^= n.state << 13
		n.state ^= n.state >> 17
		n.state ^= n.state << 5
		buf[i] += (float32(n.state)/float32(math.MaxUint32)*2 - 1) * amp
	}
}

func (n *NoiseGenerator) OnDestroy() {}
