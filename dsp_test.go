package wavy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ones(n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = 1
	}
	return buf
}

func TestFadeInRamp(t *testing.T) {

	f := NewFadeInFrames(4)
	assert.False(t, f.Done())

	buf := ones(8)
	f.Process(buf, 8, 1)

	want := []float32{0, 0.578125, 0.875, 0.984375, 1, 1, 1, 1}
	assert.InDeltaSlice(t, want, buf, 1e-6)
	assert.True(t, f.Done())

	// Past the ramp the buffer is untouched
	buf = ones(4)
	f.Process(buf, 4, 1)
	assert.Equal(t, ones(4), buf)

	f.Reset()
	assert.False(t, f.Done())
	buf = ones(4)
	f.Process(buf, 2, 2)
	assert.InDeltaSlice(t, []float32{0, 0, 0.578125, 0.578125}, buf, 1e-6)
}

func TestFadeInDuration(t *testing.T) {
	f := NewFadeIn(500*time.Millisecond, 44100)
	assert.EqualValues(t, 22050, f.totalFrames)
}

func TestLFOBounds(t *testing.T) {

	l := NewLFO(Waveform_Sine, 5, 1000)
	buf := ones(2000)
	l.Process(buf, 1000, 2)

	var peak float32
	for i, v := range buf {
		assert.GreaterOrEqual(t, v, float32(0), "sample %d", i)
		assert.LessOrEqual(t, v, float32(1), "sample %d", i)
		peak = max(peak, v)
	}

	assert.Zero(t, buf[0])
	assert.Equal(t, buf[0], buf[1], "channels of a frame get the same gain")
	assert.InDelta(t, 1, peak, 0.01)

	l.SetFrequency(2)
	assert.Equal(t, float32(2), l.Frequency())
}

func TestWavetable(t *testing.T) {

	w := NewWavetable(Waveform_Sine, 4)

	// One table step per sample
	got := []float32{w.Sample(250, 1000), w.Sample(250, 1000), w.Sample(250, 1000), w.Sample(250, 1000)}
	assert.InDeltaSlice(t, []float32{0, 1, 0, -1}, got, 1e-6)

	// Half a step interpolates
	w.Reset()
	w.Sample(125, 1000)
	assert.InDelta(t, 0.5, w.Sample(125, 1000), 1e-6)

	sq := NewWavetableFromSamples([]float32{1, -1})
	assert.Equal(t, float32(1), sq.Sample(500, 1000))
	assert.Equal(t, float32(-1), sq.Sample(500, 1000))

	assert.Zero(t, NewWavetableFromSamples(nil).Sample(100, 1000))
}

func TestOscillatorAdds(t *testing.T) {

	o := NewOscillator(Waveform_Square, 100, 0.5, 1000)
	buf := ones(4)
	o.Generate(buf, 2, 2)

	// A square starts high
	assert.InDeltaSlice(t, []float32{1.5, 1.5, 1.5, 1.5}, buf, 1e-6)
}

func TestNoiseGenerator(t *testing.T) {

	a := NewNoiseGenerator(0.5, 42)
	b := NewNoiseGenerator(0.5, 42)

	bufA := make([]float32, 256)
	bufB := make([]float32, 256)
	a.Generate(bufA, 128, 2)
	b.Generate(bufB, 128, 2)

	assert.Equal(t, bufA, bufB, "same seed gives the same noise")
	for _, v := range bufA {
		assert.LessOrEqual(t, v, float32(0.5))
		assert.GreaterOrEqual(t, v, float32(-0.5))
	}
}
