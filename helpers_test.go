package wavy_test

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/bloeys/wavy/v2"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const (
	sampleRate = 44100
	channelNum = 2
)

// SineWave fills 16-bit interleaved samples, based on the Oto example
type SineWave struct {
	freq       float64
	sampleRate int
	channels   int
	pos        int64
}

func (s *SineWave) Read(buf []int) int {

	length := float64(s.sampleRate) / s.freq
	frames := len(buf) / s.channels
	for i := 0; i < frames; i++ {
		const max = 32767
		b := int(math.Sin(2*math.Pi*float64(s.pos)/length) * 0.3 * max)
		for ch := 0; ch < s.channels; ch++ {
			buf[i*s.channels+ch] = b
		}
		s.pos++
	}

	return frames * s.channels
}

func NewSineWave(freq float64, sampleRate, channels int) *SineWave {
	return &SineWave{
		freq:       freq,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// writeWavFile writes a 16-bit PCM sine of the given length to path.
func writeWavFile(t *testing.T, path string, sr, channels int, frames int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sr},
		SourceBitDepth: 16,
		Data:           make([]int, frames*channels),
	}
	NewSineWave(440, sr, channels).Read(buf.Data)

	enc := wav.NewEncoder(f, sr, 16, channels, 1)
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

// wavBytes returns the bytes of a 16-bit PCM wav file.
func wavBytes(t *testing.T, sr, channels int, frames int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWavFile(t, path, sr, channels, frames)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestContext returns a context initialized at 44100Hz stereo on a ManualDriver.
func newTestContext(t *testing.T) (*wavy.Context, *wavy.ManualDriver) {
	t.Helper()

	drv := wavy.NewManualDriver()
	ctx := wavy.NewContext(wavy.WithDriver(drv), wavy.WithLogger(quietLogger()))
	require.NoError(t, ctx.Initialize(wavy.SampleRate_44100, wavy.SoundChannelCount_2, nil))
	t.Cleanup(ctx.Deinitialize)

	return ctx, drv
}

// pump renders frames in blocks of at most 1024 frames.
func pump(drv *wavy.ManualDriver, frames int) {
	for frames > 0 {
		n := min(frames, 1024)
		drv.Pump(n)
		frames -= n
	}
}

// countEnds hooks OnEnd of s and returns a pointer to the count.
func countEnds(s *wavy.AudioSource) *int {
	n := new(int)
	s.OnEnd = func() { *n++ }
	return n
}

// constGenerator adds v to every sample.
func constGenerator(v float32) wavy.Generator {
	return wavy.NewGeneratorFunc(func(buf []float32, frameCount, channels int) {
		for i := range buf[:frameCount*channels] {
			buf[i] += v
		}
	})
}
