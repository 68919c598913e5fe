package wavy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// streamRingFrames is how much decoded audio a streaming voice keeps ahead of the render thread
	streamRingFrames = 1 << 15
	streamReadFrames = 4096
	feederIdleWait   = 2 * time.Millisecond
)

// streamFeeder decodes a Streamer on its own goroutine into a ring the render thread
// drains, so file I/O never happens inside the render callback.
type streamFeeder struct {
	stream   Streamer
	ring     *sampleRing
	channels int
	frames   int64

	loop *atomic.Bool
	done atomic.Bool

	// drained is set once a non looping stream's tail has been consumed, released once
	// the render thread reported the end.
	drained  atomic.Bool
	released atomic.Bool

	cancel context.CancelFunc
	g      errgroup.Group
	log    *slog.Logger
}

// startFeeder begins decoding st resampled to outRate. loop is read on every end of
// stream to decide whether to rewind.
func startFeeder(ctx context.Context, st Streamer, outRate int, loop *atomic.Bool, log *slog.Logger) *streamFeeder {

	ch := st.Channels()
	frames := st.Frames()
	if frames > 0 && st.SampleRate() != outRate {
		frames = frames * int64(outRate) / int64(st.SampleRate())
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &streamFeeder{
		stream:   st,
		ring:     newSampleRing(streamRingFrames*ch, ch),
		channels: ch,
		frames:   frames,
		loop:     loop,
		cancel:   cancel,
		log:      log,
	}

	rs := newLinearResampler(st.SampleRate(), outRate, ch)
	f.g.Go(func() error {
		err := f.run(ctx, rs)
		if err != nil {
			f.log.Error("streamed clip stopped early", slog.Any("err", err))
		}
		return err
	})
	return f
}

// run feeds the ring until the stream ends or ctx is cancelled. Whatever was decoded
// before a failure is still flushed.
func (f *streamFeeder) run(ctx context.Context, rs *linearResampler) error {

	defer f.done.Store(true)

	in := make([]float32, streamReadFrames*f.channels)
	var out []float32
	var pending []float32
	produced := false

	for {
		if ctx.Err() != nil {
			return nil
		}

		if len(pending) > 0 {
			w := f.ring.Write(pending)
			pending = pending[w:]
			if len(pending) > 0 {
				if !sleepCtx(ctx, feederIdleWait) {
					return nil
				}
				continue
			}
		}

		n, err := f.stream.Read(in)
		if n > 0 {
			out = rs.resample(out[:0], in[:n])
			pending = out
			produced = true
		}

		if err == io.EOF || (err == nil && n == 0) {
			if !f.loop.Load() {
				f.flush(ctx, pending)
				pending = nil
				if !f.awaitDrain(ctx) {
					return nil
				}
			} else if !produced {
				// Nothing decodes, so don't spin on Rewind
				if !sleepCtx(ctx, feederIdleWait) {
					return nil
				}
			}

			if err := f.stream.Rewind(); err != nil {
				f.flush(ctx, pending)
				return fmt.Errorf("rewinding streamed clip: %w", err)
			}
			produced = false
			continue
		}

		if err != nil {
			f.flush(ctx, pending)
			return fmt.Errorf("decoding streamed clip: %w", err)
		}
	}
}

// flush writes what is left before the feeder reports done.
func (f *streamFeeder) flush(ctx context.Context, pending []float32) {
	for len(pending) > 0 {
		pending = pending[f.ring.Write(pending):]
		if len(pending) > 0 && !sleepCtx(ctx, feederIdleWait) {
			return
		}
	}
}

// awaitDrain keeps a finished stream open until the render thread consumes its tail, since
// looping may be turned on meanwhile. Returns true if the stream should rewind.
func (f *streamFeeder) awaitDrain(ctx context.Context) bool {
	for {
		if f.released.Load() {
			return false
		}
		if f.loop.Load() {
			f.drained.Store(false)
			return true
		}
		if f.ring.Len() == 0 {
			f.drained.Store(true)
		}
		if !sleepCtx(ctx, feederIdleWait) {
			return false
		}
	}
}

// finished reports whether every decoded sample has been consumed.
func (f *streamFeeder) finished() bool {
	return (f.done.Load() || f.drained.Load()) && f.ring.Len() == 0
}

// canEnd reports whether the render thread may end the playback. While the goroutine is
// alive a looping voice waits for it to rewind instead.
func (f *streamFeeder) canEnd(loop bool) bool {
	if !f.finished() {
		return false
	}
	return !loop || f.done.Load()
}

// close stops the goroutine and releases the stream. Safe to call more than once.
func (f *streamFeeder) close() {
	f.cancel()

	// Failures were already logged by the goroutine
	_ = f.g.Wait()

	if f.stream != nil {
		if err := f.stream.Close(); err != nil {
			f.log.Warn("failed to close streamed clip", slog.Any("err", err))
		}
		f.stream = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// linearResampler converts interleaved audio between sample rates across chunk boundaries.
type linearResampler struct {
	ratio    float64 // input frames per output frame
	channels int
	pos      float64 // read position, where 0 is prev
	prev     []float32
	primed   bool
}

func newLinearResampler(inRate, outRate, channels int) *linearResampler {
	return &linearResampler{
		ratio:    float64(inRate) / float64(outRate),
		channels: channels,
		prev:     make([]float32, channels),
	}
}

// resample appends the output frames produced by in to dst.
func (r *linearResampler) resample(dst, in []float32) []float32 {

	if r.ratio == 1 {
		return append(dst, in...)
	}

	ch := r.channels
	n := len(in) / ch
	if n == 0 {
		return dst
	}

	if !r.primed {
		copy(r.prev, in[:ch])
		in = in[ch:]
		n--
		r.primed = true
	}

	//Frame 0 is prev, frame i>0 is in[i-1]
	at := func(i, c int) float32 {
		if i == 0 {
			return r.prev[c]
		}
		return in[(i-1)*ch+c]
	}

	for r.pos < float64(n) {
		i := int(r.pos)
		frac := float32(r.pos - float64(i))
		for c := 0; c < ch; c++ {
			a := at(i, c)
			dst = append(dst, a+(at(i+1, c)-a)*frac)
		}
		r.pos += r.ratio
	}

	r.pos -= float64(n)
	if n > 0 {
		copy(r.prev, in[(n-1)*ch:n*ch])
	}

	return dst
}
