package wavy

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

var _ Streamer = &FLACStreamer{}

type FLACStreamer struct {
	Stream *flac.Stream

	r      io.ReadSeeker
	closer io.Closer

	// pending holds the interleaved samples of the last parsed frame not yet returned
	pending    []int32
	pendingPos int
	scale      float32
}

func NewFLACStreamer(r io.ReadSeeker, closer io.Closer) (*FLACStreamer, error) {

	fs := &FLACStreamer{
		r:      r,
		closer: closer,
	}

	if err := fs.open(); err != nil {
		return nil, err
	}

	return fs, nil
}

func (fs *FLACStreamer) open() error {

	stream, err := flac.New(fs.r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSoundData, err)
	}

	if stream.Info.NChannels == 0 || stream.Info.BitsPerSample == 0 {
		return fmt.Errorf("%w: flac stream info has no format", ErrInvalidSoundData)
	}

	fs.Stream = stream
	fs.pending = fs.pending[:0]
	fs.pendingPos = 0
	fs.scale = 1 / float32(int64(1)<<(stream.Info.BitsPerSample-1))
	return nil
}

func (fs *FLACStreamer) SampleRate() int { return int(fs.Stream.Info.SampleRate) }
func (fs *FLACStreamer) Channels() int   { return int(fs.Stream.Info.NChannels) }

func (fs *FLACStreamer) Frames() int64 {
	if n := fs.Stream.Info.NSamples; n > 0 {
		return int64(n)
	}
	return -1
}

func (fs *FLACStreamer) Read(dst []float32) (int, error) {

	ch := fs.Channels()
	want := len(dst) - len(dst)%ch

	written := 0
	for written < want {

		if fs.pendingPos >= len(fs.pending) {
			if err := fs.parseNext(); err != nil {
				if err == io.EOF && written > 0 {
					return written, nil
				}
				return written, err
			}
			continue
		}

		n := min(want-written, len(fs.pending)-fs.pendingPos)
		for i := 0; i < n; i++ {
			dst[written+i] = float32(fs.pending[fs.pendingPos+i]) * fs.scale
		}
		written += n
		fs.pendingPos += n
	}

	return written, nil
}

// parseNext decodes one flac frame and interleaves its subframes into pending.
func (fs *FLACStreamer) parseNext() error {

	frame, err := fs.Stream.ParseNext()
	if err != nil {
		return err
	}

	ch := len(frame.Subframes)
	if ch == 0 {
		fs.pending = fs.pending[:0]
		fs.pendingPos = 0
		return nil
	}

	n := len(frame.Subframes[0].Samples)
	fs.pending = fs.pending[:0]
	for i := 0; i < n; i++ {
		for c := 0; c < ch; c++ {
			fs.pending = append(fs.pending, frame.Subframes[c].Samples[i])
		}
	}
	fs.pendingPos = 0

	return nil
}

func (fs *FLACStreamer) Rewind() error {

	if _, err := fs.r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return fs.open()
}

func (fs *FLACStreamer) Close() error {
	if fs.closer == nil {
		return nil
	}
	return fs.closer.Close()
}
