package wavy

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

var _ Streamer = &OggStreamer{}

type OggStreamer struct {
	Dec *oggvorbis.Reader

	closer io.Closer
}

func NewOggStreamer(r io.ReadSeeker, closer io.Closer) (*OggStreamer, error) {

	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSoundData, err)
	}

	return &OggStreamer{
		Dec:    dec,
		closer: closer,
	}, nil
}

func (s *OggStreamer) SampleRate() int { return s.Dec.SampleRate() }
func (s *OggStreamer) Channels() int   { return s.Dec.Channels() }

// Frames is the length in samples per channel, which ogg reports directly.
func (s *OggStreamer) Frames() int64 {
	if l := s.Dec.Length(); l > 0 {
		return l
	}
	return -1
}

func (s *OggStreamer) Read(dst []float32) (int, error) {
	ch := s.Dec.Channels()
	return s.Dec.Read(dst[:len(dst)-len(dst)%ch])
}

func (s *OggStreamer) Rewind() error {
	return s.Dec.SetPosition(0)
}

func (s *OggStreamer) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
