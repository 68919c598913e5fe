package wavy

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

var _ Streamer = &MP3Streamer{}

// MP3Streamer decodes mp3, which go-mp3 always outputs as 16-bit little-endian stereo.
type MP3Streamer struct {
	Dec *mp3.Decoder

	closer io.Closer
	raw    []byte
}

const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

func NewMP3Streamer(r io.ReadSeeker, closer io.Closer) (*MP3Streamer, error) {

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSoundData, err)
	}

	return &MP3Streamer{
		Dec:    dec,
		closer: closer,
	}, nil
}

func (ms *MP3Streamer) SampleRate() int { return ms.Dec.SampleRate() }
func (ms *MP3Streamer) Channels() int   { return mp3Channels }

func (ms *MP3Streamer) Frames() int64 {
	if l := ms.Dec.Length(); l > 0 {
		return l / mp3BytesPerFrame
	}
	return -1
}

func (ms *MP3Streamer) Read(dst []float32) (int, error) {

	samples := len(dst) - len(dst)%mp3Channels
	if samples == 0 {
		return 0, nil
	}

	need := samples * 2
	if cap(ms.raw) < need {
		ms.raw = make([]byte, need)
	}
	raw := ms.raw[:need]

	n, err := io.ReadFull(ms.Dec, raw)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, err
	}

	n -= n % mp3BytesPerFrame
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n/2; i++ {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}

	return n / 2, nil
}

func (ms *MP3Streamer) Rewind() error {
	_, err := ms.Dec.Seek(0, io.SeekStart)
	return err
}

func (ms *MP3Streamer) Close() error {
	if ms.closer == nil {
		return nil
	}
	return ms.closer.Close()
}
