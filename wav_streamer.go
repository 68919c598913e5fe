package wavy

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var _ Streamer = &WavStreamer{}

type WavStreamer struct {
	Dec *wav.Decoder

	r      io.ReadSeeker
	closer io.Closer

	buf     *audio.IntBuffer
	scratch []int

	channels   int
	sampleRate int
	bitDepth   int
	frames     int64
}

func NewWavStreamer(r io.ReadSeeker, closer io.Closer) (*WavStreamer, error) {

	ws := &WavStreamer{
		r:      r,
		closer: closer,
	}

	if err := ws.open(); err != nil {
		return nil, err
	}

	return ws, nil
}

func (ws *WavStreamer) open() error {

	dec := wav.NewDecoder(ws.r)
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSoundData, err)
	}

	if dec.NumChans == 0 || dec.BitDepth == 0 || dec.SampleRate == 0 {
		return fmt.Errorf("%w: wav header has no format", ErrInvalidSoundData)
	}

	ws.Dec = dec
	ws.channels = int(dec.NumChans)
	ws.sampleRate = int(dec.SampleRate)
	ws.bitDepth = int(dec.BitDepth)
	ws.frames = dec.PCMLen() / int64(ws.channels*(ws.bitDepth/8))
	ws.buf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: ws.channels,
			SampleRate:  ws.sampleRate,
		},
		SourceBitDepth: ws.bitDepth,
	}

	return nil
}

func (ws *WavStreamer) SampleRate() int { return ws.sampleRate }
func (ws *WavStreamer) Channels() int   { return ws.channels }
func (ws *WavStreamer) Frames() int64   { return ws.frames }

func (ws *WavStreamer) Read(dst []float32) (int, error) {

	n := len(dst) - len(dst)%ws.channels
	if n == 0 {
		return 0, nil
	}

	if cap(ws.scratch) < n {
		ws.scratch = make([]int, n)
	}
	ws.buf.Data = ws.scratch[:n]

	got, err := ws.Dec.PCMBuffer(ws.buf)
	if err != nil && err != io.EOF {
		return 0, err
	}
	if got == 0 {
		return 0, io.EOF
	}

	got -= got % ws.channels
	if ws.bitDepth == 8 {
		//8-bit wav is unsigned
		for i := 0; i < got; i++ {
			dst[i] = float32(ws.buf.Data[i]-128) / 128
		}
		return got, nil
	}

	scale := 1 / float32(int64(1)<<(ws.bitDepth-1))
	for i := 0; i < got; i++ {
		dst[i] = float32(ws.buf.Data[i]) * scale
	}

	return got, nil
}

// Rewind re-parses the headers from the start since the underlying parser can not seek back.
func (ws *WavStreamer) Rewind() error {

	if _, err := ws.r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return ws.open()
}

func (ws *WavStreamer) Close() error {
	if ws.closer == nil {
		return nil
	}
	return ws.closer.Close()
}
