package wavy

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Streamer decodes an encoded clip into interleaved float32 samples in [-1, 1].
type Streamer interface {
	SampleRate() int
	Channels() int

	// Frames is the total length in PCM frames, or -1 if the decoder can't tell.
	Frames() int64

	// Read fills dst with whole frames and returns the number of samples written.
	// io.EOF is returned once no more samples are available.
	Read(dst []float32) (int, error)

	// Rewind moves back to the first frame.
	Rewind() error

	Close() error
}

// pcmData is a fully decoded clip.
type pcmData struct {
	samples    []float32
	channels   int
	sampleRate int
}

func (d *pcmData) frames() int64 {
	if d.channels == 0 {
		return 0
	}
	return int64(len(d.samples) / d.channels)
}

// OpenStreamer opens the file at fpath for decoding. The returned Streamer owns the file.
func OpenStreamer(fpath string) (Streamer, error) {

	soundType := GetSoundFileType(fpath)
	if soundType == SoundType_Unknown {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSoundType, fpath)
	}

	//We open the file but don't close on success so it can be streamed any time later
	file, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}

	st, err := newStreamer(file, file, soundType)
	if err != nil {
		file.Close()
		return nil, err
	}

	return st, nil
}

func newStreamer(r io.ReadSeeker, closer io.Closer, soundType SoundType) (Streamer, error) {
	switch soundType {
	case SoundType_WAV:
		return NewWavStreamer(r, closer)
	case SoundType_MP3:
		return NewMP3Streamer(r, closer)
	case SoundType_OGG:
		return NewOggStreamer(r, closer)
	case SoundType_FLAC:
		return NewFLACStreamer(r, closer)
	default:
		return nil, ErrUnknownSoundType
	}
}

// readAllPCM decodes st to the end. It does not close st.
func readAllPCM(st Streamer) (*pcmData, error) {

	ch := st.Channels()
	if ch <= 0 {
		return nil, ErrInvalidSoundData
	}

	var finalBuf []float32
	if frames := st.Frames(); frames > 0 {
		finalBuf = make([]float32, 0, frames*int64(ch))
	}

	tempBuf := make([]float32, 4096*ch)
	for {
		n, err := st.Read(tempBuf)
		finalBuf = append(finalBuf, tempBuf[:n]...)

		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return &pcmData{
		samples:    finalBuf,
		channels:   ch,
		sampleRate: st.SampleRate(),
	}, nil
}

func GetSoundFileType(fpath string) SoundType {

	ext := strings.ToLower(filepath.Ext(fpath))
	switch ext {
	case ".mp3":
		return SoundType_MP3
	case ".wav", ".wave":
		return SoundType_WAV
	case ".ogg", ".oga":
		return SoundType_OGG
	case ".flac":
		return SoundType_FLAC
	default:
		return SoundType_Unknown
	}
}

// sniffSoundType detects the container of an in-memory clip from its leading bytes.
func sniffSoundType(data []byte) SoundType {

	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return SoundType_WAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return SoundType_OGG
	case bytes.HasPrefix(data, []byte("fLaC")):
		return SoundType_FLAC
	case bytes.HasPrefix(data, []byte("ID3")):
		return SoundType_MP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		//MPEG frame sync
		return SoundType_MP3
	default:
		return SoundType_Unknown
	}
}
