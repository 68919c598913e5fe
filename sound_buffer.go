package wavy

import (
	"io"
	"sync"
)

// BufferHandle identifies a block of backend memory holding one encoded clip.
// The zero value is never a valid handle.
type BufferHandle uint64

// soundBuffer is backend-owned memory holding an encoded clip. Every clip built from
// the same bytes shares one soundBuffer, and it is decoded at most once.
type soundBuffer struct {
	handle BufferHandle
	data   []byte
	typ    SoundType

	decodeMu sync.Mutex
	decoded  *pcmData
}

// newReader returns an independent ReadSeeker over the shared data.
func (sb *soundBuffer) newReader() *bufferReader {
	return &bufferReader{data: sb.data}
}

// decode returns the decoded PCM for the buffer, decoding on first use.
func (sb *soundBuffer) decode() (*pcmData, error) {

	sb.decodeMu.Lock()
	defer sb.decodeMu.Unlock()

	if sb.decoded != nil {
		return sb.decoded, nil
	}

	st, err := newStreamer(sb.newReader(), nil, sb.typ)
	if err != nil {
		return nil, err
	}

	pcm, err := readAllPCM(st)
	if err != nil {
		return nil, err
	}

	sb.decoded = pcm
	return pcm, nil
}

var _ io.ReadSeeker = &bufferReader{}

// bufferReader reads a shared byte slice with its own position.
type bufferReader struct {
	data []byte

	// pos is the starting position of the next read
	pos int64
}

// Read only returns io.EOF when bytesRead==0 and no more input is available
func (br *bufferReader) Read(outBuf []byte) (bytesRead int, err error) {

	if br.pos >= int64(len(br.data)) {
		return 0, io.EOF
	}

	bytesRead = copy(outBuf, br.data[br.pos:])
	br.pos += int64(bytesRead)
	return bytesRead, nil
}

// Seek returns the new position.
// An error is only returned if the whence is invalid or if the resulting position is negative.
func (br *bufferReader) Seek(offset int64, whence int) (int64, error) {

	newPos := br.pos
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos += offset
	case io.SeekEnd:
		newPos = int64(len(br.data)) + offset
	default:
		return 0, ErrInvalidWhence
	}

	if newPos < 0 {
		return 0, ErrNegativeSeekPos
	}

	br.pos = newPos
	return br.pos, nil
}
