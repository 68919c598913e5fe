package wavy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// cacheEntry is one backend buffer shared by every memory clip with the same hash.
type cacheEntry struct {
	handle BufferHandle
	refs   int
}

// AudioClip is playable audio, either a file on disk (decoded fully or streamed) or
// encoded bytes held in backend memory.
type AudioClip struct {
	Path      string
	Streaming bool
	Type      SoundType

	// Hash is the cache key of a memory clip. Zero for file clips.
	Hash uint64

	// DataSize is the size in bytes of the encoded data
	DataSize int64

	ctx    *Context
	handle BufferHandle

	// disposed is guarded by ctx.mu
	disposed bool

	decodeMu sync.Mutex
	decoded  *pcmData
}

// ClipHash is the cache key of encoded clip data. Identical bytes always hash the same.
func ClipHash(data []byte) uint64 {

	var hash uint64
	for _, b := range data {
		hash = uint64(b) + (hash << 6) + (hash << 16) - hash
	}

	return hash
}

// NewClipFromMemory creates a clip from encoded bytes. Clips built from identical bytes
// share one backend buffer, which is freed when the last of them is disposed. A unique
// clip always gets its own buffer.
//
// The bytes are copied, so data can be reused once this returns.
func (c *Context) NewClipFromMemory(data []byte, unique bool) (*AudioClip, error) {

	if len(data) == 0 {
		return nil, ErrEmptyClipData
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.m.Load()
	if m == nil {
		return nil, ErrNotInitialized
	}

	var hash uint64
	if unique {
		hash = c.uniqueHash()
	} else {
		hash = ClipHash(data)
	}

	e, ok := c.cache[hash]
	if ok {
		e.refs++
	} else {
		e = &cacheEntry{handle: m.allocBuffer(data), refs: 1}
		c.cache[hash] = e
		c.log.Debug("allocated clip buffer", slog.Uint64("hash", hash), slog.Int("size", len(data)))
	}

	clip := &AudioClip{
		Type:     sniffSoundType(data),
		Hash:     hash,
		DataSize: int64(len(data)),
		ctx:      c,
		handle:   e.handle,
	}

	c.clips = append(c.clips, clip)
	return clip, nil
}

// uniqueHash returns a hash no cache entry uses. Must hold c.mu.
func (c *Context) uniqueHash() uint64 {
	for {
		id := uuid.New()
		hash := binary.BigEndian.Uint64(id[:8]) ^ binary.BigEndian.Uint64(id[8:])
		if _, taken := c.cache[hash]; !taken && hash != 0 {
			return hash
		}
	}
}

// NewClipFromFile creates a clip for the sound file at fpath. Streaming clips are
// decoded while they play, others are decoded fully the first time they are played.
func (c *Context) NewClipFromFile(fpath string, streaming bool) (*AudioClip, error) {

	info, err := os.Stat(fpath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrClipFileNotFound, fpath)
		}
		return nil, err
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrClipFileNotFound, fpath)
	}

	soundType := GetSoundFileType(fpath)
	if soundType == SoundType_Unknown {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSoundType, fpath)
	}

	clip := &AudioClip{
		Path:      fpath,
		Streaming: streaming,
		Type:      soundType,
		DataSize:  info.Size(),
		ctx:       c,
	}

	c.mu.Lock()
	c.clips = append(c.clips, clip)
	c.mu.Unlock()

	return clip, nil
}

func (clip *AudioClip) IsMemory() bool {
	return clip.handle != 0
}

func (clip *AudioClip) Mode() SoundMode {
	if clip.Streaming {
		return SoundMode_Streaming
	}
	return SoundMode_Memory
}

// Handle is the backend buffer of a memory clip. Zero for file clips.
func (clip *AudioClip) Handle() BufferHandle {
	return clip.handle
}

func (clip *AudioClip) IsDisposed() bool {
	clip.ctx.mu.Lock()
	defer clip.ctx.mu.Unlock()

	return clip.disposed
}

// Dispose releases the clip. The backend buffer of a memory clip is freed once no
// other clip references it. Sources already playing the clip keep their decoded data.
func (clip *AudioClip) Dispose() {
	clip.dispose(true)
}

func (clip *AudioClip) dispose(forget bool) {

	c := clip.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	if clip.disposed {
		return
	}
	clip.disposed = true

	clip.decodeMu.Lock()
	clip.decoded = nil
	clip.decodeMu.Unlock()

	if clip.IsMemory() {
		if e, ok := c.cache[clip.Hash]; ok && e.handle == clip.handle {
			e.refs--
			if e.refs <= 0 {
				delete(c.cache, clip.Hash)
				if m := c.m.Load(); m != nil {
					m.freeBuffer(e.handle)
				}
				c.log.Debug("freed clip buffer", slog.Uint64("hash", clip.Hash))
			}
		}
	}

	if forget {
		c.forgetClip(clip)
	}
}

// open prepares a playback of the clip for m.
func (clip *AudioClip) open(m *mixer, loop *atomic.Bool) (*playback, error) {

	if clip.IsDisposed() {
		return nil, ErrClipDisposed
	}

	if clip.IsMemory() {
		sb, ok := m.buffer(clip.handle)
		if !ok {
			return nil, ErrClipDisposed
		}

		pcm, err := sb.decode()
		if err != nil {
			return nil, fmt.Errorf("decoding %s clip: %w", sb.typ, err)
		}
		return &playback{data: pcm}, nil
	}

	if clip.Streaming {
		st, err := OpenStreamer(clip.Path)
		if err != nil {
			return nil, err
		}
		return &playback{feeder: startFeeder(m.ctx, st, m.sampleRate, loop, m.log)}, nil
	}

	pcm, err := clip.decodeFile()
	if err != nil {
		return nil, err
	}
	return &playback{data: pcm}, nil
}

// decodeFile decodes a file clip once and keeps the result for later plays.
func (clip *AudioClip) decodeFile() (*pcmData, error) {

	clip.decodeMu.Lock()
	defer clip.decodeMu.Unlock()

	if clip.decoded != nil {
		return clip.decoded, nil
	}

	st, err := OpenStreamer(clip.Path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	pcm, err := readAllPCM(st)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", clip.Path, err)
	}

	clip.decoded = pcm
	return pcm, nil
}
