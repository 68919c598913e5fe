package wavy

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// spscQueue is a bounded single-producer/single-consumer FIFO.
// Push and Pop never block or allocate.
type spscQueue[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64 // next slot to read, owned by the consumer
	tail atomic.Uint64 // next slot to write, owned by the producer
}

func newSPSCQueue[T any](capacity int) *spscQueue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &spscQueue[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}
}

// Push returns false if the queue is full.
func (q *spscQueue[T]) Push(v T) bool {
	t := q.tail.Load()
	if t-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[t&q.mask] = v
	q.tail.Store(t + 1)
	return true
}

func (q *spscQueue[T]) Pop() (v T, ok bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return v, false
	}

	var zero T
	v = q.buf[h&q.mask]
	q.buf[h&q.mask] = zero
	q.head.Store(h + 1)
	return v, true
}

func (q *spscQueue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// sampleRing is an SPSC ring of interleaved float32 samples.
// Reads and writes always move whole frames of align samples.
type sampleRing struct {
	buf   []float32
	mask  uint64
	align int
	head  atomic.Uint64
	tail  atomic.Uint64
}

func newSampleRing(capacity, align int) *sampleRing {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &sampleRing{
		buf:   make([]float32, size),
		mask:  uint64(size - 1),
		align: align,
	}
}

func (r *sampleRing) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

func (r *sampleRing) Free() int {
	return len(r.buf) - r.Len()
}

// Write copies as many whole frames of src as fit and returns the number of samples written.
func (r *sampleRing) Write(src []float32) int {
	t := r.tail.Load()
	free := len(r.buf) - int(t-r.head.Load())
	n := min(free, len(src))
	n -= n % r.align

	for i := 0; i < n; i++ {
		r.buf[(t+uint64(i))&r.mask] = src[i]
	}
	r.tail.Store(t + uint64(n))
	return n
}

// Read fills dst with as many whole frames as are available and returns the number of samples read.
func (r *sampleRing) Read(dst []float32) int {
	h := r.head.Load()
	avail := int(r.tail.Load() - h)
	n := min(avail, len(dst))
	n -= n % r.align

	for i := 0; i < n; i++ {
		dst[i] = r.buf[(h+uint64(i))&r.mask]
	}
	r.head.Store(h + uint64(n))
	return n
}

// stageList is a copy-on-write list. Writers are serialized by mu and publish a fresh
// slice on every change, so a reader holding a snapshot never sees a partial update.
type stageList[T comparable] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

// Load returns the current snapshot. It must not be modified.
func (l *stageList[T]) Load() []T {
	p := l.items.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Add appends v unless it is already present. Returns true if v was added.
func (l *stageList[T]) Add(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.Load()
	for _, x := range cur {
		if x == v {
			return false
		}
	}

	next := make([]T, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, v)
	l.items.Store(&next)
	return true
}

// Remove deletes v, keeping the order of the rest. Returns true if v was present.
func (l *stageList[T]) Remove(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.Load()
	idx := -1
	for i, x := range cur {
		if x == v {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	next := make([]T, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	l.items.Store(&next)
	return true
}

// Clear empties the list and returns what it held.
func (l *stageList[T]) Clear() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.Load()
	l.items.Store(nil)
	return old
}

func (l *stageList[T]) Len() int {
	return len(l.Load())
}

// renderGuard tracks whether the render callback is running. The counter is odd while
// a callback is in flight. There is exactly one render thread per guard.
type renderGuard struct {
	seq atomic.Uint64
}

func (g *renderGuard) enter() {
	g.seq.Add(1)
}

func (g *renderGuard) exit() {
	g.seq.Add(1)
}

// synchronize returns once any callback that may have observed state published before
// the call has finished. Must never be called from the render thread.
func (g *renderGuard) synchronize() {
	s := g.seq.Load()
	if s&1 == 0 {
		return
	}

	for g.seq.Load() == s {
		runtime.Gosched()
	}
}
