package wavy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSCQueue(t *testing.T) {

	q := newSPSCQueue[int](3)
	for i := 0; i < 4; i++ {
		require.True(t, q.Push(i))
	}
	assert.False(t, q.Push(4), "capacity is rounded up to 4")
	assert.Equal(t, 4, q.Len())

	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestSPSCQueueConcurrent(t *testing.T) {

	const count = 10000
	q := newSPSCQueue[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < count; {
			if q.Push(i) {
				i++
			}
		}
	}()

	for want := 0; want < count; {
		if v, ok := q.Pop(); ok {
			require.Equal(t, want, v)
			want++
		}
	}
	wg.Wait()
}

func TestSampleRingWholeFrames(t *testing.T) {

	r := newSampleRing(8, 2)
	assert.Equal(t, 8, r.Free())

	assert.Equal(t, 4, r.Write([]float32{1, 2, 3, 4, 5}))
	assert.Equal(t, 4, r.Len())

	dst := make([]float32, 3)
	assert.Equal(t, 2, r.Read(dst))
	assert.Equal(t, []float32{1, 2}, dst[:2])

	// Wraps around the end of the buffer
	assert.Equal(t, 6, r.Write([]float32{6, 7, 8, 9, 10, 11, 12, 13}))
	out := make([]float32, 8)
	assert.Equal(t, 8, r.Read(out))
	assert.Equal(t, []float32{3, 4, 6, 7, 8, 9, 10, 11}, out)
	assert.Zero(t, r.Len())
}

func TestStageList(t *testing.T) {

	var l stageList[string]
	assert.Nil(t, l.Load())

	assert.True(t, l.Add("a"))
	assert.True(t, l.Add("b"))
	assert.True(t, l.Add("c"))
	assert.False(t, l.Add("a"))

	snapshot := l.Load()

	assert.True(t, l.Remove("b"))
	assert.False(t, l.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, l.Load())
	assert.Equal(t, []string{"a", "b", "c"}, snapshot, "snapshots are never mutated")

	assert.Equal(t, []string{"a", "c"}, l.Clear())
	assert.Zero(t, l.Len())
}

func TestRenderGuardWaitsForCallback(t *testing.T) {

	var g renderGuard

	// Nothing in flight
	g.synchronize()

	g.enter()
	done := make(chan struct{})
	go func() {
		g.synchronize()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("synchronize returned while a callback was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	g.exit()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("synchronize did not return after the callback finished")
	}
}
