package wavy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoiceResetClearsHeldStreamFrame(t *testing.T) {

	v := newVoice(&stageList[Generator]{}, &stageList[Effect]{})
	v.streamFrame[0] = 0.7
	v.streamFrame[1] = -0.7

	f := &streamFeeder{ring: newSampleRing(16, 2), channels: 2}
	v.reset(&playback{feeder: f})

	// An empty ring that isn't finished is an underrun
	buf := ones(8)
	assert.False(t, v.readStream(f, buf, 4, 2, 1))
	assert.Equal(t, make([]float32, 8), buf)
}

func TestVoiceFinishCountsOverflow(t *testing.T) {

	v := newVoice(&stageList[Generator]{}, &stageList[Effect]{})

	for i := 0; i < endQueueCapacity; i++ {
		v.start()
		v.finish(v.state.Load())
	}
	assert.Equal(t, endQueueCapacity, v.ends.Len())
	assert.Zero(t, v.lostEnds.Load())

	v.start()
	v.finish(v.state.Load())
	assert.EqualValues(t, 1, v.lostEnds.Load())
	assert.False(t, v.playing())
	assert.True(t, v.atEnd.Load())

	// A stale end doesn't touch a newer playback
	v.start()
	stale := v.state.Load()
	v.stop()
	v.start()
	v.finish(stale)
	assert.True(t, v.playing())
	assert.EqualValues(t, 1, v.lostEnds.Load())
}
