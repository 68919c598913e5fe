package wavy

// BackendBufferCount is the number of clip buffers the mixer currently holds.
func (c *Context) BackendBufferCount() int {
	m := c.m.Load()
	if m == nil {
		return 0
	}
	return m.bufferCount()
}

// FinishPlaybacks ends n playbacks in a row the way the render thread does.
func (s *AudioSource) FinishPlaybacks(n int) {
	for i := 0; i < n; i++ {
		s.voice.start()
		s.voice.finish(s.voice.state.Load())
	}
}
