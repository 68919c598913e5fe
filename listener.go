package wavy

import (
	"github.com/google/uuid"
)

// AudioListener is the point spatial sources are heard from. Only the first enabled
// listener of a Context is used.
type AudioListener struct {
	ID uuid.UUID

	transform Transform
	ctx       *Context
	m         *mixer
	state     *listenerState
	destroyed bool
}

// NewListener returns an enabled listener placed by t. t may be nil, which leaves the
// listener at the origin facing -Z.
func NewListener(t Transform) *AudioListener {
	return &AudioListener{
		ID:        uuid.New(),
		transform: t,
		state:     newListenerState(),
	}
}

func (l *AudioListener) attach(c *Context, m *mixer) bool {

	if l.destroyed || l.ctx != nil {
		return false
	}

	l.ctx = c
	l.m = m
	l.update()
	m.addListener(l.state)
	return true
}

func (l *AudioListener) IsInitialized() bool {
	return l.m != nil && !l.destroyed
}

func (l *AudioListener) Enabled() bool {
	return l.state.enabled.Load()
}

func (l *AudioListener) SetEnabled(enabled bool) {
	l.state.enabled.Store(enabled)
}

func (l *AudioListener) Transform() Transform {
	return l.transform
}

func (l *AudioListener) SetTransform(t Transform) {
	l.transform = t
}

func (l *AudioListener) update() {

	if l.destroyed || l.transform == nil || !l.state.enabled.Load() {
		return
	}

	l.state.position.Store(l.transform.Position())
	l.state.direction.Store(l.transform.Direction())
	l.state.velocity.Store(l.transform.Velocity())
}

// Destroy releases the listener. Repeated calls are no-ops.
func (l *AudioListener) Destroy() {
	l.destroy(true)
}

func (l *AudioListener) destroy(forget bool) {

	if l.destroyed {
		return
	}
	l.destroyed = true

	if l.m != nil {
		l.m.removeListener(l.state)
	}

	if forget && l.ctx != nil {
		l.ctx.forgetListener(l)
	}
	l.m = nil
}
