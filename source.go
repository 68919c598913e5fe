package wavy

import (
	"log/slog"

	"github.com/google/uuid"
)

// AudioSource plays clips or procedural audio through its generator and effect chains.
// Every method must be called from the goroutine that owns the Context.
//
// Event handlers run on that goroutine during Context.NewFrame, never on the render thread.
type AudioSource struct {
	ID uuid.UUID

	// OnLoad is raised once after PlayClip has loaded a clip
	OnLoad func()

	// OnEnd is raised once every time a non looping playback reaches its end
	OnEnd func()

	// OnProcess is raised with the number of frames the effect chain processed since the last frame
	OnProcess func(frames int64)

	// OnRead is raised with the number of frames the generator chain produced since the last frame
	OnRead func(frames int64)

	transform Transform
	ctx       *Context
	m         *mixer
	voice     *voice
	clip      *AudioClip

	generators stageList[Generator]
	effects    stageList[Effect]

	loadPending bool
	started     bool
	destroyed   bool
}

// NewSource returns a source placed by t. t may be nil for sources that are never spatial.
// The source does nothing until added to a Context.
func NewSource(t Transform) *AudioSource {

	s := &AudioSource{
		ID:        uuid.New(),
		transform: t,
	}

	s.voice = newVoice(&s.generators, &s.effects)
	return s
}

func (s *AudioSource) attach(c *Context, m *mixer) bool {

	if s.destroyed || s.ctx != nil {
		return false
	}

	s.ctx = c
	s.m = m
	m.addVoice(s.voice)
	return true
}

func (s *AudioSource) ready() bool {
	return s.m != nil && !s.destroyed
}

func (s *AudioSource) logger() *slog.Logger {
	if s.ctx == nil {
		return slog.Default()
	}
	return s.ctx.log
}

func (s *AudioSource) IsInitialized() bool {
	return s.ready()
}

func (s *AudioSource) State() SourceState {
	switch {
	case s.destroyed:
		return SourceState_Destroyed
	case s.m == nil:
		return SourceState_Uninitialized
	case s.voice.playing():
		return SourceState_Playing
	case !s.started:
		return SourceState_Initialized
	default:
		return SourceState_Stopped
	}
}

func (s *AudioSource) IsPlaying() bool {
	return s.ready() && s.voice.playing()
}

func (s *AudioSource) Transform() Transform {
	return s.transform
}

func (s *AudioSource) SetTransform(t Transform) {
	s.transform = t
}

// PlayClip loads clip and plays it from the start. The previous playback is replaced.
// Calling it before the source is added to an initialized Context does nothing.
func (s *AudioSource) PlayClip(clip *AudioClip) error {

	if !s.ready() {
		return nil
	}

	if clip == nil {
		return ErrClipDisposed
	}

	pb, err := clip.open(s.m, &s.voice.loop)
	if err != nil {
		s.logger().Error("failed to play clip", slog.String("source", s.ID.String()), slog.Any("err", err))
		return err
	}

	s.clip = clip
	s.voice.seek.Store(-1)
	s.swapPlayback(pb)
	s.voice.cursor.Store(0)
	s.voice.atEnd.Store(false)
	s.voice.start()

	s.started = true
	s.loadPending = true
	return nil
}

// swapPlayback installs pb and releases the feeder of the playback it replaces.
func (s *AudioSource) swapPlayback(pb *playback) {

	old := s.voice.current.Swap(pb)
	if old == nil || old.feeder == nil {
		return
	}

	s.m.synchronize()
	old.feeder.close()
}

// Play continues the current playback from the cursor, restarting it if it had reached
// its end. With no clip loaded the source plays only what its generators produce,
// which never ends.
func (s *AudioSource) Play() {

	if !s.ready() {
		return
	}

	pb := s.voice.current.Load()
	if pb == nil {
		s.voice.seek.Store(-1)
		s.swapPlayback(&playback{})
		s.voice.atEnd.Store(false)
		s.voice.start()
		s.started = true
		return
	}

	if s.voice.atEnd.Swap(false) {

		// A finished stream has no data left, so it is reopened
		if pb.feeder != nil && s.clip != nil {
			if err := s.PlayClip(s.clip); err != nil {
				s.logger().Warn("failed to restart stream", slog.String("source", s.ID.String()), slog.Any("err", err))
			}
			return
		}

		s.voice.seek.Store(0)
		s.voice.cursor.Store(0)
	}

	s.voice.start()
	s.started = true
}

func (s *AudioSource) Stop() {
	if !s.ready() {
		return
	}
	s.voice.stop()
}

// Cursor is the playback position in frames of the source's clip.
func (s *AudioSource) Cursor() int64 {
	return s.voice.cursor.Load()
}

// SetCursor moves the playback position, clamped to the clip length. Streamed clips
// can't be seeked and ignore this.
func (s *AudioSource) SetCursor(frame int64) {

	pb := s.voice.current.Load()
	if !s.ready() || pb == nil {
		return
	}

	if pb.feeder != nil {
		s.logger().Debug("ignoring cursor change on a streamed clip", slog.String("source", s.ID.String()))
		return
	}

	frame = min(max(frame, 0), pb.length())
	s.voice.seek.Store(frame)
	s.voice.cursor.Store(frame)
	s.voice.atEnd.Store(false)
}

// Length is the length in frames of the loaded clip, or zero if unknown.
func (s *AudioSource) Length() int64 {
	return s.voice.length()
}

func (s *AudioSource) Volume() float32 {
	return s.voice.volume.Load()
}

func (s *AudioSource) SetVolume(v float32) {
	s.voice.volume.Store(max(v, 0))
}

func (s *AudioSource) Pitch() float32 {
	return s.voice.pitch.Load()
}

func (s *AudioSource) SetPitch(p float32) {
	s.voice.pitch.Store(max(p, 0))
}

func (s *AudioSource) Loop() bool {
	return s.voice.loop.Load()
}

func (s *AudioSource) SetLoop(loop bool) {
	s.voice.loop.Store(loop)
}

func (s *AudioSource) Spatial() bool {
	return s.voice.spatial.Load()
}

// SetSpatial enables 3D placement of the source relative to the first enabled listener.
func (s *AudioSource) SetSpatial(spatial bool) {
	s.voice.spatial.Store(spatial)
	if spatial {
		s.pushTransform()
	}
}

func (s *AudioSource) DopplerFactor() float32 {
	return s.voice.doppler.Load()
}

func (s *AudioSource) SetDopplerFactor(f float32) {
	s.voice.doppler.Store(max(f, 0))
}

func (s *AudioSource) MinDistance() float32 {
	return s.voice.minDist.Load()
}

func (s *AudioSource) SetMinDistance(d float32) {
	s.voice.minDist.Store(max(d, 0))
}

func (s *AudioSource) MaxDistance() float32 {
	return s.voice.maxDist.Load()
}

func (s *AudioSource) SetMaxDistance(d float32) {
	s.voice.maxDist.Store(max(d, 0))
}

// Rolloff scales how fast the attenuation curve falls with distance. Defaults to 1.
func (s *AudioSource) Rolloff() float32 {
	return s.voice.rolloff.Load()
}

func (s *AudioSource) SetRolloff(r float32) {
	s.voice.rolloff.Store(max(r, 0))
}

func (s *AudioSource) AttenuationModel() AttenuationModel {
	return AttenuationModel(s.voice.model.Load())
}

func (s *AudioSource) SetAttenuationModel(model AttenuationModel) {
	s.voice.model.Store(int32(model))
}

// AddGenerator appends g to the generator chain. Generators run in the order added,
// before any effect.
func (s *AudioSource) AddGenerator(g Generator) {
	if g == nil || s.destroyed {
		return
	}
	s.generators.Add(g)
}

// RemoveGenerator detaches g and then calls its OnDestroy once the render thread is done with it.
func (s *AudioSource) RemoveGenerator(g Generator) {

	if !s.generators.Remove(g) {
		return
	}

	if s.m != nil {
		s.m.synchronize()
	}
	g.OnDestroy()
}

func (s *AudioSource) Generators() []Generator {
	return append([]Generator(nil), s.generators.Load()...)
}

// AddEffect appends e to the effect chain. Effects run in the order added.
func (s *AudioSource) AddEffect(e Effect) {
	if e == nil || s.destroyed {
		return
	}
	s.effects.Add(e)
}

// RemoveEffect detaches e and then calls its OnDestroy once the render thread is done with it.
func (s *AudioSource) RemoveEffect(e Effect) {

	if !s.effects.Remove(e) {
		return
	}

	if s.m != nil {
		s.m.synchronize()
	}
	e.OnDestroy()
}

func (s *AudioSource) Effects() []Effect {
	return append([]Effect(nil), s.effects.Load()...)
}

// update raises pending events and pushes the transform. Called by Context.NewFrame.
func (s *AudioSource) update() {

	if !s.ready() {
		return
	}

	v := s.voice
	if s.loadPending {
		s.loadPending = false
		if s.OnLoad != nil {
			s.OnLoad()
		}
	}

	if n := v.readCount.Swap(0); n > 0 && s.OnRead != nil {
		s.OnRead(n)
	}

	if n := v.procCount.Swap(0); n > 0 && s.OnProcess != nil {
		s.OnProcess(n)
	}

	for {
		if _, ok := v.ends.Pop(); !ok {
			break
		}
		if s.OnEnd != nil {
			s.OnEnd()
		}
	}

	// Ends past the queue capacity were counted instead of queued
	if lost := v.lostEnds.Swap(0); lost > 0 {
		s.logger().Warn("end queue overflowed", slog.String("source", s.ID.String()), slog.Int64("ends", lost))
		for i := int64(0); i < lost && s.OnEnd != nil; i++ {
			s.OnEnd()
		}
	}

	if s.ready() && v.spatial.Load() {
		s.pushTransform()
	}
}

func (s *AudioSource) pushTransform() {
	if s.transform == nil {
		return
	}

	s.voice.position.Store(s.transform.Position())
	s.voice.direction.Store(s.transform.Direction())
	s.voice.velocity.Store(s.transform.Velocity())
}

// Destroy stops the source, releases it and destroys its generators and effects.
// Pending events are dropped. Repeated calls are no-ops.
func (s *AudioSource) Destroy() {
	s.destroy(true)
}

func (s *AudioSource) destroy(forget bool) {

	if s.destroyed {
		return
	}
	s.destroyed = true

	v := s.voice
	v.stop()
	if s.m != nil {
		s.m.removeVoice(v)
	}

	if old := v.current.Swap(nil); old != nil && old.feeder != nil {
		old.feeder.close()
	}

	for {
		if _, ok := v.ends.Pop(); !ok {
			break
		}
	}
	v.readCount.Store(0)
	v.procCount.Store(0)
	v.lostEnds.Store(0)

	for _, g := range s.generators.Clear() {
		g.OnDestroy()
	}

	for _, e := range s.effects.Clear() {
		e.OnDestroy()
	}

	if forget && s.ctx != nil {
		s.ctx.forgetSource(s)
	}

	s.m = nil
	s.clip = nil
	s.loadPending = false
}
