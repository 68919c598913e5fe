package wavy

import (
	"math"
	"sync/atomic"
)

const speedOfSound = 343.3

// listenerState is the backend side of an AudioListener.
type listenerState struct {
	enabled   atomic.Bool
	position  atomicVec3
	direction atomicVec3
	velocity  atomicVec3
}

func newListenerState() *listenerState {
	l := &listenerState{}
	l.enabled.Store(true)
	l.direction.Store(vecForward)
	return l
}

// spatialParams is the per-callback result of placing a voice relative to a listener.
type spatialParams struct {
	gain  float32
	left  float32
	right float32
	pitch float64
}

func spatialize(v *voice, l *listenerState) spatialParams {

	rel := v.position.Load().Sub(l.position.Load())
	dist := rel.Len()

	sp := spatialParams{
		gain:  attenuate(AttenuationModel(v.model.Load()), dist, v.minDist.Load(), v.maxDist.Load(), v.rolloff.Load()),
		left:  1,
		right: 1,
		pitch: 1,
	}

	if dist == 0 {
		return sp
	}

	right := l.direction.Load().Cross(vecUp).Normalize()
	pan := rel.Scale(1 / dist).Dot(right)
	if pan > 0 {
		sp.left = 1 - pan
	} else {
		sp.right = 1 + pan
	}

	if factor := v.doppler.Load(); factor > 0 {
		sp.pitch = dopplerPitch(rel.Scale(-1), dist, l.velocity.Load(), v.velocity.Load(), factor)
	}

	return sp
}

// attenuate returns the distance gain for model, with dist clamped to [minDist, maxDist].
// rolloff scales how fast each curve falls. At a rolloff of 1 the inverse and exponential
// curves are both minDist/dist.
func attenuate(model AttenuationModel, dist, minDist, maxDist, rolloff float32) float32 {

	if minDist <= 0 {
		minDist = 0.0001
	}
	if maxDist < minDist {
		maxDist = minDist
	}
	rolloff = max(rolloff, 0)
	d := min(max(dist, minDist), maxDist)

	var g float32
	switch model {
	case AttenuationModel_Inverse:
		g = minDist / (minDist + rolloff*(d-minDist))
	case AttenuationModel_Linear:
		if maxDist == minDist {
			return 1
		}
		g = 1 - rolloff*(d-minDist)/(maxDist-minDist)
	case AttenuationModel_Exponential:
		g = float32(math.Pow(float64(d/minDist), float64(-rolloff)))
	default:
		return 1
	}

	return min(max(g, 0), 1)
}

// dopplerPitch is the pitch shift for toListener, the vector from the source to the
// listener. Velocities along it are clamped below the speed of sound.
func dopplerPitch(toListener Vec3, dist float32, listenerVel, sourceVel Vec3, factor float32) float64 {

	limit := float32(speedOfSound) / factor
	vls := min(toListener.Dot(listenerVel)/dist, limit)
	vss := min(toListener.Dot(sourceVel)/dist, limit)

	den := speedOfSound - float64(factor*vss)
	if den <= 0 {
		return 1
	}
	return (speedOfSound - float64(factor*vls)) / den
}
