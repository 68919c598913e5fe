package wavy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttenuate(t *testing.T) {

	tests := []struct {
		name    string
		model   AttenuationModel
		dist    float32
		rolloff float32
		want    float32
	}{
		{"none ignores distance", AttenuationModel_None, 500, 1, 1},
		{"inverse at min distance", AttenuationModel_Inverse, 1, 1, 1},
		{"inverse inside min distance", AttenuationModel_Inverse, 0.1, 1, 1},
		{"inverse", AttenuationModel_Inverse, 2, 1, 0.5},
		{"inverse rolloff", AttenuationModel_Inverse, 2, 2, 1.0 / 3},
		{"linear halfway", AttenuationModel_Linear, 6, 1, 0.5},
		{"linear rolloff", AttenuationModel_Linear, 6, 2, 0},
		{"linear past max", AttenuationModel_Linear, 100, 1, 0},
		{"exponential", AttenuationModel_Exponential, 4, 1, 0.25},
		{"exponential rolloff", AttenuationModel_Exponential, 2, 2, 0.25},
		{"zero rolloff keeps full gain", AttenuationModel_Exponential, 8, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, attenuate(tt.model, tt.dist, 1, 11, tt.rolloff), 1e-6)
		})
	}
}

func TestAttenuationCurvesDiffer(t *testing.T) {

	// At the default rolloff inverse and exponential coincide
	assert.InDelta(t, attenuate(AttenuationModel_Inverse, 5, 1, 100, 1), attenuate(AttenuationModel_Exponential, 5, 1, 100, 1), 1e-6)

	for _, d := range []float32{2, 5, 50} {
		inv := attenuate(AttenuationModel_Inverse, d, 1, 100, 2)
		exp := attenuate(AttenuationModel_Exponential, d, 1, 100, 2)
		assert.Greater(t, inv, exp, "distance %v", d)
	}
}

func TestSpatializePan(t *testing.T) {

	l := newListenerState()
	v := newVoice(&stageList[Generator]{}, &stageList[Effect]{})
	v.model.Store(int32(AttenuationModel_None))

	v.position.Store(Vec3{X: 3})
	sp := spatialize(v, l)
	assert.Equal(t, float32(0), sp.left)
	assert.Equal(t, float32(1), sp.right)
	assert.Equal(t, 1.0, sp.pitch)

	v.position.Store(Vec3{X: -3})
	sp = spatialize(v, l)
	assert.Equal(t, float32(1), sp.left)
	assert.Equal(t, float32(0), sp.right)

	// Straight ahead is centered
	v.position.Store(Vec3{Z: -3})
	sp = spatialize(v, l)
	assert.InDelta(t, 1, sp.left, 1e-6)
	assert.InDelta(t, 1, sp.right, 1e-6)

	// Turning the listener around swaps the sides
	l.direction.Store(Vec3{Z: 1})
	v.position.Store(Vec3{X: 3})
	sp = spatialize(v, l)
	assert.InDelta(t, 1, sp.left, 1e-6)
	assert.InDelta(t, 0, sp.right, 1e-6)
}

func TestDopplerPitch(t *testing.T) {

	// Source 10 units ahead of a listener at the origin
	toListener := Vec3{Z: 10}

	assert.Equal(t, 1.0, dopplerPitch(toListener, 10, Vec3{}, Vec3{}, 1))

	// Source moving towards the listener raises pitch
	approaching := dopplerPitch(toListener, 10, Vec3{}, Vec3{Z: 20}, 1)
	assert.Greater(t, approaching, 1.0)

	// And moving away lowers it
	receding := dopplerPitch(toListener, 10, Vec3{}, Vec3{Z: -20}, 1)
	assert.Less(t, receding, 1.0)

	// Listener moving towards the source raises pitch too
	assert.Greater(t, dopplerPitch(toListener, 10, Vec3{Z: -20}, Vec3{}, 1), 1.0)
}
