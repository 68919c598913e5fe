package wavy

import (
	"math"
	"sync/atomic"
)

type Vec3 struct {
	X, Y, Z float32
}

var (
	vecUp      = Vec3{0, 1, 0}
	vecForward = Vec3{0, 0, -1}
)

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns the unit vector of v, or the zero vector if v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Transform is the external placement of a source or listener in the world.
// It is read once per frame on the owning thread.
type Transform interface {
	Position() Vec3
	Direction() Vec3
	Velocity() Vec3
}

var _ Transform = &StaticTransform{}

// StaticTransform is a Transform whose values are set directly by the application.
type StaticTransform struct {
	Pos Vec3
	Dir Vec3
	Vel Vec3
}

func NewStaticTransform(pos Vec3) *StaticTransform {
	return &StaticTransform{Pos: pos, Dir: vecForward}
}

func (t *StaticTransform) Position() Vec3  { return t.Pos }
func (t *StaticTransform) Direction() Vec3 { return t.Dir }
func (t *StaticTransform) Velocity() Vec3  { return t.Vel }

// atomicFloat32 gives plain overwrite semantics for values shared with the render thread.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (f *atomicFloat32) Load() float32 {
	return math.Float32frombits(f.bits.Load())
}

func (f *atomicFloat32) Store(v float32) {
	f.bits.Store(math.Float32bits(v))
}

// atomicVec3 is written once per frame by the owning thread. Readers may observe
// components from two different frames, which is acceptable for transforms.
type atomicVec3 struct {
	x, y, z atomicFloat32
}

func (v *atomicVec3) Load() Vec3 {
	return Vec3{v.x.Load(), v.y.Load(), v.z.Load()}
}

func (v *atomicVec3) Store(val Vec3) {
	v.x.Store(val.X)
	v.y.Store(val.Y)
	v.z.Store(val.Z)
}
