package vmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector3_Arithmetic(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 4, Y: -5, Z: 6}

	assert.Equal(t, Vector3{X: 5, Y: -3, Z: 9}, a.Add(b))
	assert.Equal(t, Vector3{X: -3, Y: 7, Z: -3}, a.Sub(b))
	assert.Equal(t, Vector3{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.Equal(t, Vector3{X: -1, Y: -2, Z: -3}, a.Negate())
	assert.Equal(t, float64(4-10+18), a.Dot(b))
}

func TestVector3_Cross(t *testing.T) {
	x := Vector3{X: 1}
	y := Vector3{Y: 1}
	assert.Equal(t, Vector3{Z: 1}, x.Cross(y))
	assert.Equal(t, Vector3{Z: -1}, y.Cross(x))
}

func TestVector3_Length(t *testing.T) {
	v := Vector3{X: 3, Y: 4}
	assert.Equal(t, 25.0, v.LengthSquared())
	assert.Equal(t, 5.0, v.Length())

	n := v.Normalize()
	assert.InDelta(t, 1.0, n.Length(), 1e-12)
	assert.Equal(t, Vector3{}, Zero.Normalize())
}

func TestVector3_IsNegligible(t *testing.T) {
	assert.True(t, Vector3{X: 1e-9, Y: -1e-9}.IsNegligible(1e-6))
	assert.False(t, Vector3{Z: 0.1}.IsNegligible(1e-6))
	assert.False(t, Vector3{X: math.Inf(1)}.IsNegligible(1e-6))
}

func TestMatrix_Backward(t *testing.T) {
	m := Matrix{Forward: Vector3{Z: -1}}
	assert.Equal(t, Vector3{Z: 1}, m.Backward())
}
