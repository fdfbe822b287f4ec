// Package camera provides the chase camera that frames the runner.
package camera

import (
	gomath "math"

	"github.com/Faultbox/follower-catcher/pkg/math"
)

// ChaseCamera sits behind and above the player looking down the track.
// Only the eye's X follows the player; the target stays fixed so the road
// keeps its vanishing point.
type ChaseCamera struct {
	Eye    math.Vec3
	Target math.Vec3
	Up     math.Vec3

	// Projection
	FovY   float32 // radians
	Near   float32
	Far    float32
	Aspect float32
}

// NewChaseCamera creates a chase camera with the default framing.
// fovDegrees is the vertical field of view.
func NewChaseCamera(fovDegrees, near, far float32) *ChaseCamera {
	return &ChaseCamera{
		Eye:    math.Vec3{X: 0, Y: 70, Z: -70},
		Target: math.Vec3{X: 0, Y: 0, Z: 70},
		Up:     math.Vec3{X: 0, Y: 1, Z: 0},
		FovY:   fovDegrees * gomath.Pi / 180,
		Near:   near,
		Far:    far,
		Aspect: 16.0 / 9.0,
	}
}

// Follow moves the eye sideways to x.
func (c *ChaseCamera) Follow(x float32) {
	c.Eye.X = x
}

// Resize updates the aspect ratio. Degenerate sizes are ignored.
func (c *ChaseCamera) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// View returns the left-handed view matrix.
func (c *ChaseCamera) View() math.Mat4 {
	return math.LookAtLH(c.Eye, c.Target, c.Up)
}

// Projection returns the left-handed perspective matrix.
func (c *ChaseCamera) Projection() math.Mat4 {
	return math.PerspectiveLH(c.FovY, c.Aspect, c.Near, c.Far)
}
