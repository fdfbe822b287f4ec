package camera

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/follower-catcher/pkg/math"
)

func TestChaseCameraDefaults(t *testing.T) {
	c := NewChaseCamera(45, 0.1, 1000)
	if c.Eye != (math.Vec3{X: 0, Y: 70, Z: -70}) {
		t.Errorf("eye = %+v", c.Eye)
	}
	if got := float64(c.FovY); gomath.Abs(got-gomath.Pi/4) > 1e-6 {
		t.Errorf("fov = %f, want pi/4", got)
	}
}

func TestFollowKeepsTarget(t *testing.T) {
	c := NewChaseCamera(45, 0.1, 1000)
	c.Follow(20)
	if c.Eye.X != 20 || c.Eye.Y != 70 {
		t.Errorf("eye = %+v, want x=20 y=70", c.Eye)
	}
	if c.Target != (math.Vec3{Z: 70}) {
		t.Errorf("target moved to %+v", c.Target)
	}
}

func TestResize(t *testing.T) {
	c := NewChaseCamera(45, 0.1, 1000)
	c.Resize(800, 400)
	if c.Aspect != 2 {
		t.Errorf("aspect = %f, want 2", c.Aspect)
	}
	c.Resize(800, 0)
	if c.Aspect != 2 {
		t.Errorf("zero height changed aspect to %f", c.Aspect)
	}
}

func TestViewProjectionSeesTrackAhead(t *testing.T) {
	c := NewChaseCamera(45, 0.1, 1000)
	vp := c.Projection().Mul(c.View())

	// A point on the road in front of the camera lands inside clip space.
	p := vp.TransformVec3(math.Vec3{X: 0, Y: 0, Z: 100})
	if p.X < -1 || p.X > 1 || p.Y < -1 || p.Y > 1 || p.Z < -1 || p.Z > 1 {
		t.Errorf("track point projected outside clip space: %+v", p)
	}

	// The target sits on the view axis.
	q := vp.TransformVec3(c.Target)
	if gomath.Abs(float64(q.X)) > 1e-4 || gomath.Abs(float64(q.Y)) > 1e-4 {
		t.Errorf("target not centered: %+v", q)
	}
}
