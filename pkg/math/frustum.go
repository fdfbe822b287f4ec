package math

import "math"

// Plane is ax + by + cz + d = 0 with (a, b, c) = Normal.
// The positive half-space is inside the frustum.
type Plane struct {
	Normal Vec3
	D      float32
}

// Distance returns the signed distance from p to the plane.
func (p Plane) Distance(v Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

// Frustum plane indices.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// Frustum is the six planes of a view volume.
type Frustum struct {
	Planes [6]Plane
}

// Containment is the result of testing a volume against a frustum.
type Containment int

const (
	Disjoint Containment = iota
	Intersects
	Contains
)

func (c Containment) String() string {
	switch c {
	case Disjoint:
		return "disjoint"
	case Intersects:
		return "intersects"
	case Contains:
		return "contains"
	}
	return "unknown"
}

// ExtractFrustum builds normalized frustum planes from a combined
// projection * view matrix (Gribb/Hartmann).
func ExtractFrustum(vp Mat4) Frustum {
	row := func(i int) [4]float32 {
		return [4]float32{vp[i], vp[4+i], vp[8+i], vp[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	plane := func(a [4]float32, b [4]float32, sign float32) Plane {
		return Plane{
			Normal: Vec3{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			D:      a[3] + sign*b[3],
		}
	}

	var f Frustum
	f.Planes[FrustumLeft] = plane(r3, r0, 1)
	f.Planes[FrustumRight] = plane(r3, r0, -1)
	f.Planes[FrustumBottom] = plane(r3, r1, 1)
	f.Planes[FrustumTop] = plane(r3, r1, -1)
	f.Planes[FrustumNear] = plane(r3, r2, 1)
	f.Planes[FrustumFar] = plane(r3, r2, -1)

	for i := range f.Planes {
		p := &f.Planes[i]
		l := float32(math.Sqrt(float64(p.Normal.Dot(p.Normal))))
		if l > 0 {
			p.Normal = p.Normal.Scale(1 / l)
			p.D /= l
		}
	}
	return f
}

// ContainsBox classifies an axis-aligned box against the frustum.
func (f *Frustum) ContainsBox(b BBox) Containment {
	result := Contains
	for _, p := range f.Planes {
		// Corner furthest along the plane normal, and the one opposite it.
		pos, neg := b.Min, b.Max
		if p.Normal.X >= 0 {
			pos.X, neg.X = b.Max.X, b.Min.X
		}
		if p.Normal.Y >= 0 {
			pos.Y, neg.Y = b.Max.Y, b.Min.Y
		}
		if p.Normal.Z >= 0 {
			pos.Z, neg.Z = b.Max.Z, b.Min.Z
		}
		if p.Distance(pos) < 0 {
			return Disjoint
		}
		if p.Distance(neg) < 0 {
			result = Intersects
		}
	}
	return result
}

// ContainsPoint reports whether v is inside or on the frustum.
func (f *Frustum) ContainsPoint(v Vec3) bool {
	for _, p := range f.Planes {
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}
