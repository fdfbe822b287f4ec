package math

// BBox is an axis-aligned bounding box.
type BBox struct {
	Min, Max Vec3
}

// Size returns the extent along each axis.
func (b BBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Intersects reports whether two boxes overlap. Touching faces count.
func (b BBox) Intersects(other BBox) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Transform moves the two stored corners through m and re-derives an
// axis-aligned box from their extrema. Under rotation this does not enclose
// the other six corners exactly; callers accept the approximation.
func (b BBox) Transform(m Mat4) BBox {
	lo := m.TransformVec3(b.Min)
	hi := m.TransformVec3(b.Max)
	return BBox{Min: lo.Min(hi), Max: lo.Max(hi)}
}
