package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BBox is an axis-aligned bounding box.
type BBox struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyBBox returns a box that contains nothing; expanding it by a point yields that point.
func EmptyBBox() BBox {
	inf := math.Inf(1)
	return BBox{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b BBox) IsEmpty() bool {
	return b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() || b.Max.Z() < b.Min.Z()
}

// ExpandByPoint grows the box to include p.
func (b BBox) ExpandByPoint(p mgl64.Vec3) BBox {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing b and o.
func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	return b.ExpandByPoint(o.Min).ExpandByPoint(o.Max)
}

// Size returns the box extent along each axis.
func (b BBox) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Transform returns the bounds of the eight transformed corners.
func (b BBox) Transform(m mgl64.Mat4) BBox {
	if b.IsEmpty() {
		return b
	}

	out := EmptyBBox()
	for i := 0; i < 8; i++ {
		corner := mgl64.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if i&1 != 0 {
			corner[0] = b.Max.X()
		}
		if i&2 != 0 {
			corner[1] = b.Max.Y()
		}
		if i&4 != 0 {
			corner[2] = b.Max.Z()
		}
		out = out.ExpandByPoint(mgl64.TransformCoordinate(corner, m))
	}
	return out
}
