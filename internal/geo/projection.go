package geo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownProjection is returned by ProjectionByName for unsupported names.
var ErrUnknownProjection = errors.New("unknown projection")

// Projection maps geographic positions to world space and defines the local
// tangent space at a position.
type Projection interface {
	Name() string
	ProjectPoint(p GeoPosition) mgl64.Vec3
	UnprojectPoint(world mgl64.Vec3) GeoPosition
	// LocalTangentSpace returns the east/north/up frame at p.
	LocalTangentSpace(p GeoPosition) TangentFrame
	// ScaleFactor is the number of world units per metre at a world position.
	ScaleFactor(world mgl64.Vec3) float64
}

// Shared projection instances.
var (
	MercatorProjection        = NewMercator(EquatorialCircumference)
	EquirectangularProjection = NewEquirectangular(EquatorialCircumference)
	SphereProjection          = NewSphere(EquatorialRadius)
	EllipsoidProjection       = NewEllipsoid()
)

// ProjectionByName resolves a configured projection name.
func ProjectionByName(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mercator", "web-mercator":
		return MercatorProjection, nil
	case "equirectangular", "plate-carree":
		return EquirectangularProjection, nil
	case "sphere", "globe":
		return SphereProjection, nil
	case "ellipsoid", "wgs84", "ecef":
		return EllipsoidProjection, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, name)
	}
}

// planarFrame is the tangent frame of a flat projection: world axes at the projected point.
func planarFrame(pos mgl64.Vec3) TangentFrame {
	return TangentFrame{
		Position: pos,
		XAxis:    mgl64.Vec3{1, 0, 0},
		YAxis:    mgl64.Vec3{0, 1, 0},
		ZAxis:    mgl64.Vec3{0, 0, 1},
	}
}
