package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxLatitude is the latitude limit of the square Web Mercator world.
const MaxLatitude = 85.05112878

// Mercator is a Web Mercator projection whose world extent is [0, unitScale]
// on both axes. With unitScale set to the equatorial circumference one world
// unit is one metre at the equator.
type Mercator struct {
	unitScale float64
}

// NewMercator returns a Mercator projection with the given world extent.
func NewMercator(unitScale float64) *Mercator {
	return &Mercator{unitScale: unitScale}
}

// Name implements Projection.
func (m *Mercator) Name() string { return "mercator" }

// ProjectPoint implements Projection.
func (m *Mercator) ProjectPoint(p GeoPosition) mgl64.Vec3 {
	lat := clampLatitude(p.Latitude)
	x := (p.Longitude + 180.0) / 360.0 * m.unitScale
	mercatorY := math.Log(math.Tan(math.Pi/4 + toRad(lat)/2))
	y := (mercatorY/(2*math.Pi) + 0.5) * m.unitScale

	return mgl64.Vec3{x, y, p.Altitude}
}

// UnprojectPoint implements Projection.
func (m *Mercator) UnprojectPoint(world mgl64.Vec3) GeoPosition {
	lon, lat := inverseMercator(world.X(), world.Y(), m.unitScale)
	return GeoPosition{Latitude: lat, Longitude: lon, Altitude: world.Z()}
}

// LocalTangentSpace implements Projection. Mercator is flat, so the frame is
// the world basis at the projected point.
func (m *Mercator) LocalTangentSpace(p GeoPosition) TangentFrame {
	return planarFrame(m.ProjectPoint(p))
}

// ScaleFactor implements Projection. Mercator stretches distances by
// 1/cos(lat), which equals cosh of the Mercator y coordinate.
func (m *Mercator) ScaleFactor(world mgl64.Vec3) float64 {
	return math.Cosh(2 * math.Pi * (world.Y()/m.unitScale - 0.5))
}

// inverseMercator converts world coordinates (0..size) to WGS84 lon/lat.
//
// It maps x (0 to size) to the longitude range [-180, 180]
// and applies an inverse Mercator projection for latitude.
func inverseMercator(x, y, size float64) (lon, lat float64) {
	// x: [0..size] -> lon: [-180..180]
	longitudeScale := 360.0 / size
	lon = x*longitudeScale - 180.0

	// y: [0..size] -> mercatorY: [-PI..PI]
	mercatorScale := (2.0 * math.Pi) / size
	mercatorY := y*mercatorScale - math.Pi

	latRad := (2.0 * math.Atan(math.Exp(mercatorY))) - (math.Pi * 0.5)

	return lon, clampLatitude(toDeg(latRad))
}

func clampLatitude(lat float64) float64 {
	if lat > MaxLatitude {
		return MaxLatitude
	} else if lat < -MaxLatitude {
		return -MaxLatitude
	}

	return lat
}

// Equirectangular maps longitude and latitude linearly to x and y.
type Equirectangular struct {
	unitScale float64
}

// NewEquirectangular returns an equirectangular projection whose x extent is unitScale.
func NewEquirectangular(unitScale float64) *Equirectangular {
	return &Equirectangular{unitScale: unitScale}
}

// Name implements Projection.
func (e *Equirectangular) Name() string { return "equirectangular" }

// ProjectPoint implements Projection.
func (e *Equirectangular) ProjectPoint(p GeoPosition) mgl64.Vec3 {
	return mgl64.Vec3{
		(p.Longitude + 180.0) / 360.0 * e.unitScale,
		(p.Latitude + 90.0) / 180.0 * e.unitScale / 2,
		p.Altitude,
	}
}

// UnprojectPoint implements Projection.
func (e *Equirectangular) UnprojectPoint(world mgl64.Vec3) GeoPosition {
	return GeoPosition{
		Latitude:  world.Y()/(e.unitScale/2)*180.0 - 90.0,
		Longitude: world.X()/e.unitScale*360.0 - 180.0,
		Altitude:  world.Z(),
	}
}

// LocalTangentSpace implements Projection.
func (e *Equirectangular) LocalTangentSpace(p GeoPosition) TangentFrame {
	return planarFrame(e.ProjectPoint(p))
}

// ScaleFactor implements Projection.
func (e *Equirectangular) ScaleFactor(mgl64.Vec3) float64 { return 1 }
