package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is an earth-centred, earth-fixed projection onto a sphere.
type Sphere struct {
	radius float64
}

// NewSphere returns a spherical projection of the given radius.
func NewSphere(radius float64) *Sphere {
	return &Sphere{radius: radius}
}

// Name implements Projection.
func (s *Sphere) Name() string { return "sphere" }

// ProjectPoint implements Projection.
func (s *Sphere) ProjectPoint(p GeoPosition) mgl64.Vec3 {
	r := s.radius + p.Altitude
	lat, lon := toRad(p.Latitude), toRad(p.Longitude)
	cosLat := math.Cos(lat)

	return mgl64.Vec3{
		cosLat * math.Cos(lon) * r,
		cosLat * math.Sin(lon) * r,
		math.Sin(lat) * r,
	}
}

// UnprojectPoint implements Projection.
func (s *Sphere) UnprojectPoint(world mgl64.Vec3) GeoPosition {
	r := world.Len()
	if r == 0 {
		return GeoPosition{Altitude: -s.radius}
	}

	return GeoPosition{
		Latitude:  toDeg(math.Asin(world.Z() / r)),
		Longitude: toDeg(math.Atan2(world.Y(), world.X())),
		Altitude:  r - s.radius,
	}
}

// LocalTangentSpace implements Projection.
func (s *Sphere) LocalTangentSpace(p GeoPosition) TangentFrame {
	f := enuFrame(p)
	f.Position = s.ProjectPoint(p)
	return f
}

// ScaleFactor implements Projection.
func (s *Sphere) ScaleFactor(mgl64.Vec3) float64 { return 1 }

// Ellipsoid is the WGS84 earth-centred, earth-fixed projection.
type Ellipsoid struct {
	a  float64 // semi-major axis
	e2 float64 // first eccentricity squared
}

// NewEllipsoid returns the WGS84 ellipsoid projection.
func NewEllipsoid() *Ellipsoid {
	const f = 1 / 298.257223563
	return &Ellipsoid{a: EquatorialRadius, e2: f * (2 - f)}
}

// Name implements Projection.
func (e *Ellipsoid) Name() string { return "ellipsoid" }

// ProjectPoint implements Projection.
func (e *Ellipsoid) ProjectPoint(p GeoPosition) mgl64.Vec3 {
	lat, lon := toRad(p.Latitude), toRad(p.Longitude)
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := e.primeVertical(sinLat)

	return mgl64.Vec3{
		(n + p.Altitude) * cosLat * math.Cos(lon),
		(n + p.Altitude) * cosLat * math.Sin(lon),
		(n*(1-e.e2) + p.Altitude) * sinLat,
	}
}

// UnprojectPoint implements Projection.
func (e *Ellipsoid) UnprojectPoint(world mgl64.Vec3) GeoPosition {
	x, y, z := world.X(), world.Y(), world.Z()
	lon := math.Atan2(y, x)
	rho := math.Hypot(x, y)

	if rho < 1e-9 {
		b := e.a * math.Sqrt(1-e.e2)
		lat := math.Copysign(math.Pi/2, z)
		return GeoPosition{Latitude: toDeg(lat), Longitude: toDeg(lon), Altitude: math.Abs(z) - b}
	}

	lat := math.Atan2(z, rho*(1-e.e2))
	var h float64
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n := e.primeVertical(sinLat)
		h = rho/math.Cos(lat) - n
		lat = math.Atan2(z, rho*(1-e.e2*n/(n+h)))
	}

	return GeoPosition{Latitude: toDeg(lat), Longitude: toDeg(lon), Altitude: h}
}

// LocalTangentSpace implements Projection. The up axis is the geodetic normal.
func (e *Ellipsoid) LocalTangentSpace(p GeoPosition) TangentFrame {
	f := enuFrame(p)
	f.Position = e.ProjectPoint(p)
	return f
}

// ScaleFactor implements Projection.
func (e *Ellipsoid) ScaleFactor(mgl64.Vec3) float64 { return 1 }

func (e *Ellipsoid) primeVertical(sinLat float64) float64 {
	return e.a / math.Sqrt(1-e.e2*sinLat*sinLat)
}

// enuFrame returns east/north/up axes for a geodetic latitude/longitude.
func enuFrame(p GeoPosition) TangentFrame {
	lat, lon := toRad(p.Latitude), toRad(p.Longitude)
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	return TangentFrame{
		XAxis: mgl64.Vec3{-sinLon, cosLon, 0},
		YAxis: mgl64.Vec3{-cosLon * sinLat, -sinLon * sinLat, cosLat},
		ZAxis: mgl64.Vec3{cosLon * cosLat, sinLon * cosLat, sinLat},
	}
}
