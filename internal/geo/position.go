// Package geo handles geographic positions, map projections and local tangent frames.
package geo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
)

// Earth constants shared by all projections (metres).
const (
	EquatorialRadius        = 6378137.0
	EquatorialCircumference = 2 * math.Pi * EquatorialRadius
)

// GeoPosition is a WGS84 latitude/longitude in degrees with an altitude in metres.
type GeoPosition struct {
	Latitude  float64 `yaml:"lat" json:"lat"`
	Longitude float64 `yaml:"lon" json:"lon"`
	Altitude  float64 `yaml:"alt,omitempty" json:"alt,omitempty"`
}

// NewGeoPosition returns a position at the given latitude, longitude and altitude.
func NewGeoPosition(lat, lon, alt float64) GeoPosition {
	return GeoPosition{Latitude: lat, Longitude: lon, Altitude: alt}
}

// Point returns the position as an orb point (lon, lat).
func (p GeoPosition) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// Valid reports whether latitude and longitude are inside the WGS84 ranges.
func (p GeoPosition) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180 &&
		!math.IsNaN(p.Altitude)
}

func (p GeoPosition) String() string {
	return fmt.Sprintf("%.7f,%.7f,%.2f", p.Latitude, p.Longitude, p.Altitude)
}

// FromPoint builds a position from an orb point.
func FromPoint(pt orb.Point, alt float64) GeoPosition {
	return GeoPosition{Latitude: pt.Lat(), Longitude: pt.Lon(), Altitude: alt}
}

// TangentFrame is a local east/north/up basis anchored at a world position.
type TangentFrame struct {
	Position mgl64.Vec3
	XAxis    mgl64.Vec3
	YAxis    mgl64.Vec3
	ZAxis    mgl64.Vec3
}

// Basis returns the rotation matrix whose columns are the frame axes.
func (f TangentFrame) Basis() mgl64.Mat3 {
	return mgl64.Mat3FromCols(f.XAxis, f.YAxis, f.ZAxis)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
