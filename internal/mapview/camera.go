package mapview

import (
	"math"

	"github.com/woozymasta/geoanchor/internal/geo"
)

// Camera limits.
const (
	MinZoomLevel = 1.0
	MaxZoomLevel = 20.0
	MaxTilt      = 89.0
)

// LookAtParams positions the camera over a target.
type LookAtParams struct {
	Target    geo.GeoPosition `yaml:"target" json:"target"`
	ZoomLevel float64         `yaml:"zoom" json:"zoom"`
	Tilt      float64         `yaml:"tilt" json:"tilt"`
	Heading   float64         `yaml:"heading" json:"heading"`
}

// Camera is the current view state.
type Camera struct {
	Target    geo.GeoPosition `json:"target"`
	ZoomLevel float64         `json:"zoom"`
	Tilt      float64         `json:"tilt"`
	Heading   float64         `json:"heading"`
}

func (p LookAtParams) normalize() Camera {
	heading := math.Mod(p.Heading, 360)
	if heading < 0 {
		heading += 360
	}

	return Camera{
		Target:    p.Target,
		ZoomLevel: math.Max(MinZoomLevel, math.Min(MaxZoomLevel, p.ZoomLevel)),
		Tilt:      math.Max(0, math.Min(MaxTilt, p.Tilt)),
		Heading:   heading,
	}
}
