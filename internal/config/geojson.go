package config

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// AnchorsFromGeoJSON converts point features into anchors. Recognised
// properties are name, model, mode, kind, alt, scale, render_order, animate
// and overlay. Non point features are skipped.
func AnchorsFromGeoJSON(data []byte) ([]Anchor, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	anchors := make([]Anchor, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}

		p := f.Properties
		a := Anchor{
			Name:        p.MustString("name", ""),
			Model:       p.MustString("model", ""),
			Mode:        p.MustString("mode", ""),
			Kind:        p.MustString("kind", ""),
			Lat:         pt.Lat(),
			Lon:         pt.Lon(),
			Alt:         p.MustFloat64("alt", 0),
			Scale:       p.MustFloat64("scale", 0),
			RenderOrder: p.MustInt("render_order", 0),
			Animate:     p.MustBool("animate", false),
			Overlay:     p.MustBool("overlay", false),
		}
		if a.Name == "" {
			if id, ok := f.ID.(string); ok {
				a.Name = id
			}
		}

		anchors = append(anchors, a)
	}

	return anchors, nil
}

// AnchorsToGeoJSON renders anchors as a feature collection of points.
func AnchorsToGeoJSON(anchors []Anchor) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, a := range anchors {
		f := geojson.NewFeature(orb.Point{a.Lon, a.Lat})
		f.Properties["name"] = a.Name
		f.Properties["model"] = a.Model
		if a.Kind != "" {
			f.Properties["kind"] = a.Kind
		}
		if a.Mode != "" {
			f.Properties["mode"] = a.Mode
		}
		if a.Alt != 0 {
			f.Properties["alt"] = a.Alt
		}
		if a.Scale != 0 {
			f.Properties["scale"] = a.Scale
		}
		if a.RenderOrder != 0 {
			f.Properties["render_order"] = a.RenderOrder
		}
		if a.Animate {
			f.Properties["animate"] = true
		}
		if a.Overlay {
			f.Properties["overlay"] = true
		}
		fc.Append(f)
	}
	return fc
}
