// Package report renders map view state as JSON for export and inspection.
package report

import (
	"encoding/json"
	"io"

	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/mapview"
	"github.com/woozymasta/geoanchor/internal/scene"
	"github.com/woozymasta/geoanchor/internal/tile"
)

const mimeJSON = "application/json"

// View summarises a map view.
type View struct {
	Projection string         `json:"projection"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Camera     mapview.Camera `json:"camera"`
	Stats      mapview.Stats  `json:"stats"`
	Tiles      []TileSummary  `json:"tiles"`
	Anchors    []Anchor       `json:"anchors"`
}

// TileSummary is a tile without its objects.
type TileSummary struct {
	Key               string         `json:"key"`
	Center            [3]float64     `json:"center"`
	Objects           int            `json:"objects"`
	Kinds             map[string]int `json:"kinds"`
	MaxGeometryHeight float64        `json:"max_geometry_height"`
	MinGeometryHeight float64        `json:"min_geometry_height"`
}

// Tile is a tile with its placed objects.
type Tile struct {
	TileSummary
	Placed []Object `json:"placed"`
}

// Object is a placed scene node.
type Object struct {
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	Position      [3]float64 `json:"position"`
	Rotation      [9]float64 `json:"rotation"`
	Scale         float64    `json:"scale"`
	RenderOrder   int        `json:"render_order"`
	CastShadow    bool       `json:"cast_shadow"`
	ReceiveShadow bool       `json:"receive_shadow"`
	Visible       bool       `json:"visible"`
	Material      *Material  `json:"material,omitempty"`
	Bounds        *Bounds    `json:"bounds,omitempty"`
}

// Material is the display material of a placed object.
type Material struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Texture       string  `json:"texture,omitempty"`
	TextureID     string  `json:"texture_id,omitempty"`
	AlphaTest     float64 `json:"alpha_test"`
	PolygonOffset bool    `json:"polygon_offset"`
	HasDepth      bool    `json:"has_depth_material"`
}

// Bounds is a bounding box in tile space.
type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Anchor is a map anchor.
type Anchor struct {
	Name        string          `json:"name"`
	Position    geo.GeoPosition `json:"position"`
	Offset      [3]float64      `json:"offset"`
	Scale       float64         `json:"scale"`
	Overlay     bool            `json:"overlay"`
	RenderOrder int             `json:"render_order"`
	Animation   string          `json:"animation,omitempty"`
	AnimTime    float64         `json:"animation_time,omitempty"`
}

// BuildView summarises v. It must run on the view's event loop.
func BuildView(v *mapview.MapView) View {
	w, h := v.Size()
	out := View{
		Projection: v.Projection().Name(),
		Width:      w,
		Height:     h,
		Camera:     v.Camera(),
		Stats:      v.Stats(),
		Tiles:      make([]TileSummary, 0, v.Tiles().Len()),
		Anchors:    make([]Anchor, 0, v.MapAnchors().Len()),
	}

	for _, t := range v.Tiles().Tiles() {
		out.Tiles = append(out.Tiles, Summarize(t))
	}

	for _, a := range v.MapAnchors().Items() {
		ar := Anchor{
			Name:        a.Node.Name,
			Position:    a.Position,
			Offset:      a.Node.Position,
			Scale:       a.Node.Scale,
			Overlay:     a.Overlay,
			RenderOrder: a.RenderOrder,
		}
		if a.Mixer != nil {
			if actions := a.Mixer.Actions(); len(actions) > 0 {
				ar.Animation = actions[0].Clip.Name
				ar.AnimTime = actions[0].Time
			}
		}
		out.Anchors = append(out.Anchors, ar)
	}

	return out
}

// Summarize returns the tile without its objects.
func Summarize(t *tile.Tile) TileSummary {
	kinds := make(map[string]int)
	for _, k := range t.Kinds() {
		kinds[string(k)] = len(t.ObjectsOfKind(k))
	}

	return TileSummary{
		Key:               geo.FormatTileKey(t.Key),
		Center:            t.Center,
		Objects:           len(t.Objects),
		Kinds:             kinds,
		MaxGeometryHeight: t.MaxGeometryHeight,
		MinGeometryHeight: t.MinGeometryHeight,
	}
}

// Detail returns the tile with all placed objects.
func Detail(t *tile.Tile) Tile {
	out := Tile{TileSummary: Summarize(t), Placed: make([]Object, 0, len(t.Objects))}
	for _, n := range t.Objects {
		out.Placed = append(out.Placed, object(n))
	}
	return out
}

func object(n *scene.Node) Object {
	o := Object{
		Name:          n.Name,
		Kind:          string(n.Kind),
		Position:      n.Position,
		Rotation:      n.Rotation,
		Scale:         n.Scale,
		RenderOrder:   n.RenderOrder,
		CastShadow:    n.CastShadow,
		ReceiveShadow: n.ReceiveShadow,
		Visible:       n.Visible,
	}

	if m := n.Material; m != nil {
		o.Material = &Material{
			Name:          m.Name,
			Type:          string(m.Type),
			AlphaTest:     m.AlphaTest,
			PolygonOffset: m.PolygonOffset,
			HasDepth:      n.DepthMaterial != nil,
		}
		if m.Map != nil {
			o.Material.Texture = m.Map.Name
			o.Material.TextureID = m.Map.ID()
		}
	}

	if b := n.LocalBounds().Transform(n.Transform()); !b.IsEmpty() {
		o.Bounds = &Bounds{Min: b.Min, Max: b.Max}
	}

	return o
}

// Textures returns every decoded texture referenced by objects in the view,
// keyed by texture ID.
func Textures(v *mapview.MapView) map[string]*scene.Texture {
	out := make(map[string]*scene.Texture)
	collect := func(n *scene.Node) {
		for _, m := range []*scene.Material{n.Material, n.DepthMaterial} {
			if m != nil && m.Map != nil && m.Map.Image != nil {
				out[m.Map.ID()] = m.Map
			}
		}
	}

	for _, t := range v.Tiles().Tiles() {
		for _, n := range t.Objects {
			n.Traverse(collect)
		}
	}
	for _, a := range v.MapAnchors().Items() {
		a.Node.Traverse(collect)
	}

	return out
}

// Encode writes v as JSON. Minified output is passed through the JSON minifier.
func Encode(w io.Writer, v any, minified bool) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if minified {
		m := minify.New()
		m.AddFunc(mimeJSON, mjson.Minify)
		data, err = m.Bytes(mimeJSON, data)
		if err != nil {
			return err
		}
	}

	_, err = w.Write(data)
	return err
}
