package mapview

import (
	"context"
	"errors"

	"github.com/woozymasta/geoanchor/internal/anchor"
	"github.com/woozymasta/geoanchor/internal/animation"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/scene"
)

// PlaceOptions configure PlaceModel.
type PlaceOptions struct {
	Kind scene.Kind
	// Scale is the model size in metres per model unit. Zero means 1.
	Scale float64
	// RenderOrder overrides the view render order when not zero.
	RenderOrder int
	// Done is called on the event loop once the model is placed or failed.
	Done func(*anchor.Placement, error)
}

// PlaceModel loads src asynchronously and registers it with the tile that
// contains pos. The view render order and shadow flags are read when the
// load completes.
func (v *MapView) PlaceModel(ctx context.Context, src string, pos geo.GeoPosition, opts PlaceOptions) {
	t := v.tiles.GetOrCreate(geo.TileAt(pos, v.tileZoom))

	v.loader.LoadAsync(ctx, src, v, func(res asset.Result) {
		aopts := anchor.DefaultOptions()
		if opts.Kind != "" {
			aopts.Kind = opts.Kind
		}
		aopts.RenderOrder = v.renderOrder
		if opts.RenderOrder != 0 {
			aopts.RenderOrder = opts.RenderOrder
		}
		if opts.Scale > 0 {
			aopts.ModelScale = opts.Scale
		}
		aopts.ShadowsEnabled = v.shadowsEnabled

		p, err := v.resolver.Place(t, pos, res, aopts)
		if err == nil {
			v.placements = append(v.placements, p)
		}
		if opts.Done != nil {
			opts.Done(p, err)
		}
	})
}

// AnchorOptions configure AddModelAnchor.
type AnchorOptions struct {
	Name        string
	Scale       float64
	RenderOrder int
	Overlay     bool
	// Animate plays the model's first animation clip.
	Animate bool
	Done    func(*Anchor, error)
}

// AddModelAnchor loads src asynchronously and adds it to MapAnchors at pos.
func (v *MapView) AddModelAnchor(ctx context.Context, src string, pos geo.GeoPosition, opts AnchorOptions) {
	v.loader.LoadAsync(ctx, src, v, func(res asset.Result) {
		if res.Err != nil {
			category := asset.CategoryGLTF
			var pe *asset.ParseError
			if errors.As(res.Err, &pe) {
				category = pe.Category
			}
			v.logger.Error().
				Err(res.Err).
				Str("category", category).
				Str("asset", res.Name).
				Msg("Failed to parse anchor asset")
			if opts.Done != nil {
				opts.Done(nil, res.Err)
			}
			return
		}

		root := res.Scene
		if opts.Name != "" {
			root.Name = opts.Name
		}
		root.Traverse(func(n *scene.Node) { n.RenderOrder = opts.RenderOrder })

		a := &Anchor{
			Node:        root,
			Position:    pos,
			Scale:       opts.Scale,
			Overlay:     opts.Overlay,
			RenderOrder: opts.RenderOrder,
		}
		if opts.Animate && len(res.Animations) > 0 {
			a.Mixer = animation.NewMixer(root)
			a.Mixer.ClipAction(res.Animations[0]).Play()
		}

		v.anchors.Add(a)
		v.Update()

		v.logger.Debug().
			Str("anchor", root.Name).
			Str("position", pos.String()).
			Bool("animated", a.Mixer != nil).
			Msg("Anchor added")

		if opts.Done != nil {
			opts.Done(a, nil)
		}
	})
}
