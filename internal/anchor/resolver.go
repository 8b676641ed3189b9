// Package anchor places loaded models at geographic positions inside map tiles.
package anchor

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/scene"
	"github.com/woozymasta/geoanchor/internal/tile"
)

// Errors returned by Place.
var (
	ErrTileDisposed    = errors.New("tile disposed")
	ErrInvalidPosition = errors.New("invalid geo position")
	ErrEmptyAsset      = errors.New("asset has no nodes")
)

// Options is the placement context captured when objects are registered.
// Later changes to the view do not propagate to registered objects.
// Zero Kind, ModelScale and Substitution fall back to their defaults.
type Options struct {
	Kind           scene.Kind
	RenderOrder    int
	ShadowsEnabled bool
	Substitution   scene.SubstituteOptions

	// ModelScale is the model size in metres per model unit. It multiplies
	// the projection scale of every child and the tile height range.
	ModelScale float64
}

// DefaultOptions registers buildings at model scale 1 with the default
// material substitution.
func DefaultOptions() Options {
	return Options{
		Kind:         scene.KindBuilding,
		Substitution: scene.DefaultSubstitution,
		ModelScale:   1,
	}
}

func (o Options) withDefaults() Options {
	if o.Kind == "" {
		o.Kind = scene.KindBuilding
	}
	if o.Substitution == (scene.SubstituteOptions{}) {
		o.Substitution = scene.DefaultSubstitution
	}
	if o.ModelScale <= 0 || math.IsNaN(o.ModelScale) || math.IsInf(o.ModelScale, 0) {
		o.ModelScale = 1
	}
	return o
}

// Transform is the tile-local placement of one geo position.
type Transform struct {
	Frame        geo.TangentFrame
	Displacement mgl64.Vec3
	Scale        float64
	Rotation     mgl64.Mat3
}

// ComputeTransform resolves pos in the tangent space of proj relative to a
// tile centre.
func ComputeTransform(proj geo.Projection, pos geo.GeoPosition, center mgl64.Vec3) Transform {
	frame := proj.LocalTangentSpace(pos)
	return Transform{
		Frame:        frame,
		Displacement: frame.Position.Sub(center),
		Scale:        proj.ScaleFactor(frame.Position),
		Rotation:     frame.Basis(),
	}
}

func (t Transform) finite() bool {
	for _, v := range t.Displacement {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !math.IsNaN(t.Scale) && !math.IsInf(t.Scale, 0) && t.Scale > 0
}

// Placement describes the objects registered by one successful Place call.
type Placement struct {
	Tile      geo.TileKey
	Position  geo.GeoPosition
	Transform Transform
	Nodes     []*scene.Node
	Kind      scene.Kind
}

// Resolver places asset results into tiles. It must be used from the
// goroutine that owns the tiles.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver returns a resolver logging through the global logger.
func NewResolver() *Resolver {
	return &Resolver{logger: log.Logger}
}

// WithLogger replaces the resolver logger.
func (r *Resolver) WithLogger(l zerolog.Logger) *Resolver {
	r.logger = l
	return r
}

type prepared struct {
	node             *scene.Node
	display, depth   *scene.Material
	minH, maxH       float64
	contributeHeight bool
}

// Place registers the children of res.Scene with t at pos. Nothing is
// registered when res failed, the tile is disposed, or any node cannot be
// prepared.
func (r *Resolver) Place(t *tile.Tile, pos geo.GeoPosition, res asset.Result, opts Options) (*Placement, error) {
	if res.Err != nil {
		var pe *asset.ParseError
		category := asset.CategoryGLTF
		if errors.As(res.Err, &pe) {
			category = pe.Category
		}
		r.logger.Error().
			Err(res.Err).
			Str("category", category).
			Str("asset", res.Name).
			Str("tile", geo.FormatTileKey(t.Key)).
			Msg("Failed to parse asset")
		return nil, res.Err
	}

	if t.Disposed() {
		r.logger.Warn().
			Str("asset", res.Name).
			Str("tile", geo.FormatTileKey(t.Key)).
			Msg("Tile disposed before asset load completed, skipping")
		return nil, ErrTileDisposed
	}

	if !pos.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}
	if res.Scene == nil || len(res.Scene.Children) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAsset, res.Name)
	}

	opts = opts.withDefaults()

	tr := ComputeTransform(t.Projection, pos, t.Center)
	if !tr.finite() {
		return nil, fmt.Errorf("%w: %s has no finite placement", ErrInvalidPosition, pos)
	}

	items, err := prepare(res.Scene.Children, pos, opts)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("category", asset.CategoryGLTF).
			Str("asset", res.Name).
			Msg("Failed to prepare asset nodes")
		return nil, err
	}

	placed := make([]*scene.Node, 0, len(items))
	for _, it := range items {
		n := it.node
		n.Position = tr.Displacement
		n.Scale = tr.Scale * opts.ModelScale
		n.Rotation = tr.Rotation
		n.RenderOrder = opts.RenderOrder
		n.CastShadow = opts.ShadowsEnabled
		n.ReceiveShadow = opts.ShadowsEnabled
		if it.display != nil {
			n.Material = it.display
			n.DepthMaterial = it.depth
		}

		t.Register(n, opts.Kind)
		if it.contributeHeight {
			t.ExpandHeight(it.minH, it.maxH)
		}
		t.Append(n)
		placed = append(placed, n)
	}

	t.RequestUpdate()

	r.logger.Debug().
		Str("asset", res.Name).
		Str("tile", geo.FormatTileKey(t.Key)).
		Str("position", pos.String()).
		Float64("scale", tr.Scale*opts.ModelScale).
		Int("nodes", len(placed)).
		Msg("Asset placed")

	return &Placement{
		Tile:      t.Key,
		Position:  pos,
		Transform: tr,
		Nodes:     placed,
		Kind:      opts.Kind,
	}, nil
}

// prepare builds the substituted materials and height ranges of every node
// before any tile is touched.
func prepare(children []*scene.Node, pos geo.GeoPosition, opts Options) ([]prepared, error) {
	items := make([]prepared, 0, len(children))
	for i, n := range children {
		if n == nil {
			return nil, fmt.Errorf("node %d is nil", i)
		}

		it := prepared{node: n}
		if n.Material != nil {
			it.display, it.depth = scene.SubstituteMaterial(n.Material, n.Material.Map, opts.Substitution)
		}

		if n.HasMesh() {
			b := n.LocalBounds()
			if !b.IsEmpty() {
				it.minH = pos.Altitude + b.Min.Z()*opts.ModelScale
				it.maxH = pos.Altitude + b.Max.Z()*opts.ModelScale
				it.contributeHeight = true
			}
		}

		items = append(items, it)
	}
	return items, nil
}
