package anchor

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/scene"
	"github.com/woozymasta/geoanchor/internal/tile"
)

var testPositions = []geo.GeoPosition{
	geo.NewGeoPosition(1.278676, 103.850216, 0),
	geo.NewGeoPosition(40.70497091, -74.0135, 15),
	geo.NewGeoPosition(36.1295042, -5.3883195, 120),
	geo.NewGeoPosition(-54.8, -68.3, 0),
}

var testProjections = []geo.Projection{
	geo.MercatorProjection,
	geo.EquirectangularProjection,
	geo.SphereProjection,
	geo.EllipsoidProjection,
}

func meshNode(name string, height float64) *scene.Node {
	n := scene.NewNode(name)
	n.Mesh = &scene.Mesh{
		Name:       name,
		Primitives: 1,
		Bounds:     scene.EmptyBBox().ExpandByPoint(mgl64.Vec3{-5, -5, 0}).ExpandByPoint(mgl64.Vec3{5, 5, height}),
	}
	n.Material = &scene.Material{Name: name, Type: scene.MaterialStandard, Map: &scene.Texture{Name: name + ".png"}}
	return n
}

func loaded(children ...*scene.Node) asset.Result {
	root := scene.NewNode("model.glb")
	root.Add(children...)
	return asset.Result{Name: "model.glb", Scene: root}
}

func newTile(proj geo.Projection, pos geo.GeoPosition, updates *int) *tile.Tile {
	return tile.New(geo.TileAt(pos, 16), proj, tile.UpdateFunc(func() { *updates++ }))
}

func quietResolver() *Resolver {
	return NewResolver().WithLogger(zerolog.Nop())
}

func TestDisplacementIsRelativeToTileCenter(t *testing.T) {
	for _, proj := range testProjections {
		for _, pos := range testPositions {
			updates := 0
			tl := newTile(proj, pos, &updates)

			p, err := quietResolver().Place(tl, pos, loaded(meshNode("a", 10)), DefaultOptions())
			require.NoError(t, err)

			want := proj.LocalTangentSpace(pos).Position.Sub(tl.Center)
			assert.Equal(t, want, p.Nodes[0].Position, "%s %s", proj.Name(), pos)
			assert.Equal(t, want, p.Transform.Displacement)
		}
	}
}

func TestRotationIsOrthonormal(t *testing.T) {
	for _, proj := range testProjections {
		for _, pos := range testPositions {
			tr := ComputeTransform(proj, pos, mgl64.Vec3{})
			r := tr.Rotation
			for i := 0; i < 3; i++ {
				assert.InDelta(t, 1.0, r.Col(i).Len(), 1e-12)
				for j := i + 1; j < 3; j++ {
					assert.InDelta(t, 0.0, r.Col(i).Dot(r.Col(j)), 1e-12)
				}
			}
			assert.InDelta(t, 1.0, r.Det(), 1e-12, "%s %s", proj.Name(), pos)
		}
	}
}

func TestScaleIsUniformAcrossChildren(t *testing.T) {
	pos := geo.NewGeoPosition(60, 10, 0)
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)

	p, err := quietResolver().Place(tl, pos, loaded(meshNode("a", 5), meshNode("b", 8), scene.NewNode("c")), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)

	want := geo.MercatorProjection.ScaleFactor(geo.MercatorProjection.ProjectPoint(pos))
	assert.InDelta(t, 2.0, want, 1e-9)
	for _, n := range p.Nodes {
		assert.Equal(t, want, n.Scale, n.Name)
		assert.Equal(t, p.Transform.Rotation, n.Rotation)
	}
}

func TestFailedLoadLeavesTileUnchanged(t *testing.T) {
	pos := testPositions[0]
	updates := 0
	tl := newTile(geo.SphereProjection, pos, &updates)

	r := quietResolver()
	_, err := r.Place(tl, pos, loaded(meshNode("existing", 3)), DefaultOptions())
	require.NoError(t, err)
	before := len(tl.Objects)
	height := tl.MaxGeometryHeight

	var logBuf bytes.Buffer
	r.WithLogger(zerolog.New(&logBuf))

	res := asset.Parse([]byte("garbage"), "broken.glb")
	require.Error(t, res.Err)

	_, err = r.Place(tl, pos, res, DefaultOptions())
	require.Error(t, err)
	assert.Len(t, tl.Objects, before)
	assert.Equal(t, height, tl.MaxGeometryHeight)
	assert.Equal(t, 1, updates)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, asset.CategoryGLTF, entry["category"])
	assert.Equal(t, "broken.glb", entry["asset"])
}

func TestPreparationFailureRegistersNothing(t *testing.T) {
	pos := testPositions[1]
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)

	res := loaded(meshNode("ok", 3), nil)
	_, err := quietResolver().Place(tl, pos, res, DefaultOptions())
	require.Error(t, err)
	assert.Empty(t, tl.Objects)
	assert.Empty(t, tl.ObjectsOfKind(scene.KindBuilding))
	assert.Zero(t, tl.MaxGeometryHeight)
	assert.Zero(t, updates)
}

func TestFlagsCapturedAtRegistration(t *testing.T) {
	pos := testPositions[2]
	updates := 0
	tl := newTile(geo.EllipsoidProjection, pos, &updates)

	opts := DefaultOptions()
	opts.RenderOrder = 10000
	opts.ShadowsEnabled = true
	opts.Kind = scene.KindLandmark

	r := quietResolver()
	first, err := r.Place(tl, pos, loaded(meshNode("first", 1)), opts)
	require.NoError(t, err)

	opts.RenderOrder = 5
	opts.ShadowsEnabled = false
	second, err := r.Place(tl, pos, loaded(meshNode("second", 1)), opts)
	require.NoError(t, err)

	n1, n2 := first.Nodes[0], second.Nodes[0]
	assert.Equal(t, 10000, n1.RenderOrder)
	assert.True(t, n1.CastShadow)
	assert.True(t, n1.ReceiveShadow)
	assert.Equal(t, 5, n2.RenderOrder)
	assert.False(t, n2.CastShadow)

	assert.Len(t, tl.ObjectsOfKind(scene.KindLandmark), 2)
	assert.Equal(t, []*scene.Node{n1, n2}, tl.Objects)
	assert.Equal(t, 2, updates)
}

func TestMaterialsSubstitutedAndHeightTracked(t *testing.T) {
	pos := geo.NewGeoPosition(40.70497091, -74.0135, 20)
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)

	n := meshNode("tower", 42)
	tex := n.Material.Map
	p, err := quietResolver().Place(tl, pos, loaded(n, scene.NewNode("empty")), DefaultOptions())
	require.NoError(t, err)

	placed := p.Nodes[0]
	require.NotNil(t, placed.Material)
	assert.Equal(t, 0.5, placed.Material.AlphaTest)
	assert.True(t, placed.Material.PolygonOffset)
	assert.Same(t, tex, placed.Material.Map)
	require.NotNil(t, placed.DepthMaterial)
	assert.Same(t, tex, placed.DepthMaterial.Map)
	assert.Equal(t, scene.MaterialDepth, placed.DepthMaterial.Type)

	assert.Nil(t, p.Nodes[1].Material)
	assert.Nil(t, p.Nodes[1].DepthMaterial)

	assert.Equal(t, 62.0, tl.MaxGeometryHeight)
	assert.Equal(t, 0.0, tl.MinGeometryHeight)
}

func TestDisposedTileIsNoop(t *testing.T) {
	pos := testPositions[0]
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)
	tl.Dispose()

	_, err := quietResolver().Place(tl, pos, loaded(meshNode("late", 1)), DefaultOptions())
	assert.ErrorIs(t, err, ErrTileDisposed)
	assert.Empty(t, tl.Objects)
	assert.Zero(t, updates)
}

func TestInvalidInputs(t *testing.T) {
	pos := testPositions[0]
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)
	r := quietResolver()

	_, err := r.Place(tl, geo.NewGeoPosition(95, 0, 0), loaded(meshNode("a", 1)), DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = r.Place(tl, pos, asset.Result{Name: "empty", Scene: scene.NewNode("root")}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrEmptyAsset))
	assert.Empty(t, tl.Objects)
}

func TestSingleNodeIdentityPlacement(t *testing.T) {
	pos := geo.NewGeoPosition(0, 0, 0)
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)

	p, err := quietResolver().Place(tl, pos, loaded(scene.NewNode("solo")), Options{})
	require.NoError(t, err)
	require.Len(t, p.Nodes, 1)

	n := p.Nodes[0]
	raw := geo.MercatorProjection.LocalTangentSpace(pos).Position
	assert.Equal(t, raw.Sub(tl.Center), n.Position)
	assert.Equal(t, 1.0, n.Scale)
	assert.Equal(t, mgl64.Ident3(), n.Rotation)
	assert.Equal(t, scene.KindBuilding, n.Kind)
	assert.Equal(t, 1, updates)
}

func TestModelScaleAppliedOncePerLoad(t *testing.T) {
	pos := geo.NewGeoPosition(60, 10, 5)
	updates := 0
	tl := newTile(geo.MercatorProjection, pos, &updates)

	opts := DefaultOptions()
	opts.ModelScale = 10
	p, err := quietResolver().Place(tl, pos, loaded(meshNode("a", 4), meshNode("b", 2)), opts)
	require.NoError(t, err)

	want := 10 * p.Transform.Scale
	for _, n := range p.Nodes {
		assert.InDelta(t, want, n.Scale, 1e-9, n.Name)
	}
	assert.Equal(t, 45.0, tl.MaxGeometryHeight)
	assert.Equal(t, 0.0, tl.MinGeometryHeight)
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	pos := testPositions[1]
	updates := 0
	tl := newTile(geo.SphereProjection, pos, &updates)

	p, err := quietResolver().Place(tl, pos, loaded(meshNode("bare", 3)), Options{})
	require.NoError(t, err)

	n := p.Nodes[0]
	require.NotNil(t, n.Material)
	assert.Equal(t, scene.DefaultSubstitution.AlphaTest, n.Material.AlphaTest)
	assert.True(t, n.Material.PolygonOffset)
	assert.Equal(t, scene.DefaultSubstitution.PolygonOffsetFactor, n.Material.PolygonOffsetFactor)
	assert.Equal(t, scene.DefaultSubstitution.AlphaTest, n.DepthMaterial.AlphaTest)
	assert.Equal(t, scene.KindBuilding, n.Kind)
	assert.InDelta(t, p.Transform.Scale, n.Scale, 1e-12)
}
