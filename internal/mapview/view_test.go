package mapview

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/geoanchor/internal/anchor"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/asset/assettest"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/scene"
)

func newView(t *testing.T, opts Options) *MapView {
	t.Helper()
	nop := zerolog.Nop()
	opts.Logger = &nop
	v, err := New(opts)
	require.NoError(t, err)
	return v
}

// waitTasks runs posted functions until n have run.
func waitTasks(t *testing.T, v *MapView, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for n > 0 {
		select {
		case fn := <-v.tasks:
			fn()
			n--
		case <-deadline:
			t.Fatal("timed out waiting for posted tasks")
		}
	}
}

func TestResizeAndLookAt(t *testing.T) {
	v := newView(t, Options{Width: 800, Height: 600})
	w, h := v.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	assert.ErrorIs(t, v.Resize(0, 10), ErrInvalidSize)

	changed := 0
	v.On(EventCameraChanged, func(Event) { changed++ })
	v.LookAt(LookAtParams{Target: geo.NewGeoPosition(1.278676, 103.850216, 0), ZoomLevel: 25, Tilt: 120, Heading: -40})

	cam := v.Camera()
	assert.Equal(t, MaxZoomLevel, cam.ZoomLevel)
	assert.Equal(t, MaxTilt, cam.Tilt)
	assert.Equal(t, 320.0, cam.Heading)
	assert.Equal(t, 1, changed)
	assert.True(t, v.NeedsRender())

	_, err := New(Options{Width: -1, Height: 1})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRenderEventsAndAnimation(t *testing.T) {
	v := newView(t, Options{})

	var deltas []float64
	id := v.On(EventRender, func(ev Event) { deltas = append(deltas, ev.Delta) })

	base := time.Unix(100, 0)
	v.Update()
	v.RenderFrame(base)
	assert.False(t, v.NeedsRender())

	v.BeginAnimation()
	v.RenderFrame(base.Add(500 * time.Millisecond))
	assert.True(t, v.NeedsRender())
	v.EndAnimation()
	v.EndAnimation()
	assert.False(t, v.Animating())

	assert.Equal(t, []float64{0, 0.5}, deltas)
	assert.Equal(t, 2, v.Stats().Frames)

	assert.True(t, v.Off(EventRender, id))
	assert.False(t, v.Off(EventRender, id))
	v.RenderFrame(base.Add(time.Second))
	assert.Len(t, deltas, 2)
}

func TestPlaceModelRegistersWithTile(t *testing.T) {
	path := assettest.WriteGLB(t, t.TempDir(), "tower.glb")
	v := newView(t, Options{RenderOrder: 10000, ShadowsEnabled: true})

	pos := geo.NewGeoPosition(40.70497091, -74.0135, 0)
	var placement *anchor.Placement
	var placeErr error
	v.PlaceModel(context.Background(), path, pos, PlaceOptions{
		Kind: scene.KindLandmark,
		Done: func(p *anchor.Placement, err error) { placement, placeErr = p, err },
	})
	waitTasks(t, v, 1)

	require.NoError(t, placeErr)
	require.NotNil(t, placement)

	tl, ok := v.Tiles().Get(geo.TileAt(pos, 16))
	require.True(t, ok)
	require.Len(t, tl.Objects, 1)
	n := tl.Objects[0]
	assert.Equal(t, 10000, n.RenderOrder)
	assert.True(t, n.CastShadow)
	assert.Equal(t, scene.KindLandmark, n.Kind)
	assert.Equal(t, float64(assettest.TowerHeight), tl.MaxGeometryHeight)
	assert.Len(t, v.Placements(), 1)
	assert.True(t, v.NeedsRender())
}

func TestPlaceModelIntoEvictedTile(t *testing.T) {
	path := assettest.WriteGLB(t, t.TempDir(), "tower.glb")
	v := newView(t, Options{TileCacheSize: 1})

	first := geo.NewGeoPosition(1.278676, 103.850216, 0)
	var placeErr error
	v.PlaceModel(context.Background(), path, first, PlaceOptions{
		Done: func(_ *anchor.Placement, err error) { placeErr = err },
	})
	// a tile far away evicts the first before the load completes
	v.Tiles().GetOrCreate(geo.TileAt(geo.NewGeoPosition(-33.86, 151.2, 0), 16))

	waitTasks(t, v, 1)
	assert.ErrorIs(t, placeErr, anchor.ErrTileDisposed)
	assert.Empty(t, v.Placements())
}

func TestPlaceModelParseFailure(t *testing.T) {
	v := newView(t, Options{})
	var placeErr error
	v.PlaceModel(context.Background(), "/nonexistent/model.glb", geo.NewGeoPosition(0, 0, 0), PlaceOptions{
		Done: func(_ *anchor.Placement, err error) { placeErr = err },
	})
	waitTasks(t, v, 1)

	var pe *asset.ParseError
	require.ErrorAs(t, placeErr, &pe)
	tl, ok := v.Tiles().Get(geo.TileAt(geo.NewGeoPosition(0, 0, 0), 16))
	require.True(t, ok)
	assert.Empty(t, tl.Objects)
}

func TestAnimatedAnchorFollowsFrames(t *testing.T) {
	path := assettest.WriteGLB(t, t.TempDir(), "walking.glb")
	v := newView(t, Options{})
	target := geo.NewGeoPosition(40.70398928, -74.01319808, 0)
	v.LookAt(LookAtParams{Target: target, ZoomLevel: 17, Tilt: 40})

	pos := geo.NewGeoPosition(40.70497091, -74.0135, 0)
	var added *Anchor
	v.AddModelAnchor(context.Background(), path, pos, AnchorOptions{
		Name:        "guy",
		Scale:       10,
		RenderOrder: 10000,
		Overlay:     true,
		Animate:     true,
		Done:        func(a *Anchor, err error) { require.NoError(t, err); added = a },
	})
	waitTasks(t, v, 1)
	require.NotNil(t, added)
	require.NotNil(t, added.Mixer)
	assert.Equal(t, 1, v.MapAnchors().Len())

	base := time.Unix(0, 0)
	v.BeginAnimation()
	v.RenderFrame(base)
	v.RenderFrame(base.Add(time.Second))

	want := anchor.ComputeTransform(v.Projection(), pos, v.Projection().ProjectPoint(target))
	assert.Equal(t, want.Displacement, added.Node.Position)
	assert.InDelta(t, want.Scale*10, added.Node.Scale, 1e-9)
	assert.Equal(t, 10000, added.Node.RenderOrder)
	assert.Equal(t, "guy", added.Node.Name)

	action := added.Mixer.Actions()[0]
	assert.Equal(t, "walk", action.Clip.Name)
	assert.InDelta(t, 1.0, action.Time, 1e-9)

	assert.True(t, v.MapAnchors().Remove(added))
	assert.Zero(t, v.MapAnchors().Len())
}

func TestRunProcessesPostedTasks(t *testing.T) {
	v := newView(t, Options{FPS: 120})
	ctx, cancel := context.WithCancel(context.Background())

	rendered := make(chan struct{}, 1)
	v.On(EventRender, func(Event) {
		select {
		case rendered <- struct{}{}:
		default:
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- v.Run(ctx) }()

	v.Post(func() { v.Update() })

	select {
	case <-rendered:
	case <-time.After(5 * time.Second):
		t.Fatal("no frame rendered")
	}

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// posting after shutdown must not block
	v.Post(func() {})
	v.Post(func() {})
	assert.GreaterOrEqual(t, v.Drain(), 0)
}

func TestOverlayAnchorRenderOrder(t *testing.T) {
	v := newView(t, Options{})
	pos := geo.NewGeoPosition(36.1295042, -5.3883195, 0)
	v.LookAt(LookAtParams{Target: pos, ZoomLevel: 15})

	label := scene.NewNode("label")
	label.Add(scene.NewNode("text"))
	ground := scene.NewNode("ground")
	v.MapAnchors().Add(
		&Anchor{Node: label, Position: pos, Overlay: true},
		&Anchor{Node: ground, Position: pos, RenderOrder: 5},
	)
	v.RenderFrame(time.Unix(0, 0))

	assert.Equal(t, OverlayRenderOrder, label.RenderOrder)
	assert.Equal(t, OverlayRenderOrder, label.Children[0].RenderOrder)
	assert.Equal(t, 5, ground.RenderOrder)
	assert.Equal(t, mgl64.Vec3{}, ground.Position)
}
