package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/geoanchor/internal/asset/assettest"
	"github.com/woozymasta/geoanchor/internal/config"
	"github.com/woozymasta/geoanchor/internal/mapview"
	"github.com/woozymasta/geoanchor/internal/scene"
)

const sceneYAML = `
view:
  projection: sphere
  width: 800
  height: 600
  tile_zoom: 16
  shadows: true
camera:
  target: {lat: 40.70398928, lon: -74.01319808}
  zoom: 17
  tilt: 40
anchors:
  - name: tower
    model: tower.glb
    lat: 40.70497091
    lon: -74.0135
    kind: landmark
    scale: 10
    render_order: 500
  - name: guy
    model: tower.glb
    mode: anchor
    lat: 40.7040
    lon: -74.0131
    scale: 10
    animate: true
    overlay: true
  - name: broken
    model: missing.glb
    lat: 40.7041
    lon: -74.0132
`

func loadScene(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	assettest.WriteGLB(t, dir, "tower.glb")
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sceneYAML), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildAndPopulate(t *testing.T) {
	cfg := loadScene(t)
	nop := zerolog.Nop()
	v, err := Build(cfg, nil, &nop)
	require.NoError(t, err)
	assert.Equal(t, "sphere", v.Projection().Name())
	assert.True(t, v.ShadowsEnabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summary := make(chan Summary, 1)
	Populate(ctx, v, cfg, func(s Summary) { summary <- s })
	assert.True(t, v.Animating())
	assert.Equal(t, 17.0, v.Camera().ZoomLevel)

	errCh := make(chan error, 1)
	go func() { errCh <- v.Run(ctx) }()

	var got Summary
	select {
	case got = <-summary:
	case <-time.After(5 * time.Second):
		t.Fatal("models did not load")
	}
	assert.Equal(t, Summary{Placed: 1, Anchored: 1, Failed: 1}, got)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	v.RenderFrame(time.Now())

	require.Equal(t, 1, v.MapAnchors().Len())
	a := v.MapAnchors().Items()[0]
	assert.Equal(t, "guy", a.Node.Name)
	assert.Equal(t, mapview.OverlayRenderOrder, a.Node.RenderOrder)
	require.Len(t, v.Placements(), 1)
	p := v.Placements()[0]
	require.NotEmpty(t, p.Nodes)
	for _, n := range p.Nodes {
		assert.InDelta(t, 10*p.Transform.Scale, n.Scale, 1e-9)
		assert.Equal(t, 500, n.RenderOrder)
		assert.True(t, n.CastShadow)
		assert.Equal(t, scene.KindLandmark, n.Kind)
	}
	tl, ok := v.Tiles().Get(p.Tile)
	require.True(t, ok)
	assert.InDelta(t, 10*assettest.TowerHeight, tl.MaxGeometryHeight, 1e-9)
}

func TestPopulateWithoutAnchors(t *testing.T) {
	cfg, err := config.Parse([]byte("camera: {target: {lat: 1, lon: 2}}"))
	require.NoError(t, err)
	nop := zerolog.Nop()
	v, err := Build(cfg, nil, &nop)
	require.NoError(t, err)

	called := false
	Populate(context.Background(), v, cfg, func(s Summary) {
		called = true
		assert.Zero(t, s)
	})
	assert.True(t, called)
	assert.False(t, v.Animating())
}

func TestBuildUnknownProjection(t *testing.T) {
	cfg := &config.Config{View: config.View{Projection: "robinson"}}
	_, err := Build(cfg, nil, nil)
	assert.Error(t, err)
}
