// Package mapview is a headless map view: camera, tiles, anchored models and
// a single-threaded render loop.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geoanchor/internal/anchor"
	"github.com/woozymasta/geoanchor/internal/animation"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/tile"
)

// ErrInvalidSize is returned by Resize for non positive dimensions.
var ErrInvalidSize = errors.New("invalid view size")

// Options configure a MapView.
type Options struct {
	Projection     geo.Projection
	Loader         *asset.Loader
	Logger         *zerolog.Logger
	Width          int
	Height         int
	TileZoom       int
	TileCacheSize  int
	FPS            int
	RenderOrder    int
	ShadowsEnabled bool
}

// MapView owns the camera, the tile cache and the anchored objects. All
// methods except Post must be called from the goroutine running Run, or
// before Run starts.
type MapView struct {
	logger   zerolog.Logger
	proj     geo.Projection
	tiles    *tile.Cache
	resolver *anchor.Resolver
	loader   *asset.Loader
	anchors  *MapAnchors
	handlers map[EventName][]handlerEntry
	tasks    chan func()
	done     chan struct{}
	doneOnce sync.Once

	placements []*anchor.Placement
	camera     Camera
	clock      animation.Clock
	stats      Stats

	width, height  int
	tileZoom       int
	fps            int
	renderOrder    int
	animating      int
	frame          int
	nextHandlerID  int
	shadowsEnabled bool
	updatePending  bool
}

// New creates a map view. Zero options fall back to Mercator, zoom 16
// tiles, 256 cached tiles and 60 fps.
func New(opts Options) (*MapView, error) {
	if opts.Projection == nil {
		opts.Projection = geo.MercatorProjection
	}
	if opts.TileZoom <= 0 {
		opts.TileZoom = 16
	}
	if opts.TileCacheSize <= 0 {
		opts.TileCacheSize = 256
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Loader == nil {
		opts.Loader = asset.NewLoader(nil, 4)
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	v := &MapView{
		logger:         logger,
		proj:           opts.Projection,
		resolver:       anchor.NewResolver().WithLogger(logger),
		loader:         opts.Loader,
		anchors:        &MapAnchors{},
		handlers:       make(map[EventName][]handlerEntry),
		tasks:          make(chan func(), 64),
		done:           make(chan struct{}),
		tileZoom:       opts.TileZoom,
		fps:            opts.FPS,
		renderOrder:    opts.RenderOrder,
		shadowsEnabled: opts.ShadowsEnabled,
	}
	v.tiles = tile.NewCache(opts.TileCacheSize, opts.Projection, v).WithLogger(logger)

	if opts.Width != 0 || opts.Height != 0 {
		if err := v.Resize(opts.Width, opts.Height); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Projection returns the view projection.
func (v *MapView) Projection() geo.Projection { return v.proj }

// Tiles returns the view's tile cache.
func (v *MapView) Tiles() *tile.Cache { return v.tiles }

// MapAnchors returns the anchored object collection.
func (v *MapView) MapAnchors() *MapAnchors { return v.anchors }

// Camera returns the current camera state.
func (v *MapView) Camera() Camera { return v.camera }

// Stats returns frame statistics.
func (v *MapView) Stats() Stats { return v.stats }

// Size returns the viewport size in pixels.
func (v *MapView) Size() (int, int) { return v.width, v.height }

// Placements returns every successful tile placement, oldest first.
func (v *MapView) Placements() []*anchor.Placement { return v.placements }

// ShadowsEnabled reports whether newly placed objects cast and receive shadows.
func (v *MapView) ShadowsEnabled() bool { return v.shadowsEnabled }

// SetShadowsEnabled changes the shadow flags used for future placements.
func (v *MapView) SetShadowsEnabled(enabled bool) {
	v.shadowsEnabled = enabled
	v.Update()
}

// Resize sets the viewport size.
func (v *MapView) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	v.width, v.height = width, height
	v.emit(Event{Name: EventResize, Frame: v.frame})
	v.Update()
	return nil
}

// LookAt moves the camera. Zoom and tilt are clamped and heading is wrapped to [0, 360).
func (v *MapView) LookAt(p LookAtParams) {
	v.camera = p.normalize()
	v.logger.Debug().
		Str("target", v.camera.Target.String()).
		Float64("zoom", v.camera.ZoomLevel).
		Float64("tilt", v.camera.Tilt).
		Float64("heading", v.camera.Heading).
		Msg("Camera moved")
	v.emit(Event{Name: EventCameraChanged, Frame: v.frame})
	v.Update()
}

// Update schedules a single frame.
func (v *MapView) Update() {
	v.updatePending = true
}

// RequestUpdate implements tile.UpdateRequester.
func (v *MapView) RequestUpdate() {
	v.Update()
}

// BeginAnimation renders continuously until the matching EndAnimation.
func (v *MapView) BeginAnimation() {
	v.animating++
	v.Update()
}

// EndAnimation stops continuous rendering started by BeginAnimation.
func (v *MapView) EndAnimation() {
	if v.animating > 0 {
		v.animating--
	}
}

// Animating reports whether continuous rendering is active.
func (v *MapView) Animating() bool {
	return v.animating > 0
}

// NeedsRender reports whether the next tick renders a frame.
func (v *MapView) NeedsRender() bool {
	return v.updatePending || v.animating > 0
}

// Post queues fn to run on the event loop. It is safe for concurrent use.
// Functions posted after Run returned are dropped.
func (v *MapView) Post(fn func()) {
	select {
	case v.tasks <- fn:
	case <-v.done:
	}
}

// Run processes posted functions and renders frames until ctx is done.
func (v *MapView) Run(ctx context.Context) error {
	defer v.doneOnce.Do(func() { close(v.done) })

	ticker := time.NewTicker(time.Second / time.Duration(v.fps))
	defer ticker.Stop()

	v.logger.Info().
		Str("projection", v.proj.Name()).
		Int("fps", v.fps).
		Int("tile_zoom", v.tileZoom).
		Msg("Render loop started")

	for {
		select {
		case <-ctx.Done():
			v.logger.Info().Int("frames", v.stats.Frames).Msg("Render loop stopped")
			return ctx.Err()
		case fn := <-v.tasks:
			fn()
		case now := <-ticker.C:
			if v.NeedsRender() {
				v.RenderFrame(now)
			}
		}
	}
}

// Drain runs every queued function without blocking.
func (v *MapView) Drain() int {
	n := 0
	for {
		select {
		case fn := <-v.tasks:
			fn()
			n++
		default:
			return n
		}
	}
}

// RenderFrame renders one frame at now: anchors are repositioned, mixers
// advanced and render handlers called.
func (v *MapView) RenderFrame(now time.Time) {
	start := time.Now()

	delta := v.clock.Tick(now)
	v.updatePending = false

	v.anchors.update(v.proj, v.camera.Target, delta)

	v.emit(Event{Name: EventRender, Frame: v.frame, Time: now, Delta: delta})
	v.emit(Event{Name: EventAfterRender, Frame: v.frame, Time: now, Delta: delta})

	v.frame++
	v.stats.record(now, time.Since(start))
}
