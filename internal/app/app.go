// Package app builds a map view from configuration and populates it with
// the configured models.
package app

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geoanchor/internal/anchor"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/config"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/mapview"
	"github.com/woozymasta/geoanchor/internal/scene"
)

// Summary counts the outcome of Populate.
type Summary struct {
	Placed   int `json:"placed"`
	Anchored int `json:"anchored"`
	Failed   int `json:"failed"`
}

// Build creates a map view from cfg. loader may be nil.
func Build(cfg *config.Config, loader *asset.Loader, logger *zerolog.Logger) (*mapview.MapView, error) {
	proj, err := geo.ProjectionByName(cfg.View.Projection)
	if err != nil {
		return nil, err
	}

	return mapview.New(mapview.Options{
		Projection:     proj,
		Loader:         loader,
		Logger:         logger,
		Width:          cfg.View.Width,
		Height:         cfg.View.Height,
		TileZoom:       cfg.View.TileZoom,
		TileCacheSize:  cfg.View.TileCache,
		FPS:            cfg.View.FPS,
		RenderOrder:    cfg.View.RenderOrder,
		ShadowsEnabled: cfg.View.Shadows,
	})
}

// Populate points the camera and starts loading every configured anchor.
// It must be called on the view loop or before it starts. done runs on the
// view loop once every load completed.
func Populate(ctx context.Context, v *mapview.MapView, cfg *config.Config, done func(Summary)) {
	v.LookAt(mapview.LookAtParams{
		Target:    cfg.Camera.Target,
		ZoomLevel: cfg.Camera.Zoom,
		Tilt:      cfg.Camera.Tilt,
		Heading:   cfg.Camera.Heading,
	})

	var sum Summary
	pending := len(cfg.Anchors)
	finish := func() {
		pending--
		if pending == 0 {
			log.Info().
				Int("placed", sum.Placed).
				Int("anchored", sum.Anchored).
				Int("failed", sum.Failed).
				Msg("All models loaded")
			if done != nil {
				done(sum)
			}
		}
	}

	if pending == 0 {
		log.Warn().Msg("No anchors configured")
		if done != nil {
			done(sum)
		}
		return
	}

	animated := false
	for _, a := range cfg.Anchors {
		l := log.With().Str("anchor", a.Name).Str("model", a.Model).Logger()

		switch a.Mode {
		case config.ModeAnchor:
			animated = animated || a.Animate
			v.AddModelAnchor(ctx, a.Model, a.Position(), mapview.AnchorOptions{
				Name:        a.Name,
				Scale:       a.Scale,
				RenderOrder: a.RenderOrder,
				Overlay:     a.Overlay,
				Animate:     a.Animate,
				Done: func(_ *mapview.Anchor, err error) {
					if err != nil {
						l.Error().Err(err).Msg("Anchor failed")
						sum.Failed++
					} else {
						sum.Anchored++
					}
					finish()
				},
			})

		default:
			v.PlaceModel(ctx, a.Model, a.Position(), mapview.PlaceOptions{
				Kind:        scene.Kind(a.Kind),
				Scale:       a.Scale,
				RenderOrder: a.RenderOrder,
				Done: func(p *anchor.Placement, err error) {
					if err != nil {
						l.Error().Err(err).Msg("Placement failed")
						sum.Failed++
					} else {
						l.Debug().Str("tile", geo.FormatTileKey(p.Tile)).Msg("Model placed")
						sum.Placed++
					}
					finish()
				},
			})
		}
	}

	if animated {
		v.BeginAnimation()
	}
}
