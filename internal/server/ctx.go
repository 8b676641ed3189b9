package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geoanchor/internal/mapview"
	"github.com/woozymasta/geoanchor/internal/scene"
)

// ErrViewBusy is returned when the view loop does not answer in time.
var ErrViewBusy = errors.New("map view did not respond")

// DefaultTimeout bounds how long a handler waits for the view loop.
const DefaultTimeout = 5 * time.Second

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	View    *mapview.MapView
	Timeout time.Duration

	// PreviewSize is the longest edge of texture previews in pixels.
	PreviewSize int

	mu       sync.Mutex
	previews map[string]preview
}

type preview struct {
	tex  *scene.Texture
	etag string
	data []byte
}

// NewServerContext returns handlers bound to v. The view loop must be
// running for handlers to answer.
func NewServerContext(v *mapview.MapView) *ServerContext {
	w, h := v.Size()
	log.Info().
		Str("projection", v.Projection().Name()).
		Int("width", w).
		Int("height", h).
		Msg("Initializing server context")

	return &ServerContext{
		View:        v,
		Timeout:     DefaultTimeout,
		PreviewSize: 256,
		previews:    make(map[string]preview),
	}
}

// onView runs fn on the view loop and waits for it to return.
func (s *ServerContext) onView(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	done := make(chan struct{})
	go s.View.Post(func() {
		fn()
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrViewBusy
		}
		return ctx.Err()
	}
}

func (s *ServerContext) cachedPreview(name string) (preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.previews[name]
	return p, ok
}

// prunePreviews drops previews of textures no longer referenced by the view.
func (s *ServerContext) prunePreviews(live map[string]*scene.Texture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.previews {
		if live[id] != p.tex {
			delete(s.previews, id)
		}
	}
}

func (s *ServerContext) storePreview(name string, p preview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[name] = p
}
