// Package server exposes a running map view over HTTP for inspection.
package server

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"net/http"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/report"
	"github.com/woozymasta/geoanchor/internal/scene"
	xdraw "golang.org/x/image/draw"
)

const etagCap = 64

// HandleView serves the view summary. Output is minified unless ?pretty is set.
func (s *ServerContext) HandleView(w http.ResponseWriter, r *http.Request) {
	var out report.View
	if err := s.onView(r.Context(), func() { out = report.BuildView(s.View) }); err != nil {
		s.viewError(w, err)
		return
	}
	s.writeJSON(w, r, out)
}

// HandleTilesList serves summaries of every cached tile.
func (s *ServerContext) HandleTilesList(w http.ResponseWriter, r *http.Request) {
	var out []report.TileSummary
	err := s.onView(r.Context(), func() {
		tiles := s.View.Tiles().Tiles()
		out = make([]report.TileSummary, 0, len(tiles))
		for _, t := range tiles {
			out = append(out, report.Summarize(t))
		}
	})
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.writeJSON(w, r, out)
}

// HandleTile serves the placed objects of one cached tile.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	// Path: /api/tiles/{z}/{x}/{y}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 5 {
		http.NotFound(w, r)
		return
	}

	var zxy [3]int
	for i, p := range parts[2:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			http.Error(w, "invalid tile key", http.StatusBadRequest)
			return
		}
		zxy[i] = n
	}
	key, err := geo.ParseTileKey(zxy[0], zxy[1], zxy[2])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		out   report.Tile
		found bool
	)
	err = s.onView(r.Context(), func() {
		if t, ok := s.View.Tiles().Get(key); ok {
			out, found = report.Detail(t), true
		}
	})
	if err != nil {
		s.viewError(w, err)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, r, out)
}

// HandleTexture serves a WebP preview of a texture used by placed objects.
// Textures are addressed by their ID as listed in tile reports.
func (s *ServerContext) HandleTexture(w http.ResponseWriter, r *http.Request) {
	// Path: /api/textures/{id}.webp
	id, ok := strings.CutPrefix(r.URL.Path, "/api/textures/")
	if !ok || !strings.HasSuffix(id, ".webp") {
		http.NotFound(w, r)
		return
	}
	id = strings.TrimSuffix(id, ".webp")

	var textures map[string]*scene.Texture
	if err := s.onView(r.Context(), func() { textures = report.Textures(s.View) }); err != nil {
		s.viewError(w, err)
		return
	}
	s.prunePreviews(textures)

	tex := textures[id]
	if tex == nil {
		http.NotFound(w, r)
		return
	}

	p, ok := s.cachedPreview(id)
	if !ok || p.tex != tex {
		data, err := encodePreview(tex.Image, s.PreviewSize)
		if err != nil {
			log.Error().Err(err).Str("texture", id).Msg("Failed to encode texture preview")
			http.Error(w, "texture encode failed", http.StatusInternalServerError)
			return
		}
		p = preview{tex: tex, etag: etag(len(data), tex.Width, tex.Height), data: data}
		s.storePreview(id, p)
	}

	if match := r.Header.Get("If-None-Match"); match == p.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("ETag", p.etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(p.data)
}

func (s *ServerContext) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = report.Encode(w, v, !r.URL.Query().Has("pretty"))
}

func (s *ServerContext) viewError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrViewBusy) {
		log.Warn().Err(err).Msg("View loop timeout")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	// client went away
	w.WriteHeader(http.StatusRequestTimeout)
}

// encodePreview downscales img so its longest edge is at most size and
// encodes it as lossy WebP.
func encodePreview(img image.Image, size int) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size > 0 && (w > size || h > size) {
		if w >= h {
			w, h = size, max(1, h*size/w)
		} else {
			w, h = max(1, w*size/h), size
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Lossless: false, Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func etag(size, width, height int) string {
	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, int64(size), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, int64(width), 16)
	buf = append(buf, 'x')
	buf = strconv.AppendInt(buf, int64(height), 16)
	buf = append(buf, '"')
	return string(buf)
}

// Routes registers the inspection API on mux.
func (s *ServerContext) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", s.HandleView)
	mux.HandleFunc("/api/tiles", s.HandleTilesList)
	mux.HandleFunc("/api/tiles/", s.HandleTile)
	mux.HandleFunc("/api/textures/", s.HandleTexture)
}
