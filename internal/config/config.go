// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geoanchor/internal/geo"

	"gopkg.in/yaml.v3"
)

// Anchor placement modes.
const (
	ModeTile   = "tile"
	ModeAnchor = "anchor"
)

// Config represents the root configuration file structure.
type Config struct {
	View   View   `yaml:"view" json:"view"`
	Camera Camera `yaml:"camera" json:"camera"`

	// AnchorsGeoJSON is a GeoJSON file of point features appended to Anchors.
	AnchorsGeoJSON string   `yaml:"anchors_geojson,omitempty" json:"anchors_geojson,omitempty"`
	Anchors        []Anchor `yaml:"anchors" json:"anchors"`
}

// View holds map view settings.
type View struct {
	Projection  string `yaml:"projection,omitempty" json:"projection,omitempty"`
	Width       int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height      int    `yaml:"height,omitempty" json:"height,omitempty"`
	FPS         int    `yaml:"fps,omitempty" json:"fps,omitempty"`
	TileZoom    int    `yaml:"tile_zoom,omitempty" json:"tile_zoom,omitempty"`
	TileCache   int    `yaml:"tile_cache,omitempty" json:"tile_cache,omitempty"`
	RenderOrder int    `yaml:"render_order,omitempty" json:"render_order,omitempty"`
	Shadows     bool   `yaml:"shadows,omitempty" json:"shadows,omitempty"`
}

// Camera is the initial lookAt of the view.
type Camera struct {
	Target  geo.GeoPosition `yaml:"target" json:"target"`
	Zoom    float64         `yaml:"zoom" json:"zoom"`
	Tilt    float64         `yaml:"tilt,omitempty" json:"tilt,omitempty"`
	Heading float64         `yaml:"heading,omitempty" json:"heading,omitempty"`
}

// Anchor is a model placed at a geographic position.
type Anchor struct {
	Name        string  `yaml:"name" json:"name"`
	Model       string  `yaml:"model" json:"model"`
	Mode        string  `yaml:"mode,omitempty" json:"mode,omitempty"`
	Kind        string  `yaml:"kind,omitempty" json:"kind,omitempty"`
	Lat         float64 `yaml:"lat" json:"lat"`
	Lon         float64 `yaml:"lon" json:"lon"`
	Alt         float64 `yaml:"alt,omitempty" json:"alt,omitempty"`
	Scale       float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	RenderOrder int     `yaml:"render_order,omitempty" json:"render_order,omitempty"`
	Animate     bool    `yaml:"animate,omitempty" json:"animate,omitempty"`
	Overlay     bool    `yaml:"overlay,omitempty" json:"overlay,omitempty"`
}

// Position returns the anchor's geographic position.
func (a Anchor) Position() geo.GeoPosition {
	return geo.NewGeoPosition(a.Lat, a.Lon, a.Alt)
}

// Load reads and parses the YAML configuration file from the specified path.
// Relative model and GeoJSON paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if cfg.AnchorsGeoJSON != "" {
		gj := resolve(base, cfg.AnchorsGeoJSON)
		raw, err := os.ReadFile(gj)
		if err != nil {
			return nil, fmt.Errorf("read anchors geojson: %w", err)
		}
		extra, err := AnchorsFromGeoJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", gj, err)
		}
		cfg.Anchors = append(cfg.Anchors, extra...)
		cfg.applyDefaults()
	}

	for i := range cfg.Anchors {
		cfg.Anchors[i].Model = resolve(base, cfg.Anchors[i].Model)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes configuration from YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.View.Projection == "" {
		c.View.Projection = "mercator"
	}
	if c.View.Width <= 0 {
		c.View.Width = 1280
	}
	if c.View.Height <= 0 {
		c.View.Height = 720
	}
	if c.View.FPS <= 0 {
		c.View.FPS = 60
	}
	if c.View.TileZoom <= 0 {
		c.View.TileZoom = 16
	}
	if c.View.TileCache <= 0 {
		c.View.TileCache = 256
	}
	if c.Camera.Zoom <= 0 {
		c.Camera.Zoom = 16
	}

	for i := range c.Anchors {
		a := &c.Anchors[i]
		if a.Mode == "" {
			a.Mode = ModeTile
		}
		if a.Kind == "" {
			a.Kind = "building"
		}
		if a.Scale == 0 {
			a.Scale = 1
		}
		if a.Name == "" {
			a.Name = strings.TrimSuffix(filepath.Base(a.Model), filepath.Ext(a.Model))
		}
	}
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if _, err := geo.ProjectionByName(c.View.Projection); err != nil {
		errs = append(errs, err.Error())
	}
	if c.View.TileZoom > 22 {
		errs = append(errs, fmt.Sprintf("view.tile_zoom must be 1-22, got %d", c.View.TileZoom))
	}
	if !c.Camera.Target.Valid() {
		errs = append(errs, fmt.Sprintf("camera.target %s is not a valid position", c.Camera.Target))
	}

	for i, a := range c.Anchors {
		if a.Model == "" {
			errs = append(errs, fmt.Sprintf("anchors[%d] (%s): model is required", i, a.Name))
		}
		if !a.Position().Valid() {
			errs = append(errs, fmt.Sprintf("anchors[%d] (%s): invalid position %s", i, a.Name, a.Position()))
		}
		if a.Mode != ModeTile && a.Mode != ModeAnchor {
			errs = append(errs, fmt.Sprintf("anchors[%d] (%s): mode must be %q or %q", i, a.Name, ModeTile, ModeAnchor))
		}
		if a.Scale <= 0 {
			errs = append(errs, fmt.Sprintf("anchors[%d] (%s): scale must be positive", i, a.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || strings.Contains(path, "://") {
		return path
	}
	return filepath.Join(base, path)
}
