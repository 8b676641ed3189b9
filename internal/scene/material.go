package scene

import (
	"fmt"
	"hash/fnv"
	"image"
	"path"
	"strings"
	"unicode/utf8"
)

// MaterialType selects the shading model of a material.
type MaterialType string

// Material types.
const (
	MaterialStandard MaterialType = "standard"
	MaterialBasic    MaterialType = "basic"
	MaterialDepth    MaterialType = "depth"
)

// DepthPacking selects how depth is written by depth materials.
type DepthPacking string

// Depth packings.
const (
	DepthPackingBasic DepthPacking = "basic"
	DepthPackingRGBA  DepthPacking = "rgba"
)

// Texture is a decoded image used as a colour map.
type Texture struct {
	Name     string
	MimeType string
	Width    int
	Height   int
	Image    image.Image `json:"-"`

	// Source is the asset the texture was loaded from and Index its
	// position in that asset.
	Source string
	Index  int
}

// ID identifies the texture across loaded assets. Textures of different
// assets never share an ID even when their names collide.
func (t *Texture) ID() string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(t.Source))

	base := strings.TrimSuffix(path.Base(t.Source), path.Ext(t.Source))
	base = strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return r
		}
		return '_'
	}, base)

	return fmt.Sprintf("%s-%08x-%d", base, h.Sum32(), t.Index)
}

// Material describes how a surface is shaded.
type Material struct {
	Name      string
	Type      MaterialType
	Color     [4]float64
	Map       *Texture
	Metalness float64
	Roughness float64

	// AlphaTest discards fragments with alpha below the threshold. Zero disables it.
	AlphaTest   float64
	Transparent bool
	DoubleSided bool

	PolygonOffset       bool
	PolygonOffsetFactor float64
	PolygonOffsetUnits  float64

	DepthPacking DepthPacking
}

// SubstituteOptions configure the display material built by SubstituteMaterial.
type SubstituteOptions struct {
	AlphaTest           float64
	PolygonOffsetFactor float64
	PolygonOffsetUnits  float64
}

// DefaultSubstitution pushes placed geometry slightly back so it does not
// z-fight with coplanar ground geometry.
var DefaultSubstitution = SubstituteOptions{
	AlphaTest:           0.5,
	PolygonOffsetFactor: 1,
	PolygonOffsetUnits:  1,
}

// SubstituteMaterial builds the display material and the shadow depth
// material for a loaded surface material. The original material is not
// modified. tex overrides the original colour map when not nil. A nil
// original yields nil materials.
func SubstituteMaterial(orig *Material, tex *Texture, opts SubstituteOptions) (display, depth *Material) {
	if orig == nil {
		return nil, nil
	}
	if tex == nil {
		tex = orig.Map
	}

	display = &Material{
		Name:                orig.Name,
		Type:                MaterialStandard,
		Color:               orig.Color,
		Map:                 tex,
		Metalness:           orig.Metalness,
		Roughness:           orig.Roughness,
		AlphaTest:           opts.AlphaTest,
		Transparent:         true,
		DoubleSided:         orig.DoubleSided,
		PolygonOffset:       true,
		PolygonOffsetFactor: opts.PolygonOffsetFactor,
		PolygonOffsetUnits:  opts.PolygonOffsetUnits,
	}

	depth = &Material{
		Name:         orig.Name + "#depth",
		Type:         MaterialDepth,
		Map:          tex,
		AlphaTest:    opts.AlphaTest,
		DoubleSided:  orig.DoubleSided,
		DepthPacking: DepthPackingRGBA,
	}

	return display, depth
}
