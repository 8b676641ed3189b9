// Package assettest builds glTF fixtures for tests.
package assettest

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"
)

// TowerHeight is the mesh height of the GLB fixture.
const TowerHeight = 12

// PNGDataURI returns a 2x2 PNG as a data URI.
func PNGDataURI(t testing.TB) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// GLB returns a binary glTF with a "marker" root holding one textured,
// alpha masked "tower" mesh and a "walk" animation lasting 2.5 seconds.
func GLB(t testing.TB) []byte {
	t.Helper()
	doc := gltf.NewDocument()

	pos := modeler.WritePosition(doc, [][3]float32{{-1, -1, 0}, {1, -1, 0}, {1, 1, TowerHeight}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Images = []*gltf.Image{{Name: "facade", MimeType: "image/png", URI: PNGDataURI(t)}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	doc.Materials = []*gltf.Material{{
		Name:        "wall",
		AlphaMode:   gltf.AlphaMask,
		AlphaCutoff: gltf.Float(0.3),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
			MetallicFactor:   gltf.Float(0),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tower",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: pos},
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "tower", Mesh: gltf.Index(0)}, {Name: "marker", Children: []int{0}}}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{1}}}
	doc.Scene = gltf.Index(0)

	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1, 2.5})
	doc.Accessors[times].Max = []float64{2.5}
	values := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}})
	doc.Animations = []*gltf.Animation{{
		Name:     "walk",
		Samplers: []*gltf.AnimationSampler{{Input: times, Output: values}},
	}}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

// WriteGLB writes the GLB fixture into dir and returns its path.
func WriteGLB(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, GLB(t), 0o644))
	return path
}
