package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/woozymasta/geoanchor/internal/animation"
	"github.com/woozymasta/geoanchor/internal/scene"
	_ "golang.org/x/image/webp"
)

// maxDepth guards against cyclic node hierarchies in malformed documents.
const maxDepth = 64

// Parse decodes a self-contained GLB or glTF document held in data.
func Parse(data []byte, name string) Result {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return failed(name, CategoryGLTF, err)
	}
	return convert(doc, name, "")
}

// Open reads a glTF or GLB file, resolving external buffers and images
// relative to its directory.
func Open(path string) Result {
	doc, err := gltf.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(path, CategoryIO, err)
		}
		return failed(path, CategoryGLTF, err)
	}
	return convert(doc, filepath.Base(path), filepath.Dir(path))
}

type converter struct {
	doc       *gltf.Document
	baseDir   string
	materials map[int]*scene.Material
	textures  map[int]*scene.Texture
	res       *Result
}

func convert(doc *gltf.Document, name, baseDir string) Result {
	res := Result{Name: name}
	c := &converter{
		doc:       doc,
		baseDir:   baseDir,
		materials: make(map[int]*scene.Material),
		textures:  make(map[int]*scene.Texture),
		res:       &res,
	}

	root := scene.NewNode(name)
	for _, idx := range c.rootNodes() {
		n, err := c.node(idx, 0)
		if err != nil {
			return failed(name, CategoryGLTF, err)
		}
		root.Add(n)
	}
	if len(root.Children) == 0 {
		return failed(name, CategoryGLTF, ErrEmptyScene)
	}

	for i, a := range doc.Animations {
		clip, err := c.clip(i, a)
		if err != nil {
			return failed(name, CategoryGLTF, err)
		}
		res.Animations = append(res.Animations, clip)
	}

	for i := range doc.Textures {
		if t, ok := c.textures[i]; ok {
			res.Textures = append(res.Textures, t)
		}
	}

	res.Scene = root
	return res
}

// rootNodes returns the node indices of the default scene, or every node
// that is not a child of another when the document declares no scenes.
func (c *converter) rootNodes() []int {
	doc := c.doc
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			s = int(*doc.Scene)
		}
		out := make([]int, 0, len(doc.Scenes[s].Nodes))
		for _, n := range doc.Scenes[s].Nodes {
			out = append(out, int(n))
		}
		return out
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, ch := range n.Children {
			isChild[int(ch)] = true
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !isChild[i] {
			out = append(out, i)
		}
	}
	return out
}

func (c *converter) node(idx, depth int) (*scene.Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("node hierarchy deeper than %d", maxDepth)
	}
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}

	gn := c.doc.Nodes[idx]
	n := scene.NewNode(gn.Name)
	if n.Name == "" {
		n.Name = fmt.Sprintf("node_%d", idx)
	}

	c.transform(n, gn)

	if gn.Mesh != nil {
		if err := c.mesh(n, int(*gn.Mesh)); err != nil {
			return nil, err
		}
	}

	for _, ch := range gn.Children {
		child, err := c.node(int(ch), depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}

	return n, nil
}

var (
	identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	emptyMatrix    [16]float64
)

// transform copies the node's local TRS. Scale is uniform in the scene
// graph, so non uniform scales keep their largest component.
func (c *converter) transform(n *scene.Node, gn *gltf.Node) {
	if gn.Matrix != identityMatrix && gn.Matrix != emptyMatrix {
		c.warn("node %q: matrix transforms are not supported, using TRS", n.Name)
	}

	t := gn.Translation
	n.Position = mgl64.Vec3{float64(t[0]), float64(t[1]), float64(t[2])}

	if r := gn.Rotation; r != [4]float64{} {
		q := mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}
		n.Rotation = q.Normalize().Mat4().Mat3()
	}

	if s := gn.Scale; s != [3]float64{} {
		n.Scale = max(float64(s[0]), float64(s[1]), float64(s[2]))
		if s[0] != s[1] || s[1] != s[2] {
			c.warn("node %q: non uniform scale %v", n.Name, s)
		}
	}
}

func (c *converter) mesh(n *scene.Node, idx int) error {
	if idx < 0 || idx >= len(c.doc.Meshes) {
		return fmt.Errorf("mesh index %d out of range", idx)
	}

	gm := c.doc.Meshes[idx]
	mesh := &scene.Mesh{Name: gm.Name, Primitives: len(gm.Primitives), Bounds: scene.EmptyBBox()}

	for _, p := range gm.Primitives {
		if pos, ok := p.Attributes[gltf.POSITION]; ok {
			ai := int(pos)
			if ai < 0 || ai >= len(c.doc.Accessors) {
				return fmt.Errorf("mesh %d: position accessor %d out of range", idx, ai)
			}
			acc := c.doc.Accessors[ai]
			mesh.VertexCount += int(acc.Count)
			if len(acc.Min) >= 3 && len(acc.Max) >= 3 {
				mesh.Bounds = mesh.Bounds.
					ExpandByPoint(mgl64.Vec3{float64(acc.Min[0]), float64(acc.Min[1]), float64(acc.Min[2])}).
					ExpandByPoint(mgl64.Vec3{float64(acc.Max[0]), float64(acc.Max[1]), float64(acc.Max[2])})
			}
		}

		if p.Material != nil && n.Material == nil {
			m, err := c.material(int(*p.Material))
			if err != nil {
				return err
			}
			n.Material = m
		}
	}

	n.Mesh = mesh
	return nil
}

func (c *converter) material(idx int) (*scene.Material, error) {
	if m, ok := c.materials[idx]; ok {
		return m, nil
	}
	if idx < 0 || idx >= len(c.doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", idx)
	}

	gm := c.doc.Materials[idx]
	m := &scene.Material{
		Name:        gm.Name,
		Type:        scene.MaterialStandard,
		Color:       [4]float64{1, 1, 1, 1},
		Metalness:   1,
		Roughness:   1,
		DoubleSided: gm.DoubleSided,
	}

	switch gm.AlphaMode {
	case gltf.AlphaMask:
		m.AlphaTest = 0.5
		if gm.AlphaCutoff != nil {
			m.AlphaTest = float64(*gm.AlphaCutoff)
		}
	case gltf.AlphaBlend:
		m.Transparent = true
	}

	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.Color = [4]float64{float64(f[0]), float64(f[1]), float64(f[2]), float64(f[3])}
		}
		if pbr.MetallicFactor != nil {
			m.Metalness = float64(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = float64(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil {
			m.Map = c.texture(int(pbr.BaseColorTexture.Index))
		}
	}

	c.materials[idx] = m
	return m, nil
}

// texture decodes a texture's source image. Decode failures are recorded as
// warnings and yield a texture without pixels.
func (c *converter) texture(idx int) *scene.Texture {
	if t, ok := c.textures[idx]; ok {
		return t
	}
	if idx < 0 || idx >= len(c.doc.Textures) {
		c.warn("texture index %d out of range", idx)
		return nil
	}

	t := &scene.Texture{Name: fmt.Sprintf("texture_%d", idx), Source: c.res.Name, Index: idx}
	c.textures[idx] = t

	gt := c.doc.Textures[idx]
	if gt.Name != "" {
		t.Name = gt.Name
	}
	if gt.Source == nil || int(*gt.Source) >= len(c.doc.Images) {
		c.warn("texture %q has no source image", t.Name)
		return t
	}

	img := c.doc.Images[int(*gt.Source)]
	t.MimeType = img.MimeType
	if img.Name != "" && gt.Name == "" {
		t.Name = img.Name
	}

	data, err := c.imageData(img)
	if err != nil {
		c.warn("texture %q: %v", t.Name, err)
		return t
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		c.warn("texture %q: decode: %v", t.Name, err)
		return t
	}

	b := decoded.Bounds()
	t.Image = decoded
	t.Width, t.Height = b.Dx(), b.Dy()
	if t.MimeType == "" {
		t.MimeType = "image/" + format
	}

	return t
}

func (c *converter) imageData(img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		return c.bufferView(int(*img.BufferView))
	}
	if img.IsEmbeddedResource() {
		return img.MarshalData()
	}
	if img.URI == "" {
		return nil, fmt.Errorf("image has no data")
	}
	if c.baseDir == "" {
		return nil, fmt.Errorf("external image %q without base path", img.URI)
	}
	if strings.Contains(img.URI, "..") {
		return nil, fmt.Errorf("image path %q escapes asset directory", img.URI)
	}
	return os.ReadFile(filepath.Join(c.baseDir, filepath.FromSlash(img.URI)))
}

func (c *converter) bufferView(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(c.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := c.doc.BufferViews[idx]
	bi := int(bv.Buffer)
	if bi < 0 || bi >= len(c.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", bi)
	}

	data := c.doc.Buffers[bi].Data
	start := int(bv.ByteOffset)
	end := start + int(bv.ByteLength)
	if start < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer %d", idx, bi)
	}
	return data[start:end], nil
}

// clip converts an animation. Its duration is the largest keyframe time of
// its samplers' input accessors.
func (c *converter) clip(idx int, a *gltf.Animation) (animation.Clip, error) {
	clip := animation.Clip{Name: a.Name, Channels: len(a.Channels)}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", idx)
	}

	for _, s := range a.Samplers {
		ai := int(s.Input)
		if ai < 0 || ai >= len(c.doc.Accessors) {
			return clip, fmt.Errorf("animation %q: input accessor %d out of range", clip.Name, ai)
		}
		if acc := c.doc.Accessors[ai]; len(acc.Max) > 0 && float64(acc.Max[0]) > clip.Duration {
			clip.Duration = float64(acc.Max[0])
		}
	}

	return clip, nil
}

func (c *converter) warn(format string, args ...any) {
	c.res.Warnings = append(c.res.Warnings, fmt.Sprintf(format, args...))
}
