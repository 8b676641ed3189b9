// Package scene holds the render-ready node tree produced from loaded assets
// and placed into tiles.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Kind classifies placed objects so tiles can cull or evict them by category.
type Kind string

// Geometry kinds.
const (
	KindBuilding Kind = "building"
	KindLandmark Kind = "landmark"
	KindPOI      Kind = "poi"
	KindFigure   Kind = "figure"
)

// Mesh is the renderable primitive set of a node. Only the data needed for
// placement bookkeeping is kept.
type Mesh struct {
	Name        string
	Primitives  int
	VertexCount int
	Bounds      BBox
}

// Node is a scene graph node. Placement fields are written by the anchor
// resolver when the node is registered with a tile.
type Node struct {
	Name     string
	Children []*Node
	Mesh     *Mesh
	Material *Material

	// DepthMaterial is used when rendering the node into a shadow map.
	DepthMaterial *Material

	// Position is relative to the owning tile centre (or camera target for map anchors).
	Position mgl64.Vec3
	Rotation mgl64.Mat3
	Scale    float64

	RenderOrder   int
	CastShadow    bool
	ReceiveShadow bool
	Visible       bool
	Kind          Kind
}

// NewNode returns a visible node with identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl64.Ident3(),
		Scale:    1,
		Visible:  true,
	}
}

// Add appends children to n.
func (n *Node) Add(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// Traverse calls fn for n and all descendants, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// IsMesh reports whether the node carries a render primitive.
func (n *Node) IsMesh() bool {
	return n.Mesh != nil
}

// Transform returns the node's 4x4 model matrix relative to its origin.
func (n *Node) Transform() mgl64.Mat4 {
	r := n.Rotation.Mul(n.Scale).Mat4()
	r.SetCol(3, n.Position.Vec4(1))
	return r
}

// LocalBounds returns the bounds of the node's mesh and all descendant
// meshes in the node's own coordinate space.
func (n *Node) LocalBounds() BBox {
	b := EmptyBBox()
	if n.Mesh != nil {
		b = n.Mesh.Bounds
	}
	for _, c := range n.Children {
		b = b.Union(c.LocalBounds().Transform(c.Transform()))
	}
	return b
}

// HasMesh reports whether n or any descendant carries a mesh.
func (n *Node) HasMesh() bool {
	if n.Mesh != nil {
		return true
	}
	for _, c := range n.Children {
		if c.HasMesh() {
			return true
		}
	}
	return false
}

// WorldBounds returns the mesh bounds transformed by the node placement.
// Nodes without a mesh return an empty box.
func (n *Node) WorldBounds() BBox {
	if n.Mesh == nil {
		return EmptyBBox()
	}
	return n.Mesh.Bounds.Transform(n.Transform())
}
