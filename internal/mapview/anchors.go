package mapview

import (
	"github.com/woozymasta/geoanchor/internal/anchor"
	"github.com/woozymasta/geoanchor/internal/animation"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/scene"
)

// OverlayRenderOrder is the lowest render order of overlay anchors.
const OverlayRenderOrder = 10000

// Anchor binds a node to a geographic position. Its placement is recomputed
// relative to the camera target on every frame.
type Anchor struct {
	Node     *scene.Node
	Position geo.GeoPosition

	// Scale is the model scale in metres per model unit.
	Scale float64

	// Overlay anchors are drawn on top of labels.
	Overlay     bool
	RenderOrder int
	Mixer       *animation.Mixer
}

// MapAnchors is the view's collection of anchored objects.
type MapAnchors struct {
	items []*Anchor
}

// Add appends anchors to the collection.
func (m *MapAnchors) Add(anchors ...*Anchor) {
	for _, a := range anchors {
		if a.Scale == 0 {
			a.Scale = 1
		}
		m.items = append(m.items, a)
	}
}

// Remove deletes a from the collection.
func (m *MapAnchors) Remove(a *Anchor) bool {
	for i, it := range m.items {
		if it == a {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns the anchors in insertion order.
func (m *MapAnchors) Items() []*Anchor {
	return m.items
}

// Len returns the number of anchors.
func (m *MapAnchors) Len() int {
	return len(m.items)
}

// update places every anchor relative to the camera target and advances
// its mixer.
func (m *MapAnchors) update(proj geo.Projection, origin geo.GeoPosition, delta float64) {
	center := proj.ProjectPoint(origin)
	for _, a := range m.items {
		tr := anchor.ComputeTransform(proj, a.Position, center)
		a.Node.Position = tr.Displacement
		a.Node.Rotation = tr.Rotation
		a.Node.Scale = tr.Scale * a.Scale
		order := a.RenderOrder
		if a.Overlay {
			order = max(order, OverlayRenderOrder)
		}
		a.Node.Traverse(func(n *scene.Node) { n.RenderOrder = order })

		if a.Mixer != nil {
			a.Mixer.Update(delta)
		}
	}
}
