// Package tile holds map tiles and the objects placed into them.
package tile

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/woozymasta/geoanchor/internal/geo"
	"github.com/woozymasta/geoanchor/internal/scene"
)

// UpdateRequester schedules a redraw.
type UpdateRequester interface {
	RequestUpdate()
}

// UpdateFunc adapts a function to UpdateRequester.
type UpdateFunc func()

// RequestUpdate implements UpdateRequester.
func (f UpdateFunc) RequestUpdate() { f() }

// Tile is a spatial partition of the map. Objects placed into it store
// positions relative to Center.
type Tile struct {
	Key        geo.TileKey
	Center     mgl64.Vec3
	Projection geo.Projection

	// Objects is the ordered render list of the tile.
	Objects []*scene.Node

	// Geometry height range in metres above the ellipsoid, used for horizon
	// and occlusion checks.
	MaxGeometryHeight float64
	MinGeometryHeight float64

	byKind   map[scene.Kind][]*scene.Node
	hidden   map[scene.Kind]bool
	updater  UpdateRequester
	disposed bool
}

// New creates a tile for key whose centre is computed with proj.
// updater may be nil.
func New(key geo.TileKey, proj geo.Projection, updater UpdateRequester) *Tile {
	return &Tile{
		Key:        key,
		Center:     geo.TileCenter(proj, key),
		Projection: proj,
		byKind:     make(map[scene.Kind][]*scene.Node),
		hidden:     make(map[scene.Kind]bool),
		updater:    updater,
	}
}

// Register records n under kind and applies the kind's current visibility.
func (t *Tile) Register(n *scene.Node, kind scene.Kind) {
	n.Kind = kind
	if t.hidden[kind] {
		n.Visible = false
	}
	t.byKind[kind] = append(t.byKind[kind], n)
}

// Append adds n to the render list.
func (t *Tile) Append(n *scene.Node) {
	t.Objects = append(t.Objects, n)
}

// ExpandHeight grows the tile's geometry height range.
func (t *Tile) ExpandHeight(minHeight, maxHeight float64) {
	if maxHeight > t.MaxGeometryHeight {
		t.MaxGeometryHeight = maxHeight
	}
	if minHeight < t.MinGeometryHeight {
		t.MinGeometryHeight = minHeight
	}
}

// ObjectsOfKind returns the objects registered under kind.
func (t *Tile) ObjectsOfKind(kind scene.Kind) []*scene.Node {
	return t.byKind[kind]
}

// Kinds returns the registered kinds, sorted.
func (t *Tile) Kinds() []scene.Kind {
	kinds := make([]scene.Kind, 0, len(t.byKind))
	for k := range t.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// SetKindVisible shows or hides every object of kind, including ones
// registered later.
func (t *Tile) SetKindVisible(kind scene.Kind, visible bool) {
	t.hidden[kind] = !visible
	for _, n := range t.byKind[kind] {
		n.Visible = visible
	}
	t.RequestUpdate()
}

// RequestUpdate forwards a redraw request to the tile's updater.
func (t *Tile) RequestUpdate() {
	if t.updater != nil {
		t.updater.RequestUpdate()
	}
}

// Dispose releases the tile's objects. A disposed tile accepts no new objects.
func (t *Tile) Dispose() {
	t.Objects = nil
	t.byKind = make(map[scene.Kind][]*scene.Node)
	t.disposed = true
}

// Disposed reports whether the tile has been evicted.
func (t *Tile) Disposed() bool {
	return t.disposed
}
