package geo

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// TileKey identifies a slippy map tile.
type TileKey = maptile.Tile

// TileAt returns the key of the tile containing p at zoom level z. Positions
// on the antimeridian or the poles fall into the last tile of the row or column.
func TileAt(p GeoPosition, z int) TileKey {
	pt := orb.Point{p.Longitude, clampLatitude(p.Latitude)}
	key := maptile.At(pt, maptile.Zoom(z))
	last := uint32(1)<<uint(z) - 1
	key.X = min(key.X, last)
	key.Y = min(key.Y, last)
	return key
}

// TileCenter returns the world-space origin of a tile: the projected centre
// of its geographic bound at altitude zero.
func TileCenter(proj Projection, key TileKey) mgl64.Vec3 {
	c := key.Bound().Center()
	return proj.ProjectPoint(FromPoint(c, 0))
}

// FormatTileKey renders a key as z/x/y.
func FormatTileKey(key TileKey) string {
	return fmt.Sprintf("%d/%d/%d", key.Z, key.X, key.Y)
}

// ParseTileKey parses integer z, x, y into a key, validating ranges.
func ParseTileKey(z, x, y int) (TileKey, error) {
	if z < 0 || z > 30 {
		return TileKey{}, fmt.Errorf("zoom %d out of range", z)
	}
	limit := 1 << z
	if x < 0 || x >= limit || y < 0 || y >= limit {
		return TileKey{}, fmt.Errorf("tile %d/%d/%d out of range", z, x, y)
	}

	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}
