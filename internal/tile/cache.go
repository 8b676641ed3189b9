package tile

import (
	"container/list"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geoanchor/internal/geo"
)

// Cache keeps the most recently used tiles up to a fixed capacity.
// Evicted tiles are disposed. It is not safe for concurrent use.
type Cache struct {
	proj     geo.Projection
	updater  UpdateRequester
	logger   zerolog.Logger
	order    *list.List
	items    map[geo.TileKey]*list.Element
	capacity int
}

// NewCache returns a cache holding at most capacity tiles (minimum 1).
func NewCache(capacity int, proj geo.Projection, updater UpdateRequester) *Cache {
	if capacity < 1 {
		capacity = 1
	}

	return &Cache{
		proj:     proj,
		updater:  updater,
		logger:   log.Logger,
		order:    list.New(),
		items:    make(map[geo.TileKey]*list.Element),
		capacity: capacity,
	}
}

// WithLogger replaces the cache logger.
func (c *Cache) WithLogger(l zerolog.Logger) *Cache {
	c.logger = l
	return c
}

// Projection returns the projection tiles are created with.
func (c *Cache) Projection() geo.Projection {
	return c.proj
}

// Get returns a cached tile and marks it as recently used.
func (c *Cache) Get(key geo.TileKey) (*Tile, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*Tile), true
}

// GetOrCreate returns the tile for key, creating it if needed.
func (c *Cache) GetOrCreate(key geo.TileKey) *Tile {
	if t, ok := c.Get(key); ok {
		return t
	}

	t := New(key, c.proj, c.updater)
	c.items[key] = c.order.PushFront(t)

	c.logger.Trace().
		Str("tile", geo.FormatTileKey(key)).
		Int("cached", c.order.Len()).
		Msg("Tile created")

	for c.order.Len() > c.capacity {
		c.evictElement(c.order.Back())
	}

	return t
}

// Evict disposes and removes the tile for key.
func (c *Cache) Evict(key geo.TileKey) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.evictElement(el)
	return true
}

// Tiles returns the cached tiles, most recently used first.
func (c *Cache) Tiles() []*Tile {
	out := make([]*Tile, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Tile))
	}
	return out
}

// Len returns the number of cached tiles.
func (c *Cache) Len() int {
	return c.order.Len()
}

// Clear disposes every cached tile.
func (c *Cache) Clear() {
	for c.order.Len() > 0 {
		c.evictElement(c.order.Back())
	}
}

func (c *Cache) evictElement(el *list.Element) {
	t := c.order.Remove(el).(*Tile)
	delete(c.items, t.Key)
	objects := len(t.Objects)
	t.Dispose()

	c.logger.Debug().
		Str("tile", geo.FormatTileKey(t.Key)).
		Int("objects", objects).
		Msg("Tile evicted")
}
