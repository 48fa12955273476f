package physics

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// minExtent keeps degenerate bounding boxes valid for rtreego.
const minExtent = 0.01

// indexedShape is an obstacle stored in the R-tree.
type indexedShape struct {
	entity ecs.Entity
	shape  Shape
	pos    r2.Vec
	angle  float64
	rect   rtreego.Rect
}

func (s *indexedShape) Bounds() rtreego.Rect { return s.rect }

// ObstacleIndex answers "which obstacles touch this circle" with an R-tree
// broad phase followed by an exact shape test.
type ObstacleIndex struct {
	tree  *rtreego.Rtree
	items map[ecs.Entity]*indexedShape
}

// NewObstacleIndex creates an empty index.
func NewObstacleIndex() *ObstacleIndex {
	return &ObstacleIndex{
		tree:  rtreego.NewTree(2, 25, 50),
		items: make(map[ecs.Entity]*indexedShape),
	}
}

// Insert adds an obstacle. Inserting the same entity twice is an error.
func (idx *ObstacleIndex) Insert(e ecs.Entity, shape Shape, pos r2.Vec, angle float64) error {
	if _, ok := idx.items[e]; ok {
		return fmt.Errorf("obstacle %v already indexed", e)
	}
	min, max := shape.Bounds(pos, angle)
	rect, err := boxRect(min, max)
	if err != nil {
		return fmt.Errorf("indexing obstacle %v: %w", e, err)
	}
	item := &indexedShape{entity: e, shape: shape, pos: pos, angle: angle, rect: rect}
	idx.tree.Insert(item)
	idx.items[e] = item
	return nil
}

// Remove drops an obstacle. Unknown entities are ignored.
func (idx *ObstacleIndex) Remove(e ecs.Entity) {
	item, ok := idx.items[e]
	if !ok {
		return
	}
	idx.tree.Delete(item)
	delete(idx.items, e)
}

// Len returns the number of indexed obstacles.
func (idx *ObstacleIndex) Len() int { return len(idx.items) }

// QueryCircleInto appends every obstacle overlapping the circle to dst.
func (idx *ObstacleIndex) QueryCircleInto(dst []ecs.Entity, c r2.Vec, r float64) []ecs.Entity {
	if len(idx.items) == 0 {
		return dst
	}
	rect, err := boxRect(r2.Vec{X: c.X - r, Y: c.Y - r}, r2.Vec{X: c.X + r, Y: c.Y + r})
	if err != nil {
		return dst
	}
	for _, s := range idx.tree.SearchIntersect(rect) {
		item := s.(*indexedShape)
		if item.shape.OverlapsCircle(item.pos, item.angle, c, r) {
			dst = append(dst, item.entity)
		}
	}
	return dst
}

func boxRect(min, max r2.Vec) (rtreego.Rect, error) {
	w := max.X - min.X
	h := max.Y - min.Y
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}
	return rtreego.NewRect(rtreego.Point{min.X, min.Y}, []float64{w, h})
}
