// Package systems provides the steering systems of the simulation.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/physics"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	Offset r2.Vec  // Delta from query origin to the entity (toroidal when wrapping)
	DistSq float64 // Squared distance
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid.
// Cells are stretched slightly so a whole number of them tiles the world,
// which keeps wrapped lookups exact at the seams.
type SpatialGrid struct {
	cellW  float64
	cellH  float64
	cols   int
	rows   int
	width  float64
	height float64
	wrap   bool
	cells  [][]ecs.Entity // flat grid of entity lists
}

// NewSpatialGrid creates a spatial grid covering the given world size.
// With wrap set, queries see across the world edges.
func NewSpatialGrid(width, height, cellSize float64, wrap bool) *SpatialGrid {
	cols := max(int(math.Ceil(width/cellSize)), 1)
	rows := max(int(math.Ceil(height/cellSize)), 1)

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &SpatialGrid{
		cellW:  width / float64(cols),
		cellH:  height / float64(rows),
		cols:   cols,
		rows:   rows,
		width:  width,
		height: height,
		wrap:   wrap,
		cells:  cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], e)
}

// MaxQueryResults caps the number of neighbors returned by spatial queries.
// This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// QueryRadiusInto finds entities within radius and appends to dst (up to MaxQueryResults).
// Reuse dst across calls to avoid allocations. Results come in cell order.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float64, exclude ecs.Entity, posMap *ecs.Map[components.Position]) []Neighbor {
	colRadius := int(radius/g.cellW) + 1
	rowRadius := int(radius/g.cellH) + 1
	centerCol := int(math.Floor(x / g.cellW))
	centerRow := int(math.Floor(y / g.cellH))
	radiusSq := radius * radius
	origin := r2.Vec{X: x, Y: y}

	// Without wrap, or when the query spans the whole grid, visit each cell once.
	minCol, maxCol := centerCol-colRadius, centerCol+colRadius
	minRow, maxRow := centerRow-rowRadius, centerRow+rowRadius
	if !g.wrap || 2*colRadius+1 >= g.cols {
		minCol, maxCol = clampInt(minCol, 0, g.cols-1), clampInt(maxCol, 0, g.cols-1)
	}
	if !g.wrap || 2*rowRadius+1 >= g.rows {
		minRow, maxRow = clampInt(minRow, 0, g.rows-1), clampInt(maxRow, 0, g.rows-1)
	}

	for c := minCol; c <= maxCol; c++ {
		for r := minRow; r <= maxRow; r++ {
			col := ((c % g.cols) + g.cols) % g.cols
			row := ((r % g.rows) + g.rows) % g.rows

			for _, e := range g.cells[row*g.cols+col] {
				if e == exclude || !posMap.Has(e) {
					continue
				}
				pos := posMap.Get(e)

				var d r2.Vec
				if g.wrap {
					d = physics.ToroidalDelta(origin, pos.Vec(), g.width, g.height)
				} else {
					d = r2.Sub(pos.Vec(), origin)
				}
				distSq := d.X*d.X + d.Y*d.Y

				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, Offset: d, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}

	return dst
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col := clampInt(int(math.Floor(x/g.cellW)), 0, g.cols-1)
	row := clampInt(int(math.Floor(y/g.cellH)), 0, g.rows-1)
	return row*g.cols + col
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
