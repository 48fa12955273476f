package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Capturer returns the first agent whose body overlaps the target circle.
// Only agent bodies count; vision regions never capture.
func (p *Perceiver) Capturer(target ecs.Entity, pos r2.Vec, radius float64, scratch []Neighbor) (ecs.Entity, bool, []Neighbor) {
	scratch = p.Agents.QueryRadiusInto(scratch[:0], pos.X, pos.Y, radius+p.MaxBodyRadius, target, p.Maps.Pos)
	for _, n := range scratch {
		if !p.Maps.Agent.Has(n.E) {
			continue
		}
		var body float64
		if p.Maps.Body.Has(n.E) {
			body = p.Maps.Body.Get(n.E).Radius
		}
		if reach := radius + body; n.DistSq <= reach*reach {
			return n.E, true, scratch
		}
	}
	return ecs.Entity{}, false, scratch
}
