package physics

// Layer is a collision category bit. Ray casts take a mask of layers.
type Layer uint16

const (
	LayerBoids Layer = 1 << iota
	LayerVisionCones
	LayerTargets
	LayerObstacles
)

// LayerAll matches every category.
const LayerAll Layer = 0xFFFF
