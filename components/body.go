package components

// Body holds the collider of an entity.
// Agents and targets collide as circles.
type Body struct {
	Radius float64
}
