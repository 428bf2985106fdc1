package visualization

import (
	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Iterations int     // Number of iterations for iterative algorithms
	Padding    float64 // Padding from edges
	Seed       int64   // Random seed; same seed, same positions
}

// Layout interface for different layout algorithms
type Layout interface {
	ComputeLayout(g *entitygraph.Graph) (map[string]Position, error)
}
