package visualization

import (
	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
)

// HierarchicalLayout arranges nodes in levels below their incidents.
// Incident nodes form the root level; when the graph has none, alerts do,
// and failing that the first inserted node.
type HierarchicalLayout struct {
	config *LayoutConfig
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config *LayoutConfig) *HierarchicalLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &HierarchicalLayout{config: config}
}

// ComputeLayout arranges nodes hierarchically
func (hl *HierarchicalLayout) ComputeLayout(g *entitygraph.Graph) (map[string]Position, error) {
	positions := make(map[string]Position)

	nodes := g.Nodes()
	if len(nodes) == 0 {
		return positions, nil
	}

	roots := rootsByType(nodes, "incident")
	if len(roots) == 0 {
		roots = rootsByType(nodes, "alert")
	}
	if len(roots) == 0 {
		roots = []string{nodes[0].Name}
	}

	// Build levels using BFS
	levels := make([][]string, 0)
	visited := make(map[string]bool)
	currentLevel := roots
	for _, name := range roots {
		visited[name] = true
	}

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		nextLevel := make([]string, 0)

		for _, name := range currentLevel {
			for _, neighbor := range g.Neighbors(name) {
				if !visited[neighbor] {
					nextLevel = append(nextLevel, neighbor)
					visited[neighbor] = true
				}
			}
		}

		currentLevel = nextLevel
	}

	// Add disconnected nodes to last level
	for _, node := range nodes {
		if !visited[node.Name] {
			levels[len(levels)-1] = append(levels[len(levels)-1], node.Name)
		}
	}

	// Position nodes
	levelHeight := (hl.config.Height - 2*hl.config.Padding) / float64(len(levels))

	for levelIdx, level := range levels {
		y := hl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		levelWidth := hl.config.Width - 2*hl.config.Padding
		spacing := levelWidth / float64(len(level)+1)

		for nodeIdx, name := range level {
			x := hl.config.Padding + spacing*float64(nodeIdx+1)
			positions[name] = Position{X: x, Y: y}
		}
	}

	return positions, nil
}

func rootsByType(nodes []*entitygraph.Node, nodeType string) []string {
	var roots []string
	for _, node := range nodes {
		if node.Type == nodeType {
			roots = append(roots, node.Name)
		}
	}
	return roots
}
