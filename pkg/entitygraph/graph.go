package entitygraph

import (
	"sort"

	"github.com/dd0wney/cluso-threatgraph/pkg/entities"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
)

// Node is a vertex in the entity graph. Nodes are keyed by Name: adding
// attributes under an existing name merges into the same node.
type Node struct {
	Name          string
	Description   string
	Type          string
	TimeGenerated string
	StartTime     string
	EndTime       string
	Extra         map[string]string
}

// Graph is an undirected, name-keyed, labeled in-memory graph. It is
// owned exclusively by its Builder for the builder's lifetime and is not
// safe for concurrent mutation; callers must serialize access externally.
type Graph struct {
	nodes map[string]*Node
	adj   map[string]map[string]struct{}
	// order preserves insertion order for stable iteration and export
	order  []string
	logger logging.Logger
}

// NewGraph creates an empty graph
func NewGraph(logger logging.Logger) *Graph {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Graph{
		nodes:  make(map[string]*Node),
		adj:    make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// AddNode inserts or merges a node. Merging an existing key with
// differing attributes is last-write-wins: non-empty incoming fields
// overwrite, and the collision is logged.
func (g *Graph) AddNode(attrs entities.NodeAttrs) {
	existing, ok := g.nodes[attrs.Name]
	if !ok {
		node := &Node{
			Name:          attrs.Name,
			Description:   attrs.Description,
			Type:          attrs.Type,
			TimeGenerated: attrs.TimeGenerated,
			StartTime:     attrs.StartTime,
			EndTime:       attrs.EndTime,
		}
		if len(attrs.Extra) > 0 {
			node.Extra = make(map[string]string, len(attrs.Extra))
			for key, value := range attrs.Extra {
				node.Extra[key] = value
			}
		}
		g.nodes[attrs.Name] = node
		g.adj[attrs.Name] = make(map[string]struct{})
		g.order = append(g.order, attrs.Name)
		return
	}

	collided := false
	if attrs.Description != "" && attrs.Description != existing.Description {
		collided = collided || existing.Description != ""
		existing.Description = attrs.Description
	}
	if attrs.Type != "" && attrs.Type != existing.Type {
		collided = collided || existing.Type != ""
		existing.Type = attrs.Type
	}
	if attrs.TimeGenerated != "" {
		existing.TimeGenerated = attrs.TimeGenerated
	}
	if attrs.StartTime != "" {
		existing.StartTime = attrs.StartTime
	}
	if attrs.EndTime != "" {
		existing.EndTime = attrs.EndTime
	}
	if len(attrs.Extra) > 0 {
		if existing.Extra == nil {
			existing.Extra = make(map[string]string, len(attrs.Extra))
		}
		for key, value := range attrs.Extra {
			existing.Extra[key] = value
		}
	}
	if collided {
		g.logger.Warn("node attribute collision, keeping last write",
			logging.Node(attrs.Name))
	}
}

// HasNode reports whether a node with the given name exists
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Node returns the node with the given name, or nil
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// AddEdge links two existing nodes. Re-adding an existing edge is a
// no-op. Referencing an absent node fails naming the missing side(s).
func (g *Graph) AddEdge(source, target string) error {
	missing := g.missingNodes(source, target)
	if len(missing) > 0 {
		return missingNodeError("add_link", missing...)
	}
	g.adj[source][target] = struct{}{}
	g.adj[target][source] = struct{}{}
	return nil
}

// HasEdge reports whether an edge exists between the two names
func (g *Graph) HasEdge(source, target string) bool {
	neighbors, ok := g.adj[source]
	if !ok {
		return false
	}
	_, ok = neighbors[target]
	return ok
}

// RemoveEdge removes the edge between two nodes. A missing edge (or a
// missing endpoint) is a UserInputError.
func (g *Graph) RemoveEdge(source, target string) error {
	if !g.HasNode(source) || !g.HasNode(target) || !g.HasEdge(source, target) {
		return missingEdgeError("remove_link", source, target)
	}
	delete(g.adj[source], target)
	delete(g.adj[target], source)
	return nil
}

// RemoveNode removes a node and all its edges. A missing node is a
// UserInputError.
func (g *Graph) RemoveNode(name string) error {
	if !g.HasNode(name) {
		return missingNodeError("remove_node", name)
	}
	for neighbor := range g.adj[name] {
		delete(g.adj[neighbor], name)
	}
	delete(g.adj, name)
	delete(g.nodes, name)
	for i, key := range g.order {
		if key == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Compose merges a fragment into the graph: nodes merge by key
// (last-write-wins, see AddNode), edges are added between them.
func (g *Graph) Compose(frag entities.Fragment) {
	for _, attrs := range frag.Nodes {
		g.AddNode(attrs)
	}
	for _, edge := range frag.Edges {
		// fragment edges reference fragment nodes just added
		_ = g.AddEdge(edge[0], edge[1])
	}
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Neighbors returns the sorted neighbor names of a node
func (g *Graph) Neighbors(name string) []string {
	neighbors, ok := g.adj[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(neighbors))
	for neighbor := range neighbors {
		out = append(out, neighbor)
	}
	sort.Strings(out)
	return out
}

// Edges returns each undirected edge exactly once, ordered by the
// insertion order of the source node
func (g *Graph) Edges() [][2]string {
	seen := make(map[[2]string]struct{})
	var out [][2]string
	for _, source := range g.order {
		for _, target := range g.Neighbors(source) {
			key := [2]string{source, target}
			if source > target {
				key = [2]string{target, source}
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges
func (g *Graph) EdgeCount() int {
	total := 0
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total / 2
}

func (g *Graph) missingNodes(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !g.HasNode(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
