package visualization

import (
	"math"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-threatgraph/pkg/entities"
	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
)

func testGraph(t *testing.T, names ...string) *entitygraph.Graph {
	t.Helper()
	g := entitygraph.NewGraph(nil)
	for _, name := range names {
		g.AddNode(entities.NodeAttrs{Name: name, Type: "host"})
	}
	return g
}

// TestForceDirectedLayout tests the force-directed layout algorithm
func TestForceDirectedLayout(t *testing.T) {
	g := testGraph(t, "alice-pc", "bob-pc", "charlie-pc")
	if err := g.AddEdge("alice-pc", "bob-pc"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("bob-pc", "charlie-pc"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	layout := NewForceDirectedLayout(&LayoutConfig{
		Width:      800,
		Height:     600,
		Iterations: 50,
	})

	positions, err := layout.ComputeLayout(g)
	if err != nil {
		t.Fatalf("Layout computation failed: %v", err)
	}

	// Verify all nodes have positions
	if len(positions) != 3 {
		t.Errorf("Expected 3 positions, got %d", len(positions))
	}

	// Verify positions are within bounds
	for name, pos := range positions {
		if pos.X < 0 || pos.X > 800 {
			t.Errorf("Node %s X position %f out of bounds", name, pos.X)
		}
		if pos.Y < 0 || pos.Y > 600 {
			t.Errorf("Node %s Y position %f out of bounds", name, pos.Y)
		}
	}

	// The unconnected pair should end up furthest apart
	dist12 := distance(positions["alice-pc"], positions["bob-pc"])
	dist23 := distance(positions["bob-pc"], positions["charlie-pc"])
	dist13 := distance(positions["alice-pc"], positions["charlie-pc"])

	if dist13 < dist12 || dist13 < dist23 {
		t.Error("Force-directed layout did not separate unconnected nodes properly")
	}
}

// TestForceDirectedLayoutDeterministic tests that the same seed produces
// the same positions
func TestForceDirectedLayoutDeterministic(t *testing.T) {
	build := func() map[string]Position {
		g := testGraph(t, "n1", "n2", "n3", "n4")
		g.AddEdge("n1", "n2")
		g.AddEdge("n2", "n3")
		layout := NewForceDirectedLayout(&LayoutConfig{
			Width:      400,
			Height:     400,
			Iterations: 30,
			Seed:       42,
		})
		positions, err := layout.ComputeLayout(g)
		if err != nil {
			t.Fatalf("Layout computation failed: %v", err)
		}
		return positions
	}

	first := build()
	second := build()
	for name, pos := range first {
		if second[name] != pos {
			t.Errorf("Node %s moved between runs: %v vs %v", name, pos, second[name])
		}
	}
}

// TestCircularLayout tests circular layout algorithm
func TestCircularLayout(t *testing.T) {
	g := testGraph(t, "n1", "n2", "n3", "n4", "n5")

	layout := NewCircularLayout(&LayoutConfig{
		Width:  400,
		Height: 400,
	})

	positions, err := layout.ComputeLayout(g)
	if err != nil {
		t.Fatalf("Layout computation failed: %v", err)
	}

	// Verify all nodes are roughly the same distance from center
	centerX, centerY := 200.0, 200.0
	distances := make([]float64, 0, len(positions))

	for _, pos := range positions {
		dx := pos.X - centerX
		dy := pos.Y - centerY
		distances = append(distances, math.Sqrt(dx*dx+dy*dy))
	}

	// All distances should be approximately equal (within 5% tolerance)
	avgDist := distances[0]
	for _, dist := range distances {
		ratio := dist / avgDist
		if ratio < 0.95 || ratio > 1.05 {
			t.Errorf("Circular layout not uniform: distance ratio %f", ratio)
		}
	}
}

// TestHierarchicalLayout tests that incidents sit above their alerts and
// entities
func TestHierarchicalLayout(t *testing.T) {
	g := entitygraph.NewGraph(nil)
	g.AddNode(entities.NodeAttrs{Name: "Incident 1", Type: "incident"})
	g.AddNode(entities.NodeAttrs{Name: "Alert A", Type: "alert"})
	g.AddNode(entities.NodeAttrs{Name: "Alert B", Type: "alert"})
	g.AddNode(entities.NodeAttrs{Name: "host-1", Type: "host"})
	g.AddNode(entities.NodeAttrs{Name: "203.0.113.7", Type: "ipaddress"})
	g.AddEdge("Incident 1", "Alert A")
	g.AddEdge("Incident 1", "Alert B")
	g.AddEdge("Alert A", "host-1")
	g.AddEdge("Alert A", "203.0.113.7")

	layout := NewHierarchicalLayout(&LayoutConfig{
		Width:  600,
		Height: 400,
	})

	positions, err := layout.ComputeLayout(g)
	if err != nil {
		t.Fatalf("Layout computation failed: %v", err)
	}

	// Verify the incident is at top (lowest Y value)
	rootY := positions["Incident 1"].Y
	for name, pos := range positions {
		if name != "Incident 1" && pos.Y <= rootY {
			t.Errorf("Node %s has Y=%f, should be below incident Y=%f", name, pos.Y, rootY)
		}
	}

	// Alerts should be at same level
	if math.Abs(positions["Alert A"].Y-positions["Alert B"].Y) > 1.0 {
		t.Errorf("Alerts not at same level: Y1=%f, Y2=%f",
			positions["Alert A"].Y, positions["Alert B"].Y)
	}

	// Entities should be at same level
	if math.Abs(positions["host-1"].Y-positions["203.0.113.7"].Y) > 1.0 {
		t.Errorf("Entities not at same level: Y1=%f, Y2=%f",
			positions["host-1"].Y, positions["203.0.113.7"].Y)
	}
}

// TestLayoutNormalization tests that coordinates are normalized to bounds
func TestLayoutNormalization(t *testing.T) {
	g := testGraph(t, "n1", "n2", "n3")

	layout := NewForceDirectedLayout(&LayoutConfig{
		Width:      100,
		Height:     100,
		Iterations: 10,
	})

	positions, _ := layout.ComputeLayout(g)

	// All positions should be within bounds
	for name, pos := range positions {
		if pos.X < 0 || pos.X > 100 {
			t.Errorf("Node %s X=%f out of bounds [0, 100]", name, pos.X)
		}
		if pos.Y < 0 || pos.Y > 100 {
			t.Errorf("Node %s Y=%f out of bounds [0, 100]", name, pos.Y)
		}
	}
}

// TestEmptyGraph tests layout and render on an empty graph
func TestEmptyGraph(t *testing.T) {
	g := entitygraph.NewGraph(nil)

	layout := NewForceDirectedLayout(&LayoutConfig{
		Width:  800,
		Height: 600,
	})

	positions, err := layout.ComputeLayout(g)
	if err != nil {
		t.Fatalf("Empty graph should not error: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("Expected 0 positions for empty graph, got %d", len(positions))
	}

	doc, err := Render(g, Options{})
	if err != nil {
		t.Fatalf("Empty graph render should not error: %v", err)
	}
	if len(doc.Nodes) != 0 || len(doc.Edges) != 0 {
		t.Errorf("Expected empty document, got %d nodes, %d edges",
			len(doc.Nodes), len(doc.Edges))
	}
}

// TestSingleNodeLayout tests layout with single node
func TestSingleNodeLayout(t *testing.T) {
	g := testGraph(t, "only")

	layout := NewForceDirectedLayout(&LayoutConfig{
		Width:  800,
		Height: 600,
	})

	positions, err := layout.ComputeLayout(g)
	if err != nil {
		t.Fatalf("Single node layout failed: %v", err)
	}

	if len(positions) != 1 {
		t.Errorf("Expected 1 position, got %d", len(positions))
	}

	// Single node should be centered
	pos := positions["only"]
	if math.Abs(pos.X-400) > 100 || math.Abs(pos.Y-300) > 100 {
		t.Errorf("Single node not centered: (%f, %f)", pos.X, pos.Y)
	}
}

// TestColorForType tests the type-to-color mapping
func TestColorForType(t *testing.T) {
	tests := []struct {
		nodeType string
		want     string
	}{
		{"incident", "red"},
		{"alert", "orange"},
		{"alerts", "orange"},
		{"securityalert", "orange"},
		{"analystnote", "blue"},
		{"host", "green"},
		{"", "green"},
	}
	for _, tt := range tests {
		if got := ColorForType(tt.nodeType); got != tt.want {
			t.Errorf("ColorForType(%q) = %q, want %q", tt.nodeType, got, tt.want)
		}
	}
}

// TestRenderJSON tests exporting a laid-out graph to JSON
func TestRenderJSON(t *testing.T) {
	g := entitygraph.NewGraph(nil)
	g.AddNode(entities.NodeAttrs{Name: "Incident 1", Type: "incident"})
	g.AddNode(entities.NodeAttrs{Name: "Suspicious Logon", Type: "alert"})
	g.AddEdge("Incident 1", "Suspicious Logon")

	jsonData, err := RenderJSON(g, Options{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("JSON render failed: %v", err)
	}

	jsonStr := string(jsonData)
	if !strings.Contains(jsonStr, "Incident 1") || !strings.Contains(jsonStr, "Suspicious Logon") {
		t.Error("JSON render missing node data")
	}
	if !strings.Contains(jsonStr, `"color":"red"`) {
		t.Error("JSON render missing incident color")
	}
}

// TestRenderTimelineModes tests the timeline mode selection
func TestRenderTimelineModes(t *testing.T) {
	t.Run("none without timestamps", func(t *testing.T) {
		g := testGraph(t, "n1")
		timeline := BuildTimeline(g)
		if timeline.Mode != TimelineNone {
			t.Errorf("Expected mode none, got %s", timeline.Mode)
		}
	})

	t.Run("discrete with only start times", func(t *testing.T) {
		g := entitygraph.NewGraph(nil)
		g.AddNode(entities.NodeAttrs{
			Name: "Alert A", Type: "alert",
			TimeGenerated: "2024-05-01T10:00:00Z",
		})
		timeline := BuildTimeline(g)
		if timeline.Mode != TimelineDiscrete {
			t.Errorf("Expected mode discrete, got %s", timeline.Mode)
		}
		if len(timeline.Items) != 1 {
			t.Fatalf("Expected 1 timeline item, got %d", len(timeline.Items))
		}
	})

	t.Run("duration when an end time exists", func(t *testing.T) {
		g := entitygraph.NewGraph(nil)
		g.AddNode(entities.NodeAttrs{
			Name: "Incident 1", Type: "incident",
			StartTime: "2024-05-01T10:00:00Z",
			EndTime:   "2024-05-01T12:00:00Z",
		})
		g.AddNode(entities.NodeAttrs{
			Name: "Alert A", Type: "alert",
			TimeGenerated: "2024-05-01T10:30:00Z",
		})
		timeline := BuildTimeline(g)
		if timeline.Mode != TimelineDuration {
			t.Errorf("Expected mode duration, got %s", timeline.Mode)
		}
		if len(timeline.Items) != 2 {
			t.Errorf("Expected 2 timeline items, got %d", len(timeline.Items))
		}
	})
}

// TestRenderTerminal tests the terminal renderer output
func TestRenderTerminal(t *testing.T) {
	g := entitygraph.NewGraph(nil)
	g.AddNode(entities.NodeAttrs{
		Name: "Incident 1", Type: "incident",
		TimeGenerated: "2024-05-01T10:00:00Z",
	})
	g.AddNode(entities.NodeAttrs{Name: "Alert A", Type: "alert"})
	g.AddEdge("Incident 1", "Alert A")

	out, err := RenderTerminal(g, Options{Timeline: true})
	if err != nil {
		t.Fatalf("Terminal render failed: %v", err)
	}
	if !strings.Contains(out, "Incident 1") || !strings.Contains(out, "Alert A") {
		t.Error("Terminal render missing node names")
	}
	if !strings.Contains(out, "timeline (discrete):") {
		t.Error("Terminal render missing timeline section")
	}
}

// Helper function to calculate distance between two positions
func distance(p1, p2 Position) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return math.Sqrt(dx*dx + dy*dy)
}
