package visualization

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
)

// Options configures a render pass. Zero values fall back to sensible
// canvas defaults.
type Options struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	NodeSize int     `json:"node_size"`
	FontSize int     `json:"font_size"`
	Timeline bool    `json:"timeline"`
	// Layout names the algorithm: force (default), circular, hierarchical
	Layout string `json:"layout"`
	// Seed fixes the force layout's starting positions
	Seed int64 `json:"seed"`
}

func (o *Options) applyDefaults() {
	if o.Width == 0 {
		o.Width = 800
	}
	if o.Height == 0 {
		o.Height = 600
	}
	if o.NodeSize == 0 {
		o.NodeSize = 25
	}
	if o.FontSize == 0 {
		o.FontSize = 10
	}
}

func (o *Options) layout() (Layout, error) {
	config := &LayoutConfig{Width: o.Width, Height: o.Height, Seed: o.Seed}
	switch o.Layout {
	case "", "force":
		return NewForceDirectedLayout(config), nil
	case "circular":
		return NewCircularLayout(config), nil
	case "hierarchical":
		return NewHierarchicalLayout(config), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", o.Layout)
	}
}

// NodeView is one positioned, colored node in a rendered document
type NodeView struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color"`
	Size        int     `json:"size"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// EdgeView is one rendered edge
type EdgeView struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Document is a fully laid-out render of a graph, ready for a client to
// draw. An empty graph produces an empty document, not an error.
type Document struct {
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	FontSize int        `json:"font_size"`
	Nodes    []NodeView `json:"nodes"`
	Edges    []EdgeView `json:"edges"`
	Timeline *Timeline  `json:"timeline,omitempty"`
}

// Render lays out the graph and assembles the document
func Render(g *entitygraph.Graph, opts Options) (*Document, error) {
	opts.applyDefaults()
	layout, err := opts.layout()
	if err != nil {
		return nil, err
	}
	positions, err := layout.ComputeLayout(g)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Width:    opts.Width,
		Height:   opts.Height,
		FontSize: opts.FontSize,
		Nodes:    make([]NodeView, 0, g.NodeCount()),
		Edges:    make([]EdgeView, 0, g.EdgeCount()),
	}

	for _, node := range g.Nodes() {
		pos := positions[node.Name]
		doc.Nodes = append(doc.Nodes, NodeView{
			Name:        node.Name,
			Type:        node.Type,
			Description: node.Description,
			Color:       ColorForType(node.Type),
			Size:        opts.NodeSize,
			X:           pos.X,
			Y:           pos.Y,
		})
	}

	for _, edge := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeView{Source: edge[0], Target: edge[1]})
	}

	if opts.Timeline {
		timeline := BuildTimeline(g)
		doc.Timeline = &timeline
	}

	return doc, nil
}

// RenderJSON renders the graph to a JSON document
func RenderJSON(g *entitygraph.Graph, opts Options) ([]byte, error) {
	doc, err := Render(g, opts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

var terminalPalette = map[string]lipgloss.Style{
	colorIncident: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	colorAlert:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	colorNote:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	colorEntity:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
}

var edgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// RenderTerminal renders the graph as styled text for terminal display:
// one line per node with its typed color and sorted neighbors, plus a
// timeline section when requested.
func RenderTerminal(g *entitygraph.Graph, opts Options) (string, error) {
	doc, err := Render(g, opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, node := range doc.Nodes {
		style := terminalPalette[node.Color]
		b.WriteString(style.Render(fmt.Sprintf("● %s", node.Name)))
		if node.Type != "" {
			b.WriteString(edgeStyle.Render(fmt.Sprintf(" [%s]", node.Type)))
		}
		neighbors := g.Neighbors(node.Name)
		if len(neighbors) > 0 {
			b.WriteString(edgeStyle.Render(" -- " + strings.Join(neighbors, ", ")))
		}
		b.WriteString("\n")
	}

	if doc.Timeline != nil && doc.Timeline.Mode != TimelineNone {
		b.WriteString("\n")
		b.WriteString(edgeStyle.Render(fmt.Sprintf("timeline (%s):", doc.Timeline.Mode)))
		b.WriteString("\n")
		items := make([]TimelineItem, len(doc.Timeline.Items))
		copy(items, doc.Timeline.Items)
		sort.Slice(items, func(i, j int) bool {
			return items[i].StartTime.Before(items[j].StartTime)
		})
		for _, item := range items {
			style := terminalPalette[item.Color]
			line := fmt.Sprintf("  %s  %s", item.StartTime.Format("2006-01-02 15:04:05"), item.Name)
			if item.EndTime != nil {
				line += fmt.Sprintf(" (until %s)", item.EndTime.Format("2006-01-02 15:04:05"))
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}
