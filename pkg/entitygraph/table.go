package entitygraph

import (
	"time"

	"github.com/araddon/dateparse"

	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
)

// Row is one node flattened for tabular export. Timestamp columns are
// parsed to UTC; a missing or unparseable value is nil, never an error.
type Row struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	TimeGenerated *time.Time `json:"time_generated"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
}

// ToTable flattens the graph into one row per node, in node insertion
// order. StartTime falls back to TimeGenerated when absent so every row
// with any timestamp has an interval start.
func (g *Graph) ToTable() []Row {
	rows := make([]Row, 0, g.NodeCount())
	for _, node := range g.Nodes() {
		row := Row{
			Name:          node.Name,
			Description:   node.Description,
			Type:          node.Type,
			TimeGenerated: g.parseTime(node.Name, node.TimeGenerated),
			StartTime:     g.parseTime(node.Name, node.StartTime),
			EndTime:       g.parseTime(node.Name, node.EndTime),
		}
		if row.StartTime == nil {
			row.StartTime = row.TimeGenerated
		}
		rows = append(rows, row)
	}
	return rows
}

// parseTime parses a raw timestamp string in any common format, assuming
// UTC when no zone is present. Sentinel strings for "no value" map to nil.
func (g *Graph) parseTime(node, raw string) *time.Time {
	switch raw {
	case "", "None", "-":
		return nil
	}
	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		g.logger.Warn("unparseable timestamp in node attributes",
			logging.Node(node),
			logging.String("value", raw))
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
