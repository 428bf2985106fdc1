package visualization

import (
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
)

// Timeline modes. Duration plots nodes as start/end intervals, discrete
// plots single points, none means the graph carries no usable timestamps.
const (
	TimelineDuration = "duration"
	TimelineDiscrete = "discrete"
	TimelineNone     = "none"
)

// TimelineItem is one timestamped node on the timeline overlay
type TimelineItem struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Color     string     `json:"color"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Timeline is the overlay drawn alongside a rendered graph
type Timeline struct {
	Mode  string         `json:"mode"`
	Items []TimelineItem `json:"items"`
}

// BuildTimeline derives a timeline from the graph's timestamped nodes.
// Nodes without any timestamp are left off the overlay; if none qualify
// the mode is none. The mode is duration as soon as one node carries an
// end time, discrete otherwise.
func BuildTimeline(g *entitygraph.Graph) Timeline {
	timeline := Timeline{Mode: TimelineNone}

	for _, row := range g.ToTable() {
		if row.StartTime == nil {
			continue
		}
		item := TimelineItem{
			Name:      row.Name,
			Type:      row.Type,
			Color:     ColorForType(row.Type),
			StartTime: *row.StartTime,
			EndTime:   row.EndTime,
		}
		if row.EndTime != nil {
			timeline.Mode = TimelineDuration
		} else if timeline.Mode == TimelineNone {
			timeline.Mode = TimelineDiscrete
		}
		timeline.Items = append(timeline.Items, item)
	}

	return timeline
}
