package entitygraph

import (
	"testing"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/entities"
)

func TestToTable(t *testing.T) {
	g := NewGraph(nil)
	g.AddNode(entities.NodeAttrs{
		Name:          "Incident 1",
		Type:          "incident",
		Description:   "lateral movement",
		TimeGenerated: "2024-05-01T08:00:00Z",
		StartTime:     "2024-05-01T07:30:00Z",
		EndTime:       "2024-05-01T09:00:00Z",
	})
	g.AddNode(entities.NodeAttrs{
		Name: "victim-pc",
		Type: "host",
	})

	rows := g.ToTable()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	// Insertion order is preserved
	if rows[0].Name != "Incident 1" || rows[1].Name != "victim-pc" {
		t.Errorf("Rows out of order: %s, %s", rows[0].Name, rows[1].Name)
	}

	incident := rows[0]
	if incident.TimeGenerated == nil || !incident.TimeGenerated.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("TimeGenerated not parsed: %v", incident.TimeGenerated)
	}
	if incident.StartTime == nil || !incident.StartTime.Equal(time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("StartTime not parsed: %v", incident.StartTime)
	}
	if incident.EndTime == nil || !incident.EndTime.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("EndTime not parsed: %v", incident.EndTime)
	}

	host := rows[1]
	if host.TimeGenerated != nil || host.StartTime != nil || host.EndTime != nil {
		t.Error("Timestamps should be nil for a node without them")
	}
}

func TestToTableTimestampFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *time.Time
	}{
		{
			name: "rfc3339",
			raw:  "2024-05-01T08:00:00Z",
			want: timePtr(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		},
		{
			name: "naive datetime assumes utc",
			raw:  "2024-05-01 08:00:00",
			want: timePtr(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		},
		{
			name: "zoned converts to utc",
			raw:  "2024-05-01T10:00:00+02:00",
			want: timePtr(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		},
		{
			name: "none sentinel",
			raw:  "None",
			want: nil,
		},
		{
			name: "dash sentinel",
			raw:  "-",
			want: nil,
		},
		{
			name: "garbage",
			raw:  "not a timestamp",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(nil)
			g.AddNode(entities.NodeAttrs{Name: "n", TimeGenerated: tt.raw})

			rows := g.ToTable()
			got := rows[0].TimeGenerated
			if tt.want == nil {
				if got != nil {
					t.Errorf("Expected nil, got %v", got)
				}
				return
			}
			if got == nil || !got.Equal(*tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestToTableStartTimeFallback(t *testing.T) {
	g := NewGraph(nil)
	g.AddNode(entities.NodeAttrs{
		Name:          "Alert A",
		TimeGenerated: "2024-05-01T08:00:00Z",
	})

	rows := g.ToTable()
	if rows[0].StartTime == nil {
		t.Fatal("StartTime should fall back to TimeGenerated")
	}
	if !rows[0].StartTime.Equal(*rows[0].TimeGenerated) {
		t.Errorf("Fallback mismatch: %v vs %v", rows[0].StartTime, rows[0].TimeGenerated)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
