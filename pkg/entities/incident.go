package entities

import "fmt"

// Incident is a top-level grouping of alerts and directly-attached
// entities.
type Incident struct {
	ID            string
	Name          string
	Severity      string
	Description   string
	TimeGenerated string
	StartTime     string
	EndTime       string
	Alerts        []*Alert
	// Entities are attached directly to the incident; they may overlap
	// with entities nested in the incident's alerts
	Entities []*Entity
}

// Attrs returns the incident's node attributes
func (i *Incident) Attrs() NodeAttrs {
	return NodeAttrs{
		Name:          i.Name,
		Description:   i.Description,
		Type:          "incident",
		TimeGenerated: i.TimeGenerated,
		StartTime:     i.StartTime,
		EndTime:       i.EndTime,
		Extra: map[string]string{
			"Severity": i.Severity,
		},
	}
}

// IncidentFromRow builds an incident from a generic tabular row. The row
// must carry a "name" column (the incident API shape); remaining known
// columns are optional.
func IncidentFromRow(row map[string]any) (*Incident, error) {
	name, ok := rowString(row, "name")
	if !ok {
		return nil, fmt.Errorf("row is not an incident: missing name")
	}
	incident := &Incident{Name: name}
	incident.ID, _ = rowString(row, "id")
	incident.Severity, _ = rowString(row, "properties.severity")
	incident.Description, _ = rowString(row, "properties.description")
	incident.TimeGenerated, _ = rowString(row, "properties.createdTimeUtc")
	incident.StartTime, _ = rowString(row, "properties.firstActivityTimeUtc")
	incident.EndTime, _ = rowString(row, "properties.lastActivityTimeUtc")
	return incident, nil
}
