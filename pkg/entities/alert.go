package entities

import "fmt"

// Alert is a detection event. Alerts nest under incidents and carry the
// entities observed in the detection.
type Alert struct {
	ID            string
	Name          string
	Severity      string
	AlertType     string
	Description   string
	TimeGenerated string
	StartTime     string
	EndTime       string
	Entities      []*Entity
}

// Attrs returns the alert's node attributes
func (a *Alert) Attrs() NodeAttrs {
	return NodeAttrs{
		Name:          a.Name,
		Description:   a.Description,
		Type:          "alert",
		TimeGenerated: a.TimeGenerated,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Extra: map[string]string{
			"Severity":  a.Severity,
			"AlertType": a.AlertType,
		},
	}
}

// AlertFromRow builds an alert from a generic tabular row. The row must
// carry an "AlertName" column; remaining known columns are optional.
func AlertFromRow(row map[string]any) (*Alert, error) {
	name, ok := rowString(row, "AlertName")
	if !ok {
		return nil, fmt.Errorf("row is not an alert: missing AlertName")
	}
	alert := &Alert{Name: name}
	alert.ID, _ = rowString(row, "SystemAlertId")
	alert.Severity, _ = rowString(row, "Severity")
	alert.AlertType, _ = rowString(row, "AlertType")
	alert.Description, _ = rowString(row, "Description")
	alert.TimeGenerated, _ = rowString(row, "TimeGenerated")
	alert.StartTime, _ = rowString(row, "StartTime")
	alert.EndTime, _ = rowString(row, "EndTime")
	return alert, nil
}

func rowString(row map[string]any, key string) (string, bool) {
	raw, ok := row[key]
	if !ok || raw == nil {
		return "", false
	}
	if s, ok := raw.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", raw), true
}
