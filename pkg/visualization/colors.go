package visualization

// Node colors by type, matching the conventional triage palette:
// incidents red, alerts orange, analyst notes blue, everything else green.
const (
	colorIncident = "red"
	colorAlert    = "orange"
	colorNote     = "blue"
	colorEntity   = "green"
)

// ColorForType maps a node type to its display color
func ColorForType(nodeType string) string {
	switch nodeType {
	case "incident":
		return colorIncident
	case "alert", "alerts", "securityalert":
		return colorAlert
	case "analystnote":
		return colorNote
	default:
		return colorEntity
	}
}
