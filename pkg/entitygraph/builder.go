package entitygraph

import (
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-threatgraph/pkg/entities"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
)

// Seed is the tagged union of inputs a Builder can be constructed from.
// The concrete variants are SeedIncident, SeedAlert, SeedEntity, SeedRow
// and SeedRows; anything else is rejected as a UserInputError.
type Seed interface {
	seed()
}

// SeedIncident seeds the graph from an incident
type SeedIncident struct{ Incident *entities.Incident }

// SeedAlert seeds the graph from a single alert
type SeedAlert struct{ Alert *entities.Alert }

// SeedEntity seeds the graph from a generic entity
type SeedEntity struct{ Entity *entities.Entity }

// SeedRow seeds the graph from one tabular row (incident or alert shape)
type SeedRow struct{ Row map[string]any }

// SeedRows seeds the graph from tabular rows, expanded row-by-row
type SeedRows struct{ Rows []map[string]any }

func (SeedIncident) seed() {}
func (SeedAlert) seed()    {}
func (SeedEntity) seed()   {}
func (SeedRow) seed()      {}
func (SeedRows) seed()     {}

// Builder incrementally builds a labeled graph from heterogeneous
// security-entity inputs and exposes it for rendering or tabular export.
// It exclusively owns its graph; inputs are read-only sources that are
// copied, never mutated. Not safe for concurrent use.
type Builder struct {
	graph   *Graph
	logger  logging.Logger
	metrics *metrics.Registry
	// now is swappable in tests
	now func() time.Time
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// WithMetrics reports graph size and operations into the given registry
func WithMetrics(reg *metrics.Registry) BuilderOption {
	return func(b *Builder) { b.metrics = reg }
}

// New creates a builder, optionally seeded. A nil seed yields an empty
// graph; an unrecognized variant is a UserInputError.
func New(seed Seed, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		logger: logging.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.graph = NewGraph(b.logger)

	if seed == nil {
		return b, nil
	}

	switch s := seed.(type) {
	case SeedIncident:
		b.AddIncident(s.Incident)
	case SeedAlert:
		b.AddAlert(s.Alert)
	case SeedEntity:
		b.AddEntity(s.Entity, "")
	case SeedRow:
		if err := b.AddRows([]map[string]any{s.Row}); err != nil {
			return nil, err
		}
	case SeedRows:
		if err := b.AddRows(s.Rows); err != nil {
			return nil, err
		}
	default:
		return nil, &UserInputError{Op: "new_graph", Msg: "unrecognized seed input variant"}
	}
	return b, nil
}

// Graph returns the underlying graph
func (b *Builder) Graph() *Graph {
	return b.graph
}

// AddIncident adds an incident node, its alerts (linked to the incident)
// and its directly-attached entities. Entities already introduced
// transitively through one of the alerts are removed first, by content
// hash, so an entity listed both on the incident and inside an alert
// produces exactly one node.
func (b *Builder) AddIncident(incident *entities.Incident) {
	if incident == nil {
		return
	}
	b.graph.AddNode(incident.Attrs())

	for _, alert := range incident.Alerts {
		b.addAlert(alert, incident.Name)
	}

	for _, ent := range dedupeEntities(incident.Alerts, incident.Entities) {
		b.AddEntity(ent, incident.Name)
	}

	b.logger.Info("incident added to graph",
		logging.Node(incident.Name),
		logging.Count(len(incident.Alerts)))
	b.updateSizeMetrics()
}

// AddAlert adds a free-standing alert node and its entities
func (b *Builder) AddAlert(alert *entities.Alert) {
	b.addAlert(alert, "")
	b.updateSizeMetrics()
}

func (b *Builder) addAlert(alert *entities.Alert, incidentName string) {
	if alert == nil {
		return
	}
	b.graph.AddNode(alert.Attrs())
	for _, ent := range alert.Entities {
		b.AddEntity(ent, alert.Name)
	}
	if incidentName != "" {
		// the incident node is present by construction
		_ = b.graph.AddEdge(incidentName, alert.Name)
	}
}

// AddEntity merges the entity's local subgraph into the master graph and
// optionally links it to an existing node by name.
func (b *Builder) AddEntity(ent *entities.Entity, attachedTo string) {
	if ent == nil {
		return
	}
	b.graph.Compose(ent.Fragment())
	if attachedTo != "" {
		if err := b.graph.AddEdge(attachedTo, ent.Name); err != nil {
			b.logger.Warn("could not attach entity",
				logging.Node(ent.Name),
				logging.Error(err))
		}
	}
	b.updateSizeMetrics()
}

// AddRows expands tabular rows into incident or alert insertions,
// dispatching per row on the columns present.
func (b *Builder) AddRows(rows []map[string]any) error {
	for _, row := range rows {
		if _, ok := row["name"]; ok {
			incident, err := entities.IncidentFromRow(row)
			if err != nil {
				return &UserInputError{Op: "add_rows", Msg: err.Error()}
			}
			b.AddIncident(incident)
			continue
		}
		if _, ok := row["AlertName"]; ok {
			alert, err := entities.AlertFromRow(row)
			if err != nil {
				return &UserInputError{Op: "add_rows", Msg: err.Error()}
			}
			b.AddAlert(alert)
			continue
		}
		return &UserInputError{Op: "add_rows", Msg: "row is neither an incident nor an alert"}
	}
	return nil
}

// AddNote inserts a free-standing annotation node timestamped at
// insertion time (UTC), optionally linked to one or more existing nodes.
func (b *Builder) AddNote(name, description string, attachedTo ...string) error {
	b.graph.AddNode(entities.NodeAttrs{
		Name:          name,
		Description:   description,
		Type:          "analystnote",
		TimeGenerated: b.now().UTC().Format(time.RFC3339),
		Extra:         map[string]string{"NoteID": uuid.NewString()},
	})
	for _, target := range attachedTo {
		if err := b.AddLink(name, target); err != nil {
			return err
		}
	}
	b.recordOp("add_note", "ok")
	return nil
}

// AddLink adds an undirected link between two existing nodes
func (b *Builder) AddLink(source, target string) error {
	if err := b.graph.AddEdge(source, target); err != nil {
		b.recordOp("add_link", "error")
		b.logger.Debug("graph operation rejected",
			logging.Operation("add_link"),
			logging.Error(err))
		return err
	}
	b.recordOp("add_link", "ok")
	b.updateSizeMetrics()
	return nil
}

// RemoveLink removes the link between two nodes
func (b *Builder) RemoveLink(source, target string) error {
	if err := b.graph.RemoveEdge(source, target); err != nil {
		b.recordOp("remove_link", "error")
		return err
	}
	b.recordOp("remove_link", "ok")
	b.updateSizeMetrics()
	return nil
}

// RemoveNode removes a node and its links
func (b *Builder) RemoveNode(name string) error {
	if err := b.graph.RemoveNode(name); err != nil {
		b.recordOp("remove_node", "error")
		return err
	}
	b.recordOp("remove_node", "ok")
	b.updateSizeMetrics()
	return nil
}

// dedupeEntities returns the incident-level entities that are NOT already
// present inside one of the alerts, compared by canonical content hash.
func dedupeEntities(alerts []*entities.Alert, ents []*entities.Entity) []*entities.Entity {
	seen := make(map[uint64]struct{})
	for _, alert := range alerts {
		for _, ent := range alert.Entities {
			seen[ent.ContentHash()] = struct{}{}
		}
	}
	out := make([]*entities.Entity, 0, len(ents))
	for _, ent := range ents {
		if _, dup := seen[ent.ContentHash()]; dup {
			continue
		}
		out = append(out, ent)
	}
	return out
}

func (b *Builder) updateSizeMetrics() {
	if b.metrics != nil {
		b.metrics.UpdateGraphSize(b.graph.NodeCount(), b.graph.EdgeCount())
	}
}

func (b *Builder) recordOp(operation, status string) {
	if b.metrics != nil {
		b.metrics.RecordGraphOp(operation, status)
	}
}
