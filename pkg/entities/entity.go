// Package entities models the security objects fed into the entity graph:
// generic entities (hosts, IPs, accounts, files...), alerts, and incidents.
// Instances are read-only sources; the graph builder copies their
// attributes into nodes and never mutates them.
package entities

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// NodeAttrs is the neutral attribute set a graph node carries. Time
// fields are kept as raw strings; parsing to timezone-aware timestamps
// happens at table export.
type NodeAttrs struct {
	Name          string
	Description   string
	Type          string
	TimeGenerated string
	StartTime     string
	EndTime       string
	Extra         map[string]string
}

// Fragment is the local subgraph an entity (or alert/incident) owns:
// its own node plus any related sub-entities, with edges between them.
type Fragment struct {
	Nodes []NodeAttrs
	// Edges are (source name, target name) pairs; both ends must be in Nodes
	Edges [][2]string
}

// Entity is a generic security object: user, host, IP, file, and so on.
type Entity struct {
	Name          string
	Type          string
	Description   string
	TimeGenerated string
	StartTime     string
	EndTime       string
	// Properties are additional provider-specific attributes
	Properties map[string]string
	// Related holds sub-entities this entity owns (e.g. a host's IP)
	Related []*Entity
}

// Attrs returns the entity's node attributes
func (e *Entity) Attrs() NodeAttrs {
	return NodeAttrs{
		Name:          e.Name,
		Description:   e.Description,
		Type:          e.Type,
		TimeGenerated: e.TimeGenerated,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		Extra:         e.Properties,
	}
}

// Fragment returns the entity's local subgraph: the entity itself plus
// its related sub-entities, each linked to it.
func (e *Entity) Fragment() Fragment {
	frag := Fragment{Nodes: []NodeAttrs{e.Attrs()}}
	for _, related := range e.Related {
		sub := related.Fragment()
		frag.Nodes = append(frag.Nodes, sub.Nodes...)
		frag.Edges = append(frag.Edges, sub.Edges...)
		frag.Edges = append(frag.Edges, [2]string{e.Name, related.Name})
	}
	return frag
}

// ContentHash returns a canonical 64-bit hash of the entity's identifying
// content: FNV-1a over Name, Type, Description and the sorted
// (key=value) property pairs. Two entities with identical content hash
// the same regardless of property insertion order; timestamps are
// excluded so the same observable seen at different times deduplicates.
func (e *Entity) ContentHash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "name=%s;type=%s;desc=%s;", e.Name, e.Type, e.Description)

	keys := make([]string, 0, len(e.Properties))
	for key := range e.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(h, "%s=%s;", key, e.Properties[key])
	}
	return h.Sum64()
}
