package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-threatgraph/pkg/validation"
	"github.com/dd0wney/cluso-threatgraph/pkg/visualization"
)

// handleNodes lists the graph (GET) or ingests tabular incident/alert
// rows (POST)
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		defer s.mu.RUnlock()
		s.respondJSON(w, http.StatusOK, s.nodesResponse())

	case http.MethodPost:
		var req RowsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validation.ValidateBatchSize(len(req.Rows)); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.builder.AddRows(req.Rows); err != nil {
			s.respondGraphError(w, err, false)
			return
		}
		s.respondJSON(w, http.StatusCreated, s.statusResponse())

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleNode fetches (GET) or removes (DELETE) a single node by name
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/graph/nodes/")
	if err := validation.ValidateNodeName(name); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		defer s.mu.RUnlock()
		node := s.builder.Graph().Node(name)
		if node == nil {
			s.respondError(w, http.StatusNotFound, "node not found")
			return
		}
		s.respondJSON(w, http.StatusOK, NodeResponse{
			Name:          node.Name,
			Type:          node.Type,
			Description:   node.Description,
			TimeGenerated: node.TimeGenerated,
			StartTime:     node.StartTime,
			EndTime:       node.EndTime,
			Extra:         node.Extra,
			Neighbors:     s.builder.Graph().Neighbors(name),
		})

	case http.MethodDelete:
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.builder.RemoveNode(name); err != nil {
			s.respondGraphError(w, err, true)
			return
		}
		s.respondJSON(w, http.StatusOK, s.statusResponse())

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleLinks adds (POST) or removes (DELETE) a link between two nodes
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateLinkRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if r.Method == http.MethodPost {
		err = s.builder.AddLink(req.Source, req.Target)
	} else {
		err = s.builder.RemoveLink(req.Source, req.Target)
	}
	if err != nil {
		s.respondGraphError(w, err, true)
		return
	}
	s.respondJSON(w, http.StatusOK, s.statusResponse())
}

// handleNotes attaches an analyst note, optionally linked to existing nodes
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateNoteRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.builder.AddNote(req.Name, req.Description, req.AttachedTo...); err != nil {
		s.respondGraphError(w, err, true)
		return
	}
	s.respondJSON(w, http.StatusCreated, s.statusResponse())
}

// handleTable exports the graph as one flat row per node
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.RLock()
	rows := s.builder.Graph().ToTable()
	s.mu.RUnlock()

	s.metrics.TableExportsTotal.Inc()
	s.respondJSON(w, http.StatusOK, TableResponse{Rows: rows, Count: len(rows)})
}

// handleRender lays out the graph and returns a drawable document.
// format=terminal returns styled text instead of JSON.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	opts := visualization.Options{
		Layout:   r.URL.Query().Get("layout"),
		Timeline: r.URL.Query().Get("timeline") == "true",
	}
	if v := r.URL.Query().Get("width"); v != "" {
		if width, err := strconv.ParseFloat(v, 64); err == nil {
			opts.Width = width
		}
	}
	if v := r.URL.Query().Get("height"); v != "" {
		if height, err := strconv.ParseFloat(v, 64); err == nil {
			opts.Height = height
		}
	}
	if v := r.URL.Query().Get("seed"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			opts.Seed = seed
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.builder.Graph()

	if r.URL.Query().Get("format") == "terminal" {
		text, err := visualization.RenderTerminal(g, opts)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.metrics.RecordRender("terminal")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
		return
	}

	doc, err := visualization.Render(g, opts)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.RecordRender("json")
	s.respondJSON(w, http.StatusOK, doc)
}

// nodesResponse snapshots the graph; callers hold the lock
func (s *Server) nodesResponse() NodesResponse {
	g := s.builder.Graph()
	nodes := g.Nodes()
	out := NodesResponse{
		Nodes: make([]NodeResponse, 0, len(nodes)),
		Edges: g.Edges(),
		Count: len(nodes),
	}
	for _, node := range nodes {
		out.Nodes = append(out.Nodes, NodeResponse{
			Name:          node.Name,
			Type:          node.Type,
			Description:   node.Description,
			TimeGenerated: node.TimeGenerated,
			StartTime:     node.StartTime,
			EndTime:       node.EndTime,
		})
	}
	return out
}

// statusResponse reports the post-mutation graph size; callers hold the lock
func (s *Server) statusResponse() StatusResponse {
	g := s.builder.Graph()
	return StatusResponse{
		Status: "ok",
		Nodes:  g.NodeCount(),
		Edges:  g.EdgeCount(),
	}
}
