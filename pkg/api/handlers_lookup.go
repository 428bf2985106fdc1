package api

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/cluso-threatgraph/pkg/ti"
	"github.com/dd0wney/cluso-threatgraph/pkg/validation"
)

// handleLookup performs a single threat-intel lookup
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateLookupRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, ok := s.resolveProvider(req.Provider)
	if !ok {
		s.respondError(w, http.StatusNotFound, "no such provider")
		return
	}

	result := provider.LookupItem(r.Context(), req.Observable, ti.IoCType(req.IocType), req.QueryType)
	s.respondJSON(w, http.StatusOK, result)
}

// handleBulkLookup performs an asynchronous bulk lookup. The response has
// exactly one row per observable, in request order.
func (s *Server) handleBulkLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.BulkLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateBulkLookupRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, ok := s.resolveProvider(req.Provider)
	if !ok {
		s.respondError(w, http.StatusNotFound, "no such provider")
		return
	}

	results, err := provider.LookupItemsAsync(r.Context(), ti.Values(req.Observables), req.QueryType)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// handleUsage writes the supported query types of every provider as text
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, name := range s.order {
		s.provider[name].WriteUsage(w)
	}
}

// resolveProvider picks the named provider, or the only one when the
// request does not name one
func (s *Server) resolveProvider(name string) (*ti.Provider, bool) {
	if name != "" {
		p, ok := s.provider[name]
		return p, ok
	}
	if len(s.order) == 1 {
		return s.provider[s.order[0]], true
	}
	return nil, false
}
