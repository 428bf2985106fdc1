package api

import "github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NodeResponse is one graph node on the wire
type NodeResponse struct {
	Name          string            `json:"name"`
	Type          string            `json:"type,omitempty"`
	Description   string            `json:"description,omitempty"`
	TimeGenerated string            `json:"time_generated,omitempty"`
	StartTime     string            `json:"start_time,omitempty"`
	EndTime       string            `json:"end_time,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
	Neighbors     []string          `json:"neighbors,omitempty"`
}

// NodesResponse lists the graph contents
type NodesResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Edges [][2]string    `json:"edges"`
	Count int            `json:"count"`
}

// RowsRequest carries tabular incident or alert rows for ingestion
type RowsRequest struct {
	Rows []map[string]any `json:"rows"`
}

// TableResponse is the flattened tabular export
type TableResponse struct {
	Rows  []entitygraph.Row `json:"rows"`
	Count int               `json:"count"`
}

// StatusResponse acknowledges a mutation
type StatusResponse struct {
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

// TokenRequest asks for an access token using an API key
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// TokenResponse carries an issued access token
type TokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn string `json:"expires_in"`
}
