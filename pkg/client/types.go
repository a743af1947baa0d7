package client

// Recommendation is one ranked catalog item.
type Recommendation struct {
	ItemID      string  `json:"itemId"`
	DisplayName *string `json:"displayName"` // nil when the catalog had no entry
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}

// Healthy reports whether every component is up.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

type recommendRequest struct {
	QueryText string `json:"queryText"`
	TopN      *int   `json:"topN,omitempty"`
}

type recommendResponse struct {
	Results []Recommendation `json:"results"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
