package tender

import "time"

// Response is the uniform envelope returned to every consumer of tender
// data, regardless of source. Failure is communicated through the Success
// and Fallback fields rather than an error.
type Response struct {
	Success      bool     `json:"success"`
	Data         []Record `json:"data"`
	Timestamp    string   `json:"timestamp"`
	Source       string   `json:"source"`
	TotalTenders int      `json:"totalTenders"`
	Cached       bool     `json:"cached"`
	Fallback     bool     `json:"fallback"`
}

// NewResponse builds a response envelope for the given source and data.
func NewResponse(sourceID string, data []Record, cached, fallback bool) *Response {
	return &Response{
		Success:      true,
		Data:         data,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Source:       sourceID,
		TotalTenders: len(data),
		Cached:       cached,
		Fallback:     fallback,
	}
}

// PageResponse wraps one page of a paginated result set.
type PageResponse struct {
	Success     bool     `json:"success"`
	Data        []Record `json:"data"`
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
	TotalCount  int      `json:"totalCount"`
	CurrentPage int      `json:"currentPage"`
	TotalPages  int      `json:"totalPages"`
	Cached      bool     `json:"cached"`
	Fallback    bool     `json:"fallback"`
}
