package tender

// Page slices the full in-memory result set for the given 1-based page and
// page size. Out-of-range pages yield an empty slice; concatenating all
// pages in order reconstructs the full set.
func Page(records []Record, page, limit int) ([]Record, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = len(records)
		if limit == 0 {
			return nil, 0
		}
	}

	totalPages := (len(records) + limit - 1) / limit

	start := (page - 1) * limit
	if start >= len(records) {
		return []Record{}, totalPages
	}

	end := start + limit
	if end > len(records) {
		end = len(records)
	}

	return records[start:end], totalPages
}

// Paginate builds a PageResponse from a full response envelope.
func Paginate(resp *Response, page, limit int) *PageResponse {
	slice, totalPages := Page(resp.Data, page, limit)
	if page < 1 {
		page = 1
	}

	return &PageResponse{
		Success:     resp.Success,
		Data:        slice,
		Timestamp:   resp.Timestamp,
		Source:      resp.Source,
		TotalCount:  len(resp.Data),
		CurrentPage: page,
		TotalPages:  totalPages,
		Cached:      resp.Cached,
		Fallback:    resp.Fallback,
	}
}
