package vectorstore

// SearchResults carries the outcome of one content search: matched documents,
// their metadata, and relevance distances, all index-aligned. Error is set
// instead of raising; an empty result set with no error is a valid outcome
// distinct from failure.
type SearchResults struct {
	Documents []string
	Metadata  []map[string]any
	Distances []float64
	Error     string
}

// Empty returns results with no matches and the given error message.
func Empty(errMsg string) SearchResults {
	return SearchResults{Error: errMsg}
}

// IsEmpty reports whether the results contain no documents.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}
