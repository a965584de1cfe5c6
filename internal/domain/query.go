package domain

import "strings"

// AllCategories is the filter value that keeps every record.
const AllCategories = "All"

// Query narrows a catalog the way the browse page does: an optional exact
// category filter followed by a case-insensitive substring search.
type Query struct {
	Category string
	Search   string
}

// Apply returns the records matching q, preserving catalog order. The input
// slice is never modified.
func (q Query) Apply(records []ArtifactRecord) []ArtifactRecord {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]ArtifactRecord, 0, len(records))
	for _, r := range records {
		if !q.matchesCategory(r) {
			continue
		}
		if needle != "" && !matchesSearch(r, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (q Query) matchesCategory(r ArtifactRecord) bool {
	if q.Category == "" || q.Category == AllCategories {
		return true
	}
	return r.Category != "" && string(r.Category) == q.Category
}

func matchesSearch(r ArtifactRecord, needle string) bool {
	for _, field := range []string{r.Name, r.Title, r.Description, string(r.Category)} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
