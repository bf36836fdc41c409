package app

import (
	"regexp"
	"strings"
)

// Snapshot batch inserts span many bound rows; keep the query attribute
// bounded so trace spans stay reasonably sized.
const maxTracedQueryLength = 512

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

// formatDBQueryForTrace flattens a repository query to one trimmed line
// before otelsql attaches it to the DB span.
func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	flattened := queryWhitespaceRegex.ReplaceAllString(query, " ")
	if len(flattened) <= maxTracedQueryLength {
		return flattened
	}

	return flattened[:maxTracedQueryLength] + "..."
}
