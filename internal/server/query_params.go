package server

import (
	"strings"
)

// parseIDList splits a comma separated query value, dropping blanks.
func parseIDList(values ...string) []string {
	out := make([]string, 0)
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			out = append(out, trimmed)
		}
	}
	return out
}

// firstQuery returns the first non-empty query parameter among names.
func firstQuery(c queryGetter, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(c.Query(name)); value != "" {
			return value
		}
	}
	return ""
}

type queryGetter interface {
	Query(key string) string
}
