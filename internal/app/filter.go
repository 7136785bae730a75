package service

import (
	"strings"

	"github.com/okian/palantir/internal/domain/model"
)

// matches reports whether any field contains query, ignoring case.
// An empty query matches everything.
func matches(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func alertMatches(query string, a *model.Alert) bool {
	return matches(query, a.Minion, a.CheckName(), a.Stdout, a.Stderr)
}

func minionMatches(query string, m *model.Minion) bool {
	return matches(query, m.Name)
}

func checkMatches(query string, c *model.Check) bool {
	return matches(query, c.Name, c.Target)
}
