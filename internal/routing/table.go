// Package routing resolves named routes into URLs.
package routing

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Route names used by the users screens.
const (
	BonusIndex      = "bonus.index"
	DefectIndex     = "defect.index"
	ReportUserIndex = "report.user.index"
	UserDestroy     = "user.destroy"
)

// Table maps route names to chi-style patterns such as "/users/{id}/bonuses".
type Table struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{routes: make(map[string]string)}
}

// Default returns the table of routes referenced by the users screens.
func Default() *Table {
	t := NewTable()
	t.Register(BonusIndex, "/users/{id}/bonuses")
	t.Register(DefectIndex, "/users/{id}/defects")
	t.Register(ReportUserIndex, "/users/{id}/reports")
	t.Register(UserDestroy, "/users/{id}")
	return t
}

// Register binds name to pattern, replacing any earlier binding.
func (t *Table) Register(name, pattern string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[name] = pattern
}

// URL fills the placeholders of the named pattern, left to right, with params.
func (t *Table) URL(name string, params ...any) (string, error) {
	t.mu.RLock()
	pattern, ok := t.routes[name]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("routing: unknown route %q", name)
	}

	var b strings.Builder
	rest := pattern
	used := 0
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("routing: malformed pattern %q", pattern)
		}
		if used >= len(params) {
			return "", fmt.Errorf("routing: route %q needs more than %d params", name, len(params))
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(params[used])))
		used++
		rest = rest[open+end+1:]
	}
	if used != len(params) {
		return "", fmt.Errorf("routing: route %q takes %d params, got %d", name, used, len(params))
	}
	return b.String(), nil
}
