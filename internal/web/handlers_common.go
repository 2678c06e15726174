package web

// handlers_common.go contains query-parameter parsing shared across handlers.

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/biogene/stockdash/internal/core"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseSorts parses comma-separated sort parameters from URL.
// The "sort" parameter lists columns, the "dir" parameter lists matching
// directions. At most two sort levels are honored.
func parseSorts(r *http.Request) []core.SortSpec {
	sortStr := r.URL.Query().Get("sort")
	dirStr := r.URL.Query().Get("dir")

	if sortStr == "" {
		return nil
	}

	cols := strings.Split(sortStr, ",")
	dirs := strings.Split(dirStr, ",")

	var sorts []core.SortSpec
	for i, col := range cols {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		dir := "asc"
		if i < len(dirs) {
			d := strings.TrimSpace(dirs[i])
			if d == "desc" {
				dir = "desc"
			}
		}
		sorts = append(sorts, core.SortSpec{Column: col, Dir: dir})
		if len(sorts) >= 2 {
			break
		}
	}
	return sorts
}

// parseRowFilter builds a RowFilter from query parameters. Unknown or
// malformed values are dropped rather than rejected so the dashboard keeps
// working with a partial filter.
func parseRowFilter(r *http.Request) core.RowFilter {
	q := r.URL.Query()

	return core.RowFilter{
		DatasetID: q.Get("dataset"),
		Segment:   strings.ToLower(strings.TrimSpace(q.Get("segment"))),
		From:      parseDateParam(q.Get("from")),
		To:        parseDateParam(q.Get("to")),
		Customers: parseListParam(q.Get("customers")),
		Brands:    parseListParam(q.Get("brands")),
		Items:     parseListParam(q.Get("items")),
		Search:    strings.TrimSpace(q.Get("q")),
	}
}

// parseDateParam parses a YYYY-MM-DD query value. Invalid dates are ignored.
func parseDateParam(val string) *time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil
	}
	return &t
}

// parseListParam splits a comma-separated query value, dropping blanks.
func parseListParam(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
