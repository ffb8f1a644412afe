package fetcher

import "strings"

// Table is a header row plus data rows read from a tabular file.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable treats the first row as the header. Header names are matched
// case-insensitively.
func NewTable(rows [][]string) *Table {
	t := &Table{index: make(map[string]int)}
	if len(rows) == 0 {
		return t
	}
	t.Header, t.Rows = rows[0], rows[1:]
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

// Column returns the position of the first header matching one of names,
// or -1.
func (t *Table) Column(names ...string) int {
	for _, name := range names {
		if i, ok := t.index[strings.ToLower(name)]; ok {
			return i
		}
	}
	return -1
}

// Cell returns row[col], or "" when col is absent from a short row.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// appendTrimmed trims every field and appends the row unless all fields
// are blank.
func appendTrimmed(rows [][]string, fields []string) [][]string {
	blank := true
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
		if fields[i] != "" {
			blank = false
		}
	}
	if blank {
		return rows
	}
	return append(rows, fields)
}
