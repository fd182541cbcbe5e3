package importer

import "strings"

// HeaderIndex maps normalized header text to a column index.
type HeaderIndex map[string]int

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewHeaderIndex indexes a header row. The first occurrence of a repeated
// header wins; blank headers are ignored.
func NewHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = i
	}
	return idx
}

// Has reports whether the header is present in the file.
func (h HeaderIndex) Has(header string) bool {
	_, ok := h[normalizeHeader(header)]
	return ok
}

// Lookup returns the trimmed cell under header. ok is false when the header is
// missing, the row is too short, or the cell is blank.
func (h HeaderIndex) Lookup(row []string, header string) (string, bool) {
	col, ok := h[normalizeHeader(header)]
	if !ok || col >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[col])
	if v == "" {
		return "", false
	}
	return v, true
}

// Optional is Lookup returning nil for an absent value.
func (h HeaderIndex) Optional(row []string, header string) *string {
	v, ok := h.Lookup(row, header)
	if !ok {
		return nil
	}
	return &v
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
