package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// tableHeader holds the column indices of a recognised header row, -1 when absent.
type tableHeader struct {
	title   int
	content int
	kind    int
	url     int
}

// detectHeader recognises a first row naming "title" and "content" (or "text") columns.
// "kind" and "url" columns are read when present.
func detectHeader(row []string) (tableHeader, bool) {
	h := tableHeader{title: -1, content: -1, kind: -1, url: -1}
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "title":
			h.title = i
		case "content", "text":
			if h.content < 0 {
				h.content = i
			}
		case "kind", "type":
			h.kind = i
		case "url":
			h.url = i
		}
	}
	return h, h.title >= 0 || h.content >= 0
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// tableItems turns rows into items. With a header the title and content columns are
// used; otherwise the non-empty cells of a row are joined with spaces.
func tableItems(rows [][]string, source string) []Item {
	if len(rows) == 0 {
		return []Item{}
	}
	header, ok := detectHeader(rows[0])
	start := 0
	if ok {
		start = 1
	}
	items := make([]Item, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		var item Item
		if ok {
			item = Item{
				Title:   cell(row, header.title),
				Content: cell(row, header.content),
				Kind:    strings.ToLower(cell(row, header.kind)),
				URL:     cell(row, header.url),
			}
		} else {
			cells := make([]string, 0, len(row))
			for j := range row {
				if c := cell(row, j); c != "" {
					cells = append(cells, c)
				}
			}
			item = Item{Content: strings.Join(cells, " ")}
		}
		if item.Title == "" && item.Content == "" {
			continue
		}
		item.Source = fmt.Sprintf("%s:%d", source, i+1)
		items = append(items, item)
	}
	return items
}

func csvRows(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	return rows, nil
}
