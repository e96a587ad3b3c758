// Package extract reads text and clustering items out of document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/matomeru/pkg/utils"
)

// Item is one unit of text to cluster. Source locates it in its file, e.g. "notes.txt:3".
type Item struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
	// Kind and URL come from "kind" and "url" table columns.
	Kind string `json:"kind,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Text returns the text the item is embedded from. Items whose URL is on one of
// titleOnlyHosts keep only their title.
func (i Item) Text(titleOnlyHosts []string) string {
	return utils.ItemText(i.Title, i.Content, i.URL, titleOnlyHosts)
}

// Extractor extracts text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot) has a dedicated reader.
// Other extensions are read as plain text.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".csv", ".txt", ".md", ".rst":
		return true
	}
	return false
}

// Extract reads the file at path and returns its whole text content.
// Returns an error if the file cannot be read or parsed.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		paragraphs, err := docxParagraphs(content)
		if err != nil {
			return "", err
		}
		return strings.Join(paragraphs, "\n"), nil
	case ".xlsx":
		rows, err := excelRows(content)
		if err != nil {
			return "", err
		}
		return joinRows(rows), nil
	case ".csv":
		rows, err := csvRows(content)
		if err != nil {
			return "", err
		}
		return joinRows(rows), nil
	default:
		// .txt, .md, .rst and unknown extensions
		return extractPlain(content)
	}
}

// Items reads the file at path and splits it into items: one per non-blank line for
// text and PDF, one per paragraph for DOCX, one per row for CSV and Excel.
func (e *Extractor) Items(path string) ([]Item, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ItemsBytes(content, ext, filepath.Base(path))
}

// ItemsBytes splits content into items. source prefixes each item's Source.
func (e *Extractor) ItemsBytes(content []byte, ext, source string) ([]Item, error) {
	switch ext {
	case ".docx":
		paragraphs, err := docxParagraphs(content)
		if err != nil {
			return nil, err
		}
		return lineItems(paragraphs, source), nil
	case ".xlsx":
		rows, err := excelRows(content)
		if err != nil {
			return nil, err
		}
		return tableItems(rows, source), nil
	case ".csv":
		rows, err := csvRows(content)
		if err != nil {
			return nil, err
		}
		return tableItems(rows, source), nil
	default:
		text, err := e.ExtractBytes(content, ext)
		if err != nil {
			return nil, err
		}
		return lineItems(strings.Split(text, "\n"), source), nil
	}
}

func lineItems(lines []string, source string) []Item {
	items := make([]Item, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, Item{Content: line, Source: fmt.Sprintf("%s:%d", source, i+1)})
	}
	return items
}

func joinRows(rows [][]string) string {
	var buf strings.Builder
	for _, row := range rows {
		buf.WriteString(strings.Join(row, "\t"))
		buf.WriteByte('\n')
	}
	return strings.TrimSpace(buf.String())
}
