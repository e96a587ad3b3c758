package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// paragraphRe matches a whole <w:p> element; <w:pPr> and friends do not start one.
	paragraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	// textRunRe matches <w:t>text</w:t> with any attributes.
	textRunRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// overrideRe matches one Override element of [Content_Types].xml.
	overrideRe = regexp.MustCompile(`<Override[^>]*/?>`)
	partNameRe = regexp.MustCompile(`PartName="([^"]+)"`)
)

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// mainDocumentPath looks up the main document part in [Content_Types].xml and
// falls back to word/document.xml.
func mainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			break
		}
		for _, override := range overrideRe.FindAllString(string(data), -1) {
			if !strings.Contains(override, `ContentType="`+docxMainContentType+`"`) {
				continue
			}
			if m := partNameRe.FindStringSubmatch(override); len(m) > 1 {
				return strings.TrimPrefix(m[1], "/")
			}
		}
		break
	}
	return docxDocumentXMLPath
}

// docxParagraphs returns the non-empty paragraphs of a .docx file, the text runs of
// each paragraph concatenated.
func docxParagraphs(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := mainDocumentPath(zr)

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		if docXML, err = readZipFile(f); err != nil {
			return nil, fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	var paragraphs []string
	for _, p := range paragraphRe.FindAllString(string(docXML), -1) {
		var b strings.Builder
		for _, run := range textRunRe.FindAllStringSubmatch(p, -1) {
			b.WriteString(run[1])
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs, nil
}
