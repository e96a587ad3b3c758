package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Hello world\r\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".rst")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_unknownExtension(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
	if _, err := e.Items("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestItems_plainFileOneItemPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("first item\n\n  second item  \nthird\n"), 0600); err != nil {
		t.Fatal(err)
	}
	items, err := NewExtractor().Items(path)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	want := []Item{
		{Content: "first item", Source: "notes.txt:1"},
		{Content: "second item", Source: "notes.txt:3"},
		{Content: "third", Source: "notes.txt:4"},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %+v, want %+v", items, want)
	}
}

func TestItemsBytes_csvWithHeader(t *testing.T) {
	content := []byte("id,Title,Content\n1,Apples,Red fruit\n2,,Only content\n3,,\n")
	items, err := NewExtractor().ItemsBytes(content, ".csv", "data.csv")
	if err != nil {
		t.Fatalf("ItemsBytes: %v", err)
	}
	want := []Item{
		{Title: "Apples", Content: "Red fruit", Source: "data.csv:2"},
		{Content: "Only content", Source: "data.csv:3"},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %+v, want %+v", items, want)
	}
	if items[0].Text(nil) != "Apples</s></s>Red fruit" {
		t.Errorf("Text() = %q", items[0].Text(nil))
	}
}

func TestItemsBytes_csvKindAndURL(t *testing.T) {
	content := []byte("title,content,kind,url\n" +
		"Talk,long transcript,Page,https://www.youtube.com/watch?v=1\n" +
		"Idea,remember this,note,\n")
	items, err := NewExtractor().ItemsBytes(content, ".csv", "mixed.csv")
	if err != nil {
		t.Fatalf("ItemsBytes: %v", err)
	}
	want := []Item{
		{Title: "Talk", Content: "long transcript", Source: "mixed.csv:2", Kind: "page", URL: "https://www.youtube.com/watch?v=1"},
		{Title: "Idea", Content: "remember this", Source: "mixed.csv:3", Kind: "note"},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %+v, want %+v", items, want)
	}
	hosts := []string{"youtube"}
	if got := items[0].Text(hosts); got != "Talk</s></s>" {
		t.Errorf("title-only Text() = %q", got)
	}
	if got := items[1].Text(hosts); got != "Idea</s></s>remember this" {
		t.Errorf("Text() = %q", got)
	}
}

func TestItemsBytes_csvWithoutHeader(t *testing.T) {
	content := []byte("alpha, beta\ngamma\n")
	items, err := NewExtractor().ItemsBytes(content, ".csv", "plain.csv")
	if err != nil {
		t.Fatalf("ItemsBytes: %v", err)
	}
	if len(items) != 2 || items[0].Content != "alpha beta" || items[1].Content != "gamma" {
		t.Errorf("got %+v", items)
	}
}

func TestItemsBytes_csvMalformed(t *testing.T) {
	if _, err := NewExtractor().ItemsBytes([]byte("a,\"unterminated\n"), ".csv", "x.csv"); err == nil {
		t.Error("expected error for malformed CSV")
	}
}

func excelBytes(t *testing.T, cells map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for axis, v := range cells {
		if err := f.SetCellValue("Sheet1", axis, v); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestExtractBytes_excel(t *testing.T) {
	content := excelBytes(t, map[string]string{"A1": "Title", "A2": "Value 1", "B2": "Value 2"})
	got, err := NewExtractor().ExtractBytes(content, ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestItemsBytes_excelRows(t *testing.T) {
	content := excelBytes(t, map[string]string{
		"A1": "title", "B1": "text",
		"A2": "Kyoto", "B2": "Temples and gardens",
		"A3": "Osaka", "B3": "Street food",
	})
	items, err := NewExtractor().ItemsBytes(content, ".xlsx", "cities.xlsx")
	if err != nil {
		t.Fatalf("ItemsBytes: %v", err)
	}
	want := []Item{
		{Title: "Kyoto", Content: "Temples and gardens", Source: "cities.xlsx:2"},
		{Title: "Osaka", Content: "Street food", Source: "cities.xlsx:3"},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %+v, want %+v", items, want)
	}
}

func TestExtract_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Clusterable text")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Clusterable text" {
		t.Errorf("got %q", got)
	}
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// docxBytes returns a .docx zip whose main document at docPath holds body. With a
// non-default docPath a [Content_Types].xml pointing at it is added.
func docxBytes(body, docPath string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if docPath != docxDocumentXMLPath {
		ct, _ := w.Create(contentTypesPath)
		_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override ContentType="` + docxMainContentType + `" PartName="/` + docPath + `"/>
</Types>`))
	}
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	body := `<w:p w:rsidR="00AB"><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>First </w:t></w:r><w:r><w:t xml:space="preserve">paragraph</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>`
	e := NewExtractor()
	got, err := e.ExtractBytes(docxBytes(body, docxDocumentXMLPath), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "First paragraph\nSecond paragraph" {
		t.Errorf("got %q", got)
	}

	items, err := e.ItemsBytes(docxBytes(body, docxDocumentXMLPath), ".docx", "doc.docx")
	if err != nil {
		t.Fatalf("ItemsBytes: %v", err)
	}
	if len(items) != 2 || items[1].Content != "Second paragraph" || items[1].Source != "doc.docx:2" {
		t.Errorf("got %+v", items)
	}
}

func TestExtractBytes_docxMainPartFromContentTypes(t *testing.T) {
	body := `<w:p><w:r><w:t>Content from document2</w:t></w:r></w:p>`
	got, err := NewExtractor().ExtractBytes(docxBytes(body, "word/document2.xml"), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Content from document2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip content")
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("other.xml")
	_ = w.Close()
	if _, err := e.ExtractBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("%PDF-garbage"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", ".MD", ".csv", ".xlsx", ".docx", ".pdf"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	if Supported(".pptx") {
		t.Error("Supported(.pptx) = true")
	}
}
