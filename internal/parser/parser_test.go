package parser

import (
	"strings"
	"testing"
)

func TestMarkdownFrontMatter(t *testing.T) {
	md := "---\ntitle: Design Notes\nauthor: \"lin\"\n---\n# Overview\n\nSome **bold** text with `code`.\n"
	doc, err := NewRegistry().Parse("notes.md", []byte(md))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.FileType != "md" {
		t.Errorf("file type = %q, want md", doc.FileType)
	}
	if doc.Metadata["title"] != "Design Notes" {
		t.Errorf("title = %q, want Design Notes", doc.Metadata["title"])
	}
	if doc.Metadata["author"] != "lin" {
		t.Errorf("author = %q, want lin", doc.Metadata["author"])
	}
	if strings.Contains(doc.Content, "---") || strings.Contains(doc.Content, "title:") {
		t.Errorf("front matter leaked into content: %q", doc.Content)
	}
	if strings.Contains(doc.Content, "**") || strings.Contains(doc.Content, "# ") {
		t.Errorf("markup left in content: %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "Some bold text") {
		t.Errorf("body text missing: %q", doc.Content)
	}
}

func TestMarkdownWithoutFrontMatter(t *testing.T) {
	doc, err := NewRegistry().Parse("plain.md", []byte("# Title\n\nbody"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Metadata) != 0 {
		t.Errorf("unexpected metadata: %v", doc.Metadata)
	}
	if !strings.Contains(doc.Content, "Title") {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestSourceDeclarations(t *testing.T) {
	py := "\"\"\"module doc\"\"\"\n\nclass VaultStore:\n    def save(self):\n        pass\n\ndef load_index(path):\n    return path\n"
	doc, err := NewRegistry().Parse("store.py", []byte(py))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.FileType != "py" {
		t.Errorf("file type = %q, want py", doc.FileType)
	}
	if got := doc.Metadata["functions"]; got != "save,load_index" {
		t.Errorf("functions = %q, want save,load_index", got)
	}
	if got := doc.Metadata["classes"]; got != "VaultStore" {
		t.Errorf("classes = %q, want VaultStore", got)
	}
	if doc.Content != py {
		t.Error("source content should be indexed verbatim")
	}
}

func TestSourceGoMethods(t *testing.T) {
	src := "package demo\n\ntype Catalog struct{}\n\nfunc (c *Catalog) Lookup(id string) string { return id }\n\nfunc New() *Catalog { return nil }\n"
	doc, err := NewRegistry().Parse("catalog.go", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := doc.Metadata["functions"]; got != "Lookup,New" {
		t.Errorf("functions = %q, want Lookup,New", got)
	}
	if got := doc.Metadata["classes"]; got != "Catalog" {
		t.Errorf("classes = %q, want Catalog", got)
	}
}

func TestUnknownExtensionFallsBack(t *testing.T) {
	doc, err := NewRegistry().Parse("data.csv", []byte("a,b,c"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.FileType != "csv" {
		t.Errorf("file type = %q, want csv", doc.FileType)
	}
	if doc.Content != "a,b,c" {
		t.Errorf("content = %q", doc.Content)
	}
}
