// Package parser extracts indexable text and metadata from files.
// Markdown and common source languages get dedicated parsers; everything
// else falls back to plain text.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a parsed file ready for indexing.
type Document struct {
	Content  string
	Metadata map[string]string
	FileType string
	FileName string
}

// FileParser turns raw file bytes into a Document.
type FileParser interface {
	Parse(fileName string, data []byte) (Document, error)
}

// Registry maps file extensions to parsers.
type Registry struct {
	parsers  map[string]FileParser
	fallback FileParser
}

// NewRegistry returns a registry with the built-in parsers installed.
func NewRegistry() *Registry {
	source := &SourceParser{}
	return &Registry{
		parsers: map[string]FileParser{
			".md":   &MarkdownParser{},
			".py":   source,
			".go":   source,
			".js":   source,
			".ts":   source,
			".rs":   source,
			".java": source,
		},
		fallback: &TextParser{},
	}
}

// ParseFile reads and parses the file at path, choosing the parser by
// extension. Unknown extensions are indexed as plain text.
func (r *Registry) ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return r.Parse(filepath.Base(path), data)
}

// Parse dispatches on the extension of fileName.
func (r *Registry) Parse(fileName string, data []byte) (Document, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	p, ok := r.parsers[ext]
	if !ok {
		p = r.fallback
	}
	return p.Parse(fileName, data)
}

// TextParser indexes file content as-is.
type TextParser struct{}

// Parse returns the raw content with the extension as the file type.
func (*TextParser) Parse(fileName string, data []byte) (Document, error) {
	return Document{
		Content:  string(data),
		Metadata: map[string]string{},
		FileType: fileType(fileName),
		FileName: fileName,
	}, nil
}

// fileType is the lowercased extension without the dot, "txt" when none.
func fileType(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}
