// Package retrieval coordinates parsing, embedding and vector search for
// the document index.
package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okvist/lorevault/internal/budget"
	"github.com/okvist/lorevault/internal/parser"
	"github.com/okvist/lorevault/internal/vectorstore"
)

// askFetchLimit is how many candidates a question retrieves before the
// context budget decides how many actually fit.
const askFetchLimit = 50

// Embedder produces query and document vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Index is the vector store surface the service needs. *vectorstore.Client
// satisfies it; tests substitute fakes.
type Index interface {
	EnsureCollection(ctx context.Context, dimension uint64) error
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]string) error
	Search(ctx context.Context, vector []float32, opts vectorstore.SearchOptions) ([]*vectorstore.SearchResult, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (uint64, error)
}

// Service indexes files and retrieves scored candidates for queries.
type Service struct {
	embedder Embedder
	index    Index
	parsers  *parser.Registry
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embedder Embedder, index Index, logger *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		parsers:  parser.NewRegistry(),
		logger:   logger,
	}
}

// Init ensures the document collection exists.
func (s *Service) Init(ctx context.Context) error {
	dim := uint64(s.embedder.Dimension())
	if dim == 0 {
		dim = 768
	}
	if err := s.index.EnsureCollection(ctx, dim); err != nil {
		return fmt.Errorf("init document collection: %w", err)
	}
	return nil
}

// IndexFile parses, embeds and stores one file. Returns the document id.
func (s *Service) IndexFile(ctx context.Context, path string) (string, error) {
	doc, err := s.parsers.ParseFile(path)
	if err != nil {
		return "", err
	}
	return s.indexDocument(ctx, path, doc)
}

// IndexContent indexes already-loaded content under the given path name.
func (s *Service) IndexContent(ctx context.Context, path string, data []byte) (string, error) {
	doc, err := s.parsers.Parse(filepath.Base(path), data)
	if err != nil {
		return "", err
	}
	return s.indexDocument(ctx, path, doc)
}

func (s *Service) indexDocument(ctx context.Context, path string, doc parser.Document) (string, error) {
	if doc.Content == "" {
		return "", fmt.Errorf("index %s: no indexable content", path)
	}

	vectors, err := s.embedder.Embed(ctx, []string{doc.Content})
	if err != nil {
		return "", fmt.Errorf("embed %s: %w", path, err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("embed %s: empty result", path)
	}

	id := uuid.New().String()
	payload := make(map[string]string, len(doc.Metadata)+4)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	payload["content"] = doc.Content
	payload["file_path"] = path
	payload["file_type"] = doc.FileType
	payload["indexed_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.index.Upsert(ctx, id, vectors[0], payload); err != nil {
		return "", fmt.Errorf("store %s: %w", path, err)
	}

	s.logger.Info("document indexed",
		zap.String("id", id),
		zap.String("file_path", path),
		zap.String("file_type", doc.FileType),
		zap.Int("chars", len(doc.Content)))
	return id, nil
}

// DirectoryReport summarizes an IndexDirectory run.
type DirectoryReport struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// IndexDirectory walks dir and indexes every regular file, skipping
// hidden entries. Individual failures are collected, not fatal.
func (s *Service) IndexDirectory(ctx context.Context, dir string) (DirectoryReport, error) {
	var report DirectoryReport
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if len(name) > 1 && name[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if name[0] == '.' {
			return nil
		}
		if _, err := s.IndexFile(ctx, path); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			s.logger.Warn("index failed", zap.String("file_path", path), zap.Error(err))
			return nil
		}
		report.Indexed++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", dir, err)
	}
	return report, nil
}

// Result is one scored search hit.
type Result struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	FilePath string  `json:"file_path"`
	FileType string  `json:"file_type"`
	Score    float64 `json:"score"`
}

// Query narrows a search.
type Query struct {
	Text     string
	Limit    int
	Offset   int
	FileType string
}

// Search embeds the query text and returns the nearest documents.
func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = 5
	}
	vectors, err := s.embedder.Embed(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	hits, err := s.index.Search(ctx, vectors[0], vectorstore.SearchOptions{
		Limit:    uint64(q.Limit),
		Offset:   uint64(q.Offset),
		FileType: q.FileType,
	})
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			ID:       h.ID,
			Content:  h.Payload["content"],
			FilePath: h.Payload["file_path"],
			FileType: h.Payload["file_type"],
			Score:    float64(h.Score),
		})
	}
	return results, nil
}

// CandidatesFor retrieves the candidate pool for a question. It fetches
// wide and lets the context budget trim to what fits.
func (s *Service) CandidatesFor(ctx context.Context, question string) ([]budget.Candidate, error) {
	results, err := s.Search(ctx, Query{Text: question, Limit: askFetchLimit})
	if err != nil {
		return nil, err
	}
	candidates := make([]budget.Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, budget.Candidate{
			Content:  r.Content,
			FilePath: r.FilePath,
			FileType: r.FileType,
			Score:    r.Score,
		})
	}
	return candidates, nil
}

// Delete removes a document from the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.String("id", id))
	return nil
}

// Count reports how many documents are indexed.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return s.index.Count(ctx)
}
