package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/okvist/lorevault/internal/vectorstore"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls += len(texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type fakeIndex struct {
	ensured  uint64
	points   map[string]map[string]string
	lastOpts vectorstore.SearchOptions
	hits     []*vectorstore.SearchResult
	deleted  []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[string]map[string]string{}}
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, dim uint64) error {
	f.ensured = dim
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, id string, vector []float32, payload map[string]string) error {
	f.points[id] = payload
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, opts vectorstore.SearchOptions) ([]*vectorstore.SearchResult, error) {
	f.lastOpts = opts
	return f.hits, nil
}

func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.points, id)
	return nil
}

func (f *fakeIndex) Count(ctx context.Context) (uint64, error) {
	return uint64(len(f.points)), nil
}

func TestIndexFileStoresPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "util.py")
	if err := os.WriteFile(path, []byte("def helper():\n    return 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	index := newFakeIndex()
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	id, err := svc.IndexFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	payload, ok := index.points[id]
	if !ok {
		t.Fatalf("no point stored under %s", id)
	}
	if payload["file_path"] != path {
		t.Errorf("file_path = %q, want %q", payload["file_path"], path)
	}
	if payload["file_type"] != "py" {
		t.Errorf("file_type = %q, want py", payload["file_type"])
	}
	if payload["functions"] != "helper" {
		t.Errorf("functions = %q, want helper", payload["functions"])
	}
	if payload["indexed_at"] == "" {
		t.Error("indexed_at missing")
	}
}

func TestIndexDirectoryCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.md":        "# A\n\ndocs",
		"b.py":        "def b():\n    pass\n",
		".hidden.txt": "skip me",
		"empty.txt":   "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	index := newFakeIndex()
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	report, err := svc.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if report.Indexed != 2 {
		t.Errorf("indexed = %d, want 2", report.Indexed)
	}
	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1 (empty file)", report.Failed)
	}
	if len(index.points) != 2 {
		t.Errorf("stored points = %d, want 2", len(index.points))
	}
}

func TestSearchMapsHits(t *testing.T) {
	index := newFakeIndex()
	index.hits = []*vectorstore.SearchResult{
		{ID: "doc-1", Score: 0.91, Payload: map[string]string{
			"content": "def main(): ...", "file_path": "main.py", "file_type": "py",
		}},
	}
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	results, err := svc.Search(context.Background(), Query{Text: "entry point", Limit: 3, FileType: "py"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ID != "doc-1" || r.FilePath != "main.py" || r.FileType != "py" {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Score < 0.9 || r.Score > 0.92 {
		t.Errorf("score = %v, want ~0.91", r.Score)
	}
	if index.lastOpts.FileType != "py" || index.lastOpts.Limit != 3 {
		t.Errorf("search options not forwarded: %+v", index.lastOpts)
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	index := newFakeIndex()
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	if _, err := svc.Search(context.Background(), Query{Text: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if index.lastOpts.Limit != 5 {
		t.Errorf("default limit = %d, want 5", index.lastOpts.Limit)
	}
}

func TestCandidatesForFetchesWide(t *testing.T) {
	index := newFakeIndex()
	index.hits = []*vectorstore.SearchResult{
		{ID: "a", Score: 0.8, Payload: map[string]string{
			"content": "x", "file_path": "x.md", "file_type": "md",
		}},
	}
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	candidates, err := svc.CandidatesFor(context.Background(), "how does x work")
	if err != nil {
		t.Fatalf("CandidatesFor: %v", err)
	}
	if index.lastOpts.Limit != askFetchLimit {
		t.Errorf("fetch limit = %d, want %d", index.lastOpts.Limit, askFetchLimit)
	}
	if len(candidates) != 1 || candidates[0].FilePath != "x.md" {
		t.Errorf("unexpected candidates %+v", candidates)
	}
}

func TestInitUsesEmbedderDimension(t *testing.T) {
	index := newFakeIndex()
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if index.ensured != 3 {
		t.Errorf("ensured dimension = %d, want 3", index.ensured)
	}
}

func TestDelete(t *testing.T) {
	index := newFakeIndex()
	index.points["doc-1"] = map[string]string{"content": "x"}
	svc := New(&fakeEmbedder{}, index, zap.NewNop())

	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(index.deleted) != 1 || index.deleted[0] != "doc-1" {
		t.Errorf("deleted = %v", index.deleted)
	}
	n, _ := svc.Count(context.Background())
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
