package budget

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildEmptyCandidates(t *testing.T) {
	for _, window := range []int{4096, 32768, 262144} {
		doc, stats := Build(nil, window)
		if doc != EmptyContext {
			t.Fatalf("window %d: expected sentinel document, got %q", window, doc)
		}
		if stats != (Stats{}) {
			t.Errorf("window %d: expected zero stats, got %+v", window, stats)
		}
	}
}

func TestBuildSingleShortCandidate(t *testing.T) {
	doc, stats := Build([]Candidate{
		{Content: "short text", FilePath: "notes.md", Score: 0.9, FileType: "md"},
	}, 4096)

	if stats.DocumentsUsed != 1 {
		t.Errorf("documents_used = %d, want 1", stats.DocumentsUsed)
	}
	if stats.DocumentsAvailable != 1 {
		t.Errorf("documents_available = %d, want 1", stats.DocumentsAvailable)
	}
	if stats.Truncated {
		t.Error("expected truncated=false")
	}

	wantBlock := "[Document 1] notes.md (relevance: 90.00%)\nshort text\n"
	if doc != wantBlock {
		t.Errorf("document = %q, want %q", doc, wantBlock)
	}
	if stats.ContextChars != len(wantBlock) {
		t.Errorf("context_chars = %d, want %d", stats.ContextChars, len(wantBlock))
	}
	if stats.MaxContextChars != 4096*3/4*4 {
		t.Errorf("max_context_chars = %d, want %d", stats.MaxContextChars, 4096*3/4*4)
	}
	if stats.ContextTokens != len(wantBlock)/4 {
		t.Errorf("context_tokens = %d, want %d", stats.ContextTokens, len(wantBlock)/4)
	}
	if stats.ContextUsagePercent <= 0 {
		t.Errorf("context_usage_percent = %v, want > 0", stats.ContextUsagePercent)
	}
}

func TestBuildCapsAtFiftyCandidates(t *testing.T) {
	candidates := make([]Candidate, 60)
	for i := range candidates {
		candidates[i] = Candidate{
			Content:  "tiny",
			FilePath: fmt.Sprintf("doc%02d.md", i),
			Score:    0.5,
			FileType: "md",
		}
	}

	doc, stats := Build(candidates, 262144)
	if stats.DocumentsUsed != 50 {
		t.Errorf("documents_used = %d, want 50", stats.DocumentsUsed)
	}
	if stats.DocumentsAvailable != 50 {
		t.Errorf("documents_available = %d, want capped 50", stats.DocumentsAvailable)
	}
	if strings.Contains(doc, "doc50.md") {
		t.Error("candidate beyond the 50-cap leaked into the document")
	}
	if !strings.Contains(doc, "[Document 50] doc49.md") {
		t.Error("fiftieth candidate missing from the document")
	}
}

func TestBuildStopsAtSafetyBuffer(t *testing.T) {
	big := strings.Repeat("m", 5000)
	candidates := []Candidate{
		{Content: big, FilePath: "a.md", Score: 0.9, FileType: "md"},
		{Content: big, FilePath: "b.md", Score: 0.8, FileType: "md"},
		{Content: big, FilePath: "c.md", Score: 0.7, FileType: "md"},
		{Content: big, FilePath: "d.md", Score: 0.6, FileType: "md"},
		{Content: big, FilePath: "e.md", Score: 0.5, FileType: "md"},
	}

	_, stats := Build(candidates, 4096)
	if !stats.Truncated {
		t.Error("expected truncated=true")
	}
	if stats.DocumentsUsed >= len(candidates) {
		t.Errorf("documents_used = %d, expected fewer than %d", stats.DocumentsUsed, len(candidates))
	}
	// One in-flight block may exceed the budget before the stop check,
	// but never by more than the safety buffer allows.
	if stats.ContextChars > stats.MaxContextChars+100 {
		t.Errorf("context_chars = %d exceeds max %d by more than the buffer",
			stats.ContextChars, stats.MaxContextChars)
	}
}

func TestBuildHardCutsNonCodeContent(t *testing.T) {
	long := strings.Repeat("w", 20000)
	doc, stats := Build([]Candidate{
		{Content: long, FilePath: "big.txt", Score: 1.0, FileType: "txt"},
	}, 4096)

	if !stats.Truncated {
		t.Error("expected truncated=true for hard-cut content")
	}
	if !strings.Contains(doc, "...") {
		t.Error("expected ellipsis marker in hard-cut content")
	}
	if stats.ContextChars > stats.MaxContextChars+100 {
		t.Errorf("context_chars = %d over budget %d", stats.ContextChars, stats.MaxContextChars)
	}
}

func TestBuildCodeCandidateUsesStructureAwareTruncation(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&sb, "x%04d := compute(%d)\n", i, i)
	}
	doc, stats := Build([]Candidate{
		{Content: sb.String(), FilePath: "main.go", Score: 0.95, FileType: "go"},
	}, 4096)

	if stats.DocumentsUsed != 1 {
		t.Fatalf("documents_used = %d, want 1", stats.DocumentsUsed)
	}
	// Line-based truncation keeps whole lines, so the body must end at a
	// line boundary rather than mid-statement.
	if strings.Contains(doc, "compute(1999)") {
		t.Error("content was not truncated")
	}
	if stats.ContextChars > stats.MaxContextChars+100 {
		t.Errorf("context_chars = %d over budget %d", stats.ContextChars, stats.MaxContextChars)
	}
}

func TestBuildUsagePercentRounding(t *testing.T) {
	_, stats := Build([]Candidate{
		{Content: strings.Repeat("a", 1000), FilePath: "a.md", Score: 0.5, FileType: "md"},
	}, 8192)
	got := stats.ContextUsagePercent
	if got != roundTenth(float64(stats.ContextChars)/float64(stats.MaxContextChars)*100) {
		t.Errorf("usage percent %v not rounded to one decimal", got)
	}
}
