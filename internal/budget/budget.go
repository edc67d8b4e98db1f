// Package budget selects, orders, and truncates retrieval candidates into
// a context document bounded by the generation backend's context window.
package budget

import (
	"fmt"
	"math"
	"strings"
)

// Candidate is one ranked retrieval result considered for inclusion.
// Candidates arrive already ordered by descending relevance.
type Candidate struct {
	Content  string  `json:"content"`
	FilePath string  `json:"file_path"`
	Score    float64 `json:"score"`
	FileType string  `json:"file_type"`
}

// Stats describes how a context document was assembled.
type Stats struct {
	DocumentsUsed       int     `json:"documents_used"`
	DocumentsAvailable  int     `json:"documents_available"`
	Truncated           bool    `json:"truncated"`
	ContextChars        int     `json:"context_chars"`
	ContextTokens       int     `json:"context_tokens_estimate"`
	MaxContextChars     int     `json:"max_context_chars"`
	ContextUsagePercent float64 `json:"context_usage_percent"`
}

// EmptyContext is the sentinel document returned when no candidates exist.
// The answer orchestrator recognizes it and skips the backend call.
const EmptyContext = "No indexed documents found. Please index some files first."

const (
	// maxCandidates bounds how many candidates one turn considers,
	// regardless of how many the retrieval layer supplies.
	maxCandidates = 50

	// contextShare of the window goes to retrieved context; the rest is
	// left for the prompt scaffold and the generated answer.
	contextShare = 0.75

	// charsPerToken is the fixed token estimate used throughout the
	// system. A deliberate approximation, not a tokenizer.
	charsPerToken = 4

	// safetyBuffer stops the fill loop before a degenerate near-empty
	// block would be emitted.
	safetyBuffer = 100
)

// codeTypes are the file types that get structure-aware truncation.
var codeTypes = map[string]bool{
	"py": true, "js": true, "ts": true, "java": true,
	"cpp": true, "c": true, "go": true, "rs": true,
}

// Build assembles a bounded context document from ranked candidates.
// It reserves 75% of the window (at 4 chars/token) for context, walks
// candidates in rank order up to 50, truncates each to the remaining
// space, and reports assembly statistics.
func Build(candidates []Candidate, contextWindow int) (string, Stats) {
	if len(candidates) == 0 {
		return EmptyContext, Stats{}
	}

	maxContextTokens := int(float64(contextWindow) * contextShare)
	maxContextChars := maxContextTokens * charsPerToken

	considered := candidates
	if len(considered) > maxCandidates {
		considered = considered[:maxCandidates]
	}

	var parts []string
	currentLength := 0
	used := 0
	truncated := false

	for i, c := range considered {
		availableSpace := maxContextChars - currentLength
		if availableSpace <= safetyBuffer {
			truncated = true
			break
		}

		content := c.Content
		if codeTypes[c.FileType] {
			content = truncateCode(content, availableSpace)
		} else if len(content) > availableSpace {
			content = content[:availableSpace-3] + "..."
			truncated = true
		}

		block := fmt.Sprintf("[Document %d] %s (relevance: %.2f%%)\n%s\n",
			i+1, c.FilePath, c.Score*100, content)
		parts = append(parts, block)
		currentLength += len(block)
		used++
	}

	usagePercent := 0.0
	if maxContextChars > 0 {
		usagePercent = roundTenth(float64(currentLength) / float64(maxContextChars) * 100)
	}

	stats := Stats{
		DocumentsUsed:       used,
		DocumentsAvailable:  len(considered),
		Truncated:           truncated,
		ContextChars:        currentLength,
		ContextTokens:       currentLength / charsPerToken,
		MaxContextChars:     maxContextChars,
		ContextUsagePercent: usagePercent,
	}
	return strings.Join(parts, "\n"), stats
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
