// Package answer drives one retrieval-augmented generation turn: it
// budgets context, composes the prompt, invokes the generation backend,
// post-processes the raw output, and reports usage statistics.
package answer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okvist/lorevault/internal/budget"
	"github.com/okvist/lorevault/internal/window"
	"go.uber.org/zap"
)

// Generator is the generation backend the orchestrator calls. One logical
// request per call; concurrent calls must be safe.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions are the sampling options for one backend request.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// ResultKind tags the outcome of a generation turn. Callers branch on the
// tag instead of inspecting answer text or catching errors.
type ResultKind string

const (
	// ResultOK means the backend produced an answer.
	ResultOK ResultKind = "ok"
	// ResultNoContext means no context could be assembled, because nothing
	// is indexed or nothing fit the window; the backend was not called.
	ResultNoContext ResultKind = "no_context"
	// ResultBackendError means the backend call failed; not retried.
	ResultBackendError ResultKind = "backend_error"
)

// Stats accompanies every generated answer, including failed turns.
type Stats struct {
	ContextTokens             int     `json:"context_tokens"`
	PromptTokens              int     `json:"prompt_tokens"`
	AnswerTokens              int     `json:"answer_tokens"`
	TotalTokens               int     `json:"total_tokens"`
	ContextWindow             int     `json:"context_window"`
	ContextWindowConfigured   int     `json:"context_window_configured"`
	ContextWindowOverride     bool    `json:"context_window_override"`
	ContextUsagePercent       float64 `json:"context_usage_percent"`
	ContextTruncated          bool    `json:"context_truncated"`
	ContextDocumentsUsed      int     `json:"context_documents_used"`
	ContextDocumentsAvailable int     `json:"context_documents_available"`
	DetectedBackendWindow     int     `json:"detected_backend_window,omitempty"`
	Warning                   string  `json:"warning,omitempty"`
	Error                     string  `json:"error,omitempty"`
}

// Result is the always-structured outcome of a turn: a complete
// answer+stats pair for every path, success or not.
type Result struct {
	Kind   ResultKind `json:"kind"`
	Answer string     `json:"answer"`
	Stats  Stats      `json:"stats"`
}

// Options tune a single turn.
type Options struct {
	// WindowOverride replaces the configured context window for this
	// turn when non-zero.
	WindowOverride int
	// MaxLength caps the generated answer in tokens. Zero means 10% of
	// the effective window.
	MaxLength int
	// Temperature is the sampling temperature. Nil means 0.3; an explicit
	// zero requests greedy sampling.
	Temperature *float64
	// NoFollowUp disables the advisory missing-information note.
	NoFollowUp bool
}

const (
	defaultTemperature = 0.3
	answerShare        = 0.1
	charsPerToken      = 4
)

// noContextAnswer is the canned reply when nothing is indexed.
const noContextAnswer = "I don't have access to any indexed code or documentation to answer your question. " +
	"Please make sure you have indexed some files first. " +
	"You can index files with: lorectl index <file_path> or through the HTTP API."

// Engine orchestrates generation turns against an injected backend client.
// All per-turn state is local; concurrent calls need no coordination.
type Engine struct {
	gen        Generator
	configured int
	detected   int
	logger     *zap.Logger
}

// NewEngine creates an orchestrator with the given configured context
// window. Values outside the ladder are snapped to the nearest valid size.
// detectedWindow is the backend-reported window, or 0 when detection
// failed; it is carried into stats for operator visibility.
func NewEngine(gen Generator, contextWindow, detectedWindow int, logger *zap.Logger) *Engine {
	snapped := window.NearestValid(contextWindow)
	if snapped != contextWindow {
		logger.Warn("context window not a valid size, snapping to nearest",
			zap.Int("requested", contextWindow),
			zap.Int("using", snapped))
	}
	return &Engine{gen: gen, configured: snapped, detected: detectedWindow, logger: logger}
}

// ContextWindow returns the configured (post-snap) window size.
func (e *Engine) ContextWindow() int { return e.configured }

// GenerateAnswer runs one retrieval-augmented turn over already-ranked
// candidates. It always returns a complete Result; failures are tagged,
// never raised.
func (e *Engine) GenerateAnswer(ctx context.Context, query string, candidates []budget.Candidate, opts Options) Result {
	effective := e.configured
	if opts.WindowOverride != 0 {
		effective = opts.WindowOverride
	}
	maxLength := opts.MaxLength
	if maxLength == 0 {
		maxLength = int(float64(effective) * answerShare)
	}

	doc, bstats := budget.Build(candidates, effective)
	e.logger.Info("built context",
		zap.Int("documents_used", bstats.DocumentsUsed),
		zap.Int("documents_available", bstats.DocumentsAvailable),
		zap.Int("context_chars", bstats.ContextChars),
		zap.Bool("truncated", bstats.Truncated))

	baseStats := Stats{
		ContextWindow:             effective,
		ContextWindowConfigured:   e.configured,
		ContextWindowOverride:     opts.WindowOverride != 0,
		DetectedBackendWindow:     e.detected,
		ContextTruncated:          bstats.Truncated,
		ContextDocumentsUsed:      bstats.DocumentsUsed,
		ContextDocumentsAvailable: bstats.DocumentsAvailable,
	}

	// Nothing to ground the answer on: either no candidates exist, or the
	// effective window was too small to fit a single document. Never call
	// the backend with empty context.
	if doc == budget.EmptyContext || bstats.DocumentsUsed == 0 {
		stats := baseStats
		stats.Warning = "No content available in context"
		return Result{Kind: ResultNoContext, Answer: noContextAnswer, Stats: stats}
	}

	prompt := composePrompt(query, doc)
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	raw, err := e.gen.Generate(ctx, prompt, GenerateOptions{
		Temperature: temperature,
		MaxTokens:   maxLength,
	})
	if err != nil {
		e.logger.Error("generation backend call failed", zap.Error(err))
		stats := baseStats
		stats.Error = err.Error()
		return Result{
			Kind: ResultBackendError,
			Answer: fmt.Sprintf(
				"Error connecting to the generation backend: %v. Make sure Ollama is running: ollama serve", err),
			Stats: stats,
		}
	}

	ans := cleanAnswer(raw, prompt)

	if !opts.NoFollowUp && needsMoreContext(ans) {
		e.logger.Info("answer indicates missing information, suggesting follow-up terms")
		if terms := extractFollowUpTerms(query, ans); len(terms) > 0 {
			if len(terms) > 3 {
				terms = terms[:3]
			}
			ans += fmt.Sprintf(
				"\n\n[Note: Some information may be incomplete. Consider searching for: %s]",
				strings.Join(terms, ", "))
		}
	}

	if ans == "" {
		ans = "No answer generated."
	}

	stats := baseStats
	stats.ContextTokens = bstats.ContextTokens
	stats.PromptTokens = len(prompt) / charsPerToken
	stats.AnswerTokens = len(ans) / charsPerToken
	stats.TotalTokens = stats.ContextTokens + stats.PromptTokens + stats.AnswerTokens
	stats.ContextUsagePercent = math.Round(float64(stats.TotalTokens)/float64(effective)*1000) / 10

	switch {
	case stats.ContextUsagePercent > 90:
		e.logger.Warn("context window usage high, consider increasing the window size",
			zap.Float64("usage_percent", stats.ContextUsagePercent))
	case stats.ContextUsagePercent > 75:
		e.logger.Info("context window usage",
			zap.Float64("usage_percent", stats.ContextUsagePercent))
	}

	return Result{Kind: ResultOK, Answer: ans, Stats: stats}
}

// cleanAnswer strips prompt artifacts the backend may echo back: anything
// up to a trailing "Answer:" marker, and any verbatim copy of the prompt's
// opening fragment.
func cleanAnswer(raw, prompt string) string {
	ans := strings.TrimSpace(raw)
	if i := strings.LastIndex(ans, "Answer:"); i >= 0 {
		ans = strings.TrimSpace(ans[i+len("Answer:"):])
	}
	frag := prompt
	if len(frag) > 50 {
		frag = frag[:50]
	}
	if i := strings.LastIndex(ans, frag); i >= 0 {
		ans = strings.TrimSpace(ans[i+len(frag):])
	}
	return ans
}

// UsageEntry converts a turn's stats into the record the configuration
// store appends to usage history.
func (s Stats) UsageEntry() window.UsageEntry {
	return window.UsageEntry{
		UsagePercent: s.ContextUsagePercent,
		Truncated:    s.ContextTruncated,
		TotalTokens:  s.TotalTokens,
		Window:       s.ContextWindow,
	}
}
