// Package llm is the HTTP client for an Ollama-compatible generation
// backend: text generation, model listing, and best-effort detection of
// the backend's configured context window.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okvist/lorevault/internal/answer"
	"github.com/okvist/lorevault/internal/window"
	"go.uber.org/zap"
)

// Config holds connection settings for the generation backend.
type Config struct {
	BaseURL       string `json:"base_url"`
	Model         string `json:"model"`
	ContextWindow int    `json:"context_window"`
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"

	// probeTimeout bounds connectivity checks (model listing). Fixed and
	// short, independent of window size.
	probeTimeout = 5 * time.Second

	minGenerateTimeout = 60 * time.Second
	maxGenerateTimeout = 600 * time.Second
)

// Client talks to one Ollama endpoint. Safe for concurrent use; every
// generation call is an independent request.
type Client struct {
	baseURL  string
	model    string
	window   int
	detected int
	http     *http.Client
	logger   *zap.Logger
}

// New creates a backend client. The context window is only used to size
// request timeouts here; validation against the ladder happens at the
// configuration boundary.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = window.Ladder[0]
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		window:  cfg.ContextWindow,
		http:    &http.Client{},
		logger:  logger,
	}
}

// Model returns the (possibly resolved) model name in use.
func (c *Client) Model() string { return c.model }

// Detected returns the backend-reported context window from the last
// Connect, or 0 when detection failed.
func (c *Client) Detected() int { return c.detected }

// GenerateTimeout scales the request deadline with the window size:
// roughly one minute per 50k tokens, clamped to [60s, 600s]. Larger
// windows take proportionally longer to process.
func GenerateTimeout(contextWindow int) time.Duration {
	d := time.Duration(float64(contextWindow) / 50000 * float64(time.Minute))
	if d < minGenerateTimeout {
		return minGenerateTimeout
	}
	if d > maxGenerateTimeout {
		return maxGenerateTimeout
	}
	return d
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs one completion request. The deadline scales with the
// configured window; a timeout or connection failure is terminal for the
// call and never retried here.
func (c *Client) Generate(ctx context.Context, prompt string, opts answer.GenerateOptions) (string, error) {
	timeout := GenerateTimeout(c.window)
	c.logger.Info("generation request",
		zap.String("model", c.model),
		zap.Duration("timeout", timeout),
		zap.Int("context_window", c.window))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate: backend returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("generate: decode response: %w", err)
	}
	return result.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of installed models. Uses the short probe
// timeout regardless of window size.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create tags request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: backend returned %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("list models: decode response: %w", err)
	}
	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}

// Available reports whether the backend answers the model-listing probe.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.ListModels(ctx)
	return err == nil
}

// Connect probes the backend: lists models, resolves the configured model
// name against installed tags, detects the backend's num_ctx, and
// reconciles it with the configured window. Mismatches are logged and
// surfaced, never auto-corrected.
func (c *Client) Connect(ctx context.Context) (window.Reconciliation, error) {
	names, err := c.ListModels(ctx)
	if err != nil {
		return window.Reconciliation{}, fmt.Errorf("connect: %w", err)
	}
	c.logger.Info("generation backend connected",
		zap.String("base_url", c.baseURL),
		zap.Int("models", len(names)))

	if resolved, ok := resolveModel(c.model, names); ok {
		if resolved != c.model {
			c.logger.Info("resolved model name",
				zap.String("configured", c.model),
				zap.String("resolved", resolved))
		}
		c.model = resolved
	} else {
		c.logger.Warn("model not installed on backend",
			zap.String("model", c.model),
			zap.Strings("available", head(names, 3)))
	}

	detected, ok := c.ConfiguredWindow(ctx)
	if ok {
		c.detected = detected
	}
	rec := window.Reconcile(c.window, detected, ok)
	if rec.Mismatch {
		c.logger.Warn(rec.Warning)
	}
	return rec, nil
}

// resolveModel matches a configured model name against installed tags,
// handling Ollama's :latest suffix conventions.
func resolveModel(name string, installed []string) (string, bool) {
	for _, n := range installed {
		if n == name {
			return name, true
		}
	}
	withLatest := name + ":latest"
	for _, n := range installed {
		if n == withLatest {
			return withLatest, true
		}
	}
	base := name
	if i := strings.Index(base, ":"); i >= 0 {
		base = base[:i]
	}
	for _, n := range installed {
		if n == base {
			return base, true
		}
	}
	for _, n := range installed {
		if strings.HasPrefix(n, base+":") {
			return n, true
		}
	}
	return "", false
}

type showRequest struct {
	Name string `json:"name"`
}

type showResponse struct {
	Modelfile  string `json:"modelfile"`
	Parameters string `json:"parameters"`
}

var numCtxModelfileRe = regexp.MustCompile(`(?i)PARAMETER\s+num_ctx\s+(\d+)`)
var numCtxParamRe = regexp.MustCompile(`(?im)^num_ctx\s+(\d+)`)

// ConfiguredWindow asks the backend for the active model's num_ctx. Not
// every backend version exposes it; the OLLAMA_NUM_CTX environment
// variable serves as a last-resort hint.
func (c *Client) ConfiguredWindow(ctx context.Context) (int, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	body, err := json.Marshal(showRequest{Name: c.model})
	if err != nil {
		return 0, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/show", bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			var result showResponse
			if json.NewDecoder(resp.Body).Decode(&result) == nil {
				if m := numCtxModelfileRe.FindStringSubmatch(result.Modelfile); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil {
						return n, true
					}
				}
				if m := numCtxParamRe.FindStringSubmatch(result.Parameters); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil {
						return n, true
					}
				}
			}
		}
	}

	if env := os.Getenv("OLLAMA_NUM_CTX"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			return n, true
		}
	}
	return 0, false
}

func head(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
