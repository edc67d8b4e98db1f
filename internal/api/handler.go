// Package api is the HTTP surface: indexing, search, question answering,
// and runtime configuration of the generation backend.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/okvist/lorevault/internal/answer"
	"github.com/okvist/lorevault/internal/llm"
	"github.com/okvist/lorevault/internal/retrieval"
	"github.com/okvist/lorevault/internal/store"
	"github.com/okvist/lorevault/internal/window"
)

// Handler holds dependencies for HTTP handlers. The generation client and
// answer engine sit behind a mutex so a config update can swap them
// without restarting the server.
type Handler struct {
	retrieval *retrieval.Service
	store     store.Store
	logger    *zap.Logger

	mu     sync.Mutex
	llmCfg llm.Config
	client *llm.Client
	engine *answer.Engine
}

// NewHandler creates an API handler with a generation backend built from
// cfg. The backend has not been probed yet; call Connect for that.
func NewHandler(svc *retrieval.Service, st store.Store, cfg llm.Config, logger *zap.Logger) *Handler {
	h := &Handler{retrieval: svc, store: st, logger: logger}
	h.apply(cfg)
	return h
}

// apply rebuilds the client and engine from cfg. Caller holds the mutex
// except during construction.
func (h *Handler) apply(cfg llm.Config) {
	client := llm.New(cfg, h.logger)
	h.llmCfg = cfg
	h.client = client
	h.engine = answer.NewEngine(client, cfg.ContextWindow, client.Detected(), h.logger)
}

// Connect probes the generation backend and folds the detected context
// window into the engine. Safe to call at startup and after config changes.
func (h *Handler) Connect(ctx context.Context) (window.Reconciliation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.client.Connect(ctx)
	if err != nil {
		return rec, err
	}
	h.engine = answer.NewEngine(h.client, h.llmCfg.ContextWindow, h.client.Detected(), h.logger)
	return rec, nil
}

// current returns the engine/client pair for one request.
func (h *Handler) current() (*answer.Engine, *llm.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine, h.client
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Post("/index", h.indexFile)
		r.Post("/index/directory", h.indexDirectory)
		r.Post("/search", h.search)
		r.Post("/ask", h.ask)
		r.Delete("/documents/{id}", h.deleteDocument)

		r.Get("/config/llm", h.getLLMConfig)
		r.Put("/config/llm", h.putLLMConfig)
		r.Get("/config/recommendation", h.getRecommendation)
		r.Get("/models", h.listModels)
		r.Get("/usage", h.getUsage)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok", "service": "lorevault"}
	if n, err := h.retrieval.Count(r.Context()); err == nil {
		resp["documents"] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

type indexRequest struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content,omitempty"`
}

func (h *Handler) indexFile(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_path is required"})
		return
	}

	var id string
	var err error
	if req.Content != "" {
		id, err = h.retrieval.IndexContent(r.Context(), req.FilePath, []byte(req.Content))
	} else {
		id, err = h.retrieval.IndexFile(r.Context(), req.FilePath)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        id,
		"file_path": req.FilePath,
		"status":    "indexed",
	})
}

type indexDirectoryRequest struct {
	Directory string `json:"directory"`
}

func (h *Handler) indexDirectory(w http.ResponseWriter, r *http.Request) {
	var req indexDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Directory == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "directory is required"})
		return
	}
	report, err := h.retrieval.IndexDirectory(r.Context(), req.Directory)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type searchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	FileType string `json:"file_type,omitempty"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	results, err := h.retrieval.Search(r.Context(), retrieval.Query{
		Text:     req.Query,
		Limit:    req.Limit,
		Offset:   req.Offset,
		FileType: req.FileType,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

type askRequest struct {
	Question      string   `json:"question"`
	ContextWindow int      `json:"context_window,omitempty"`
	MaxLength     int      `json:"max_length,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	NoFollowUp    bool     `json:"no_follow_up,omitempty"`
}

func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	candidates, err := h.retrieval.CandidatesFor(r.Context(), req.Question)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	engine, _ := h.current()
	result := engine.GenerateAnswer(r.Context(), req.Question, candidates, answer.Options{
		WindowOverride: req.ContextWindow,
		MaxLength:      req.MaxLength,
		Temperature:    req.Temperature,
		NoFollowUp:     req.NoFollowUp,
	})

	if result.Kind == answer.ResultOK {
		if err := h.store.AppendUsage(r.Context(), result.Stats.UsageEntry()); err != nil {
			h.logger.Warn("usage history append failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.retrieval.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (h *Handler) getLLMConfig(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	cfg := h.llmCfg
	model := h.client.Model()
	detected := h.client.Detected()
	h.mu.Unlock()

	resp := map[string]interface{}{
		"model":          model,
		"base_url":       cfg.BaseURL,
		"context_window": cfg.ContextWindow,
	}
	if detected != 0 {
		resp["detected_backend_window"] = detected
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) putLLMConfig(w http.ResponseWriter, r *http.Request) {
	var req store.LLMSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.mu.Lock()
	cfg := h.llmCfg
	h.mu.Unlock()

	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.BaseURL != "" {
		cfg.BaseURL = req.BaseURL
	}
	requested := req.ContextWindow
	if requested != 0 {
		cfg.ContextWindow = window.NearestValid(requested)
	}

	saved := store.LLMSettings{
		Model:         cfg.Model,
		BaseURL:       cfg.BaseURL,
		ContextWindow: cfg.ContextWindow,
	}
	if err := h.store.SetLLM(r.Context(), saved); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.apply(cfg)
	h.mu.Unlock()

	resp := map[string]interface{}{
		"model":          saved.Model,
		"base_url":       saved.BaseURL,
		"context_window": saved.ContextWindow,
		"status":         "updated",
	}
	if requested != 0 && requested != saved.ContextWindow {
		resp["requested_window"] = requested
		resp["snapped"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.UsageHistory(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	engine, _ := h.current()
	current := engine.ContextWindow()

	rec := window.Recommend(history, current)
	resp := map[string]interface{}{
		"current_window": current,
		"history_size":   len(history),
	}
	if rec != nil {
		resp["recommendation"] = rec
	} else {
		resp["recommendation"] = nil
		resp["reason"] = "not enough history or no actionable signal"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	_, client := h.current()
	names, err := client.ListModels(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": names})
}

func (h *Handler) getUsage(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.UsageHistory(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": history,
		"count":   len(history),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
