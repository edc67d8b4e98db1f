package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okvist/lorevault/internal/window"
	"go.uber.org/zap"
)

// FileStore keeps settings and usage history in a single JSON document on
// disk. Writes rewrite the whole document; a mutex serializes access
// within the process.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// fileDoc is the on-disk layout.
type fileDoc struct {
	LLM          *LLMSettings        `json:"llm,omitempty"`
	UsageHistory []window.UsageEntry `json:"usage_history,omitempty"`
}

// NewFileStore creates a store backed by the JSON file at path. The file
// is created on first write.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// DefaultPath returns the conventional settings file location: the
// working directory if a file already exists there, the home directory
// otherwise.
func DefaultPath() string {
	const name = ".lorevault.json"
	if _, err := os.Stat(name); err == nil {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

func (f *FileStore) load() (fileDoc, error) {
	var doc fileDoc
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read settings %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse settings %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *FileStore) save(doc fileDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", f.path, err)
	}
	return nil
}

// LLM returns the stored backend settings, zero-valued when unset.
func (f *FileStore) LLM(ctx context.Context) (LLMSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return LLMSettings{}, err
	}
	if doc.LLM == nil {
		return LLMSettings{}, nil
	}
	return *doc.LLM, nil
}

// SetLLM persists new backend settings.
func (f *FileStore) SetLLM(ctx context.Context, s LLMSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.LLM = &s
	if err := f.save(doc); err != nil {
		return err
	}
	f.logger.Info("settings saved",
		zap.String("path", f.path),
		zap.String("model", s.Model),
		zap.Int("context_window", s.ContextWindow))
	return nil
}

// UsageHistory returns the recorded entries, oldest first.
func (f *FileStore) UsageHistory(ctx context.Context) ([]window.UsageEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return doc.UsageHistory, nil
}

// AppendUsage records a usage entry, keeping only the most recent 100.
func (f *FileStore) AppendUsage(ctx context.Context, e window.UsageEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	doc.UsageHistory = append(doc.UsageHistory, e)
	if len(doc.UsageHistory) > maxUsageEntries {
		doc.UsageHistory = doc.UsageHistory[len(doc.UsageHistory)-maxUsageEntries:]
	}
	return f.save(doc)
}
