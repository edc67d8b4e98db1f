// Package store persists the assistant's settings and context usage
// history. Two implementations exist: a JSON file for single-machine
// setups and PostgreSQL for shared deployments.
package store

import (
	"context"

	"github.com/okvist/lorevault/internal/window"
)

// LLMSettings is the persisted generation backend configuration.
type LLMSettings struct {
	Model         string `json:"model"`
	BaseURL       string `json:"base_url"`
	ContextWindow int    `json:"context_window"`
}

// Store is key-value persistence for settings and the bounded usage
// history. Append is read-modify-write; last write wins, serialization of
// concurrent writers is the backend's concern.
type Store interface {
	// LLM returns the stored settings, or the zero value when unset.
	LLM(ctx context.Context) (LLMSettings, error)
	SetLLM(ctx context.Context, s LLMSettings) error

	// UsageHistory returns at most the 100 most recent entries, oldest
	// first.
	UsageHistory(ctx context.Context) ([]window.UsageEntry, error)
	// AppendUsage records one entry, evicting the oldest beyond 100.
	AppendUsage(ctx context.Context, e window.UsageEntry) error
}

// maxUsageEntries caps the usage history ring.
const maxUsageEntries = 100
