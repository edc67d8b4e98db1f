package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okvist/lorevault/internal/window"
	"go.uber.org/zap"
)

// PostgresStore persists settings and usage history in PostgreSQL. The
// history trim runs inside the append statement batch, so the table never
// grows past the ring capacity by more than a single in-flight insert.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects a pgx pool and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connected")
	return &PostgresStore{db: pool, logger: logger}, nil
}

// Migrate reads and executes all .up.sql files from the migrations
// directory in name order.
func (s *PostgresStore) Migrate(ctx context.Context, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(migrationsDir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		s.logger.Info("migration applied", zap.String("file", f))
	}
	return nil
}

// LLM returns the stored backend settings, zero-valued when unset.
func (s *PostgresStore) LLM(ctx context.Context) (LLMSettings, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = 'llm'`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return LLMSettings{}, nil
	}
	if err != nil {
		return LLMSettings{}, fmt.Errorf("load llm settings: %w", err)
	}
	var out LLMSettings
	if err := json.Unmarshal(raw, &out); err != nil {
		return LLMSettings{}, fmt.Errorf("parse llm settings: %w", err)
	}
	return out, nil
}

// SetLLM upserts the backend settings document.
func (s *PostgresStore) SetLLM(ctx context.Context, cfg LLMSettings) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal llm settings: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ('llm', $1)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, raw)
	if err != nil {
		return fmt.Errorf("save llm settings: %w", err)
	}
	return nil
}

// UsageHistory returns up to the 100 most recent entries, oldest first.
func (s *PostgresStore) UsageHistory(ctx context.Context) ([]window.UsageEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT entry FROM (
		   SELECT id, entry FROM usage_history ORDER BY id DESC LIMIT $1
		 ) recent ORDER BY id ASC`, maxUsageEntries)
	if err != nil {
		return nil, fmt.Errorf("load usage history: %w", err)
	}
	defer rows.Close()

	var out []window.UsageEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan usage entry: %w", err)
		}
		var e window.UsageEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("parse usage entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendUsage inserts an entry and trims the ring past 100 entries.
func (s *PostgresStore) AppendUsage(ctx context.Context, e window.UsageEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal usage entry: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO usage_history (entry) VALUES ($1)`, raw)
	if err != nil {
		return fmt.Errorf("append usage entry: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`DELETE FROM usage_history WHERE id NOT IN (
		   SELECT id FROM usage_history ORDER BY id DESC LIMIT $1
		 )`, maxUsageEntries)
	if err != nil {
		return fmt.Errorf("trim usage history: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}
