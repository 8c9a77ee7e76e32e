// Package snapshot persists the in-memory store to object storage so that a
// restarted process can pick up where the previous one stopped.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/filmorate/backend/internal/logging"
	"github.com/filmorate/backend/internal/metrics"
	"github.com/filmorate/backend/internal/repositories"
	"github.com/filmorate/backend/internal/storage"
)

const formatVersion = 1

// ObjectStore reads and writes whole objects by key.
type ObjectStore interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Load(ctx context.Context, key string) ([]byte, error)
}

type document struct {
	Version int                   `json:"version"`
	SavedAt time.Time             `json:"savedAt"`
	Data    repositories.Snapshot `json:"data"`
}

// Manager saves and restores a MemoryStore.
type Manager struct {
	store   *repositories.MemoryStore
	objects ObjectStore
	key     string
	now     func() time.Time
}

// NewManager constructs a Manager writing to key in objects.
func NewManager(store *repositories.MemoryStore, objects ObjectStore, key string) *Manager {
	return &Manager{store: store, objects: objects, key: key, now: time.Now}
}

// Restore loads the last saved snapshot into the store. It reports false
// without error when no snapshot exists yet.
func (m *Manager) Restore(ctx context.Context) (restored bool, err error) {
	ctx, span := logging.StartSpan(ctx, "snapshot.restore")
	defer func() {
		span.End(err)
		metrics.RecordSnapshot("restore", err)
	}()

	data, err := m.objects.Load(ctx, m.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logging.FromContext(ctx).Info("no snapshot found", slog.String("key", m.key))
			return false, nil
		}
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != formatVersion {
		return false, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}
	if err := m.store.Import(doc.Data); err != nil {
		return false, fmt.Errorf("import snapshot: %w", err)
	}

	logging.FromContext(ctx).Info("snapshot restored",
		slog.Int("films", len(doc.Data.Films)),
		slog.Int("users", len(doc.Data.Users)),
		slog.Time("saved_at", doc.SavedAt),
	)
	return true, nil
}

// Save writes the current store state.
func (m *Manager) Save(ctx context.Context) (err error) {
	ctx, span := logging.StartSpan(ctx, "snapshot.save")
	defer func() {
		span.End(err)
		metrics.RecordSnapshot("save", err)
	}()

	doc := document{Version: formatVersion, SavedAt: m.now().UTC(), Data: m.store.Export()}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := m.objects.Save(ctx, m.key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
