package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func seedBook(t *testing.T, s *sqlite.Store, id int64, title string) *domain.Record {
	t.Helper()
	r := &domain.Record{ID: id, Type: domain.RecordTypeBook, Title: title}
	require.NoError(t, s.CreateRecord(context.Background(), r))
	return r
}

// mergeBooksDirect merges at the store layer, bypassing the merge
// service, for tests that only need the resulting group state.
func mergeBooksDirect(t *testing.T, s *sqlite.Store, from, to int64) {
	t.Helper()
	_, err := s.MergeBooks(context.Background(), store.BookMergeRequest{
		FromID: from, ToID: to, Actor: "tester",
	})
	require.NoError(t, err)
}

// captureEmitter records events synchronously, unlike the async Bus, so
// tests can assert on emissions without sleeping.
type captureEmitter struct {
	mu     sync.Mutex
	events []events.EventType
	data   []any
}

func (c *captureEmitter) Emit(typ events.EventType, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, typ)
	c.data = append(c.data, data)
}

func (c *captureEmitter) captured() []events.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.EventType(nil), c.events...)
}
