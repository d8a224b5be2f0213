package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockcast/internal/domain"
)

// FileStore keeps one JSON columnar file per key. Writes go to a temp file in
// the same directory and are renamed into place, so readers never see a
// partial entry.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if dir == "" {
		dir = "cache"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *FileStore) path(symbol, period string) string {
	return filepath.Join(s.dir, Key(symbol, period)+".json")
}

func (s *FileStore) Get(ctx context.Context, symbol, period string) (domain.MarketSeries, bool, error) {
	payload, err := os.ReadFile(s.path(symbol, period))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.MarketSeries{}, false, nil
	}
	if err != nil {
		return domain.MarketSeries{}, false, fmt.Errorf("read cache entry: %w", err)
	}

	series, writtenAt, err := decodeRecord(payload)
	if err != nil {
		return domain.MarketSeries{}, false, err
	}
	if !isFresh(writtenAt, s.now(), s.ttl) {
		return domain.MarketSeries{}, false, nil
	}
	return series, true, nil
}

func (s *FileStore) Put(ctx context.Context, series domain.MarketSeries) error {
	payload, err := encodeRecord(series, s.now())
	if err != nil {
		return err
	}

	key := Key(series.Symbol, series.Period)
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err = os.Rename(tmpName, s.path(series.Symbol, series.Period)); err != nil {
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries and abandoned temp files older than the TTL. Stale
// entries are never served, so removing them only reclaims disk.
func (s *FileStore) Prune(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list cache dir: %w", err)
	}
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove cache entry: %w", err)
		}
		removed++
	}
	return removed, nil
}
