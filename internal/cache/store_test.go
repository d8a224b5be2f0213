package cache

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"stockcast/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func sampleSeries() domain.MarketSeries {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, 3)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = domain.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    1000 * float64(i+1),
		}
	}
	return domain.MarketSeries{
		Symbol:     "AAPL",
		Period:     "1mo",
		Source:     "yahoo",
		Provenance: domain.ProvenanceReal,
		Candles:    candles,
	}
}

func TestKeyIsStableHex(t *testing.T) {
	a := Key("AAPL", "1mo")
	if a != Key("AAPL", "1mo") {
		t.Fatal("expected key to be stable")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", a)
	}
	if a == Key("AAPL", "3mo") {
		t.Fatal("expected different periods to hash differently")
	}
}

func TestRecordRoundTripKeepsHeader(t *testing.T) {
	series := sampleSeries()
	written := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	payload, err := encodeRecord(series, written)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, at, err := decodeRecord(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !at.Equal(written) {
		t.Fatalf("expected written_at %v, got %v", written, at)
	}
	if !reflect.DeepEqual(got, series) {
		t.Fatalf("series mismatch:\nwant %+v\ngot  %+v", series, got)
	}
}

func TestDecodeRejectsRaggedColumns(t *testing.T) {
	payload := []byte(`{"written_at":[1,1],"timestamp":[1,2],"open":[1],"high":[1,2],"low":[1,2],"close":[1,2],"volume":[1,2]}`)
	if _, _, err := decodeRecord(payload); err == nil {
		t.Fatal("expected ragged columns to fail")
	}
}

func TestFileStorePutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "AAPL", "1mo"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	series := sampleSeries()
	if err := store.Put(ctx, series); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(ctx, "AAPL", "1mo")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Len() != 3 || got.Source != "yahoo" || got.Provenance != domain.ProvenanceReal {
		t.Fatalf("unexpected cached series: %+v", got)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Put(context.Background(), sampleSeries()); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	name := entries[0].Name()
	if strings.HasSuffix(name, ".tmp") || name != Key("AAPL", "1mo")+".json" {
		t.Fatalf("unexpected file %q", name)
	}
}

func TestFileStoreExpiresAfterTTL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	if err := store.Put(context.Background(), sampleSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, ok, _ := store.Get(context.Background(), "AAPL", "1mo"); !ok {
		t.Fatal("expected entry to be fresh before TTL")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(context.Background(), "AAPL", "1mo"); ok {
		t.Fatal("expected entry to be stale after TTL")
	}
}

func TestFileStoreRejectsEmptySeries(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Put(context.Background(), domain.MarketSeries{Symbol: "X", Period: "5d"}); err == nil {
		t.Fatal("expected empty series to be rejected")
	}
}

func TestFileStoreCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	path := filepath.Join(dir, Key("AAPL", "1mo")+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok, err := store.Get(context.Background(), "AAPL", "1mo"); ok || err == nil {
		t.Fatalf("expected decode error, got ok=%v err=%v", ok, err)
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStorePutGet(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "AAPL", "1mo"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, sampleSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}

	key := redisKeyPrefix + Key("AAPL", "1mo")
	if !mr.Exists(key) {
		t.Fatalf("expected key %s to exist", key)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("expected TTL of 1h, got %v", ttl)
	}

	got, ok, err := store.Get(ctx, "AAPL", "1mo")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 candles, got %d", got.Len())
	}
}

func TestRedisStoreHonoursTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	if err := store.Put(ctx, sampleSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(time.Hour + time.Second)

	if _, ok, err := store.Get(ctx, "AAPL", "1mo"); ok || err != nil {
		t.Fatalf("expected expired miss, got ok=%v err=%v", ok, err)
	}
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	Client = nil
	if err := InitRedis(context.Background(), mr.Addr()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Client == nil {
		t.Fatal("expected client to be set")
	}
	_ = Client.Close()
	Client = nil
}

func TestFileStorePrune(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Put(context.Background(), sampleSeries()); err != nil {
		t.Fatalf("put: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	stalePath := filepath.Join(dir, Key("MSFT", "5d")+".json")
	tmpPath := filepath.Join(dir, "abandoned.123.tmp")
	keepPath := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stalePath, tmpPath, keepPath} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed, err := store.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if _, ok, _ := store.Get(context.Background(), "AAPL", "1mo"); !ok {
		t.Fatal("expected fresh entry to survive")
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Fatal("expected unrelated file to survive")
	}
}
