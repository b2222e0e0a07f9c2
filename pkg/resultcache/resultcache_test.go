package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/kvstore"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(t *testing.T) (*Cache, kvstore.Store, *clock) {
	t.Helper()
	kv := kvstore.NewMemory()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(kv, models.DefaultGateConfig(), WithClock(clk.now)), kv, clk
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		chipType models.ChipType
		host     string
		subject  string
		variant  string
		want     string
	}{
		{"product no variant", models.ChipProduct, "www.amazon.com", "Acme UltraBlend 3000", "", "product_scan:www.amazon.com:acme_ultrablend_3000"},
		{"product variant", models.ChipProduct, "www.amazon.com", "Acme UltraBlend 3000", "Matte Black, 64 oz", "product_scan:www.amazon.com:acme_ultrablend_3000:matte_black_64_oz"},
		{"health", models.ChipHealth, "News.Example.com", "  Turmeric cures arthritis!? ", "", "health_scan:news.example.com:turmeric_cures_arthritis"},
		{"punctuation-only variant", models.ChipProduct, "shop.example.com", "Widget Pro", "--", "product_scan:shop.example.com:widget_pro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.chipType, tt.host, tt.subject, tt.variant); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Hello World":      "hello_world",
		"__a--b__":         "a_b",
		"Café 100%":        "caf_100",
		"":                 "",
		"ALL_CAPS_ALREADY": "all_caps_already",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, kv, clk := newTestCache(t)
	key := Key(models.ChipProduct, "shop.example.com", "Widget Pro", "")
	data := json.RawMessage(`{"verdict":"ok","score":3}`)

	if _, ok := c.GetCachedScan(ctx, key); ok {
		t.Fatal("hit on empty cache")
	}
	if err := c.SetCachedScan(ctx, key, data); err != nil {
		t.Fatalf("SetCachedScan() error = %v", err)
	}

	clk.t = clk.t.Add(29 * time.Minute)
	got, ok := c.GetCachedScan(ctx, key)
	if !ok || string(got) != string(data) {
		t.Fatalf("GetCachedScan() = (%s, %v), want (%s, true)", got, ok, data)
	}

	clk.t = clk.t.Add(time.Minute)
	if _, ok := c.GetCachedScan(ctx, key); ok {
		t.Error("hit after 30m")
	}
	if _, err := kv.Get(ctx, key); !errors.Is(err, kvstore.ErrNotFound) {
		t.Error("expired entry not deleted")
	}
}

func TestRejectsInvalidJSON(t *testing.T) {
	c, _, _ := newTestCache(t)
	if err := c.SetCachedScan(context.Background(), "product_scan:x:y", json.RawMessage(`{nope`)); err == nil {
		t.Error("SetCachedScan() accepted invalid JSON")
	}
}

func TestEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, kv, clk := newTestCache(t)
	maxEntries := models.DefaultGateConfig().CacheMaxEntries

	for i := 0; i <= maxEntries; i++ {
		ct := models.ChipTypes[i%2]
		key := Key(ct, "shop.example.com", fmt.Sprintf("item %d", i), "")
		if err := c.SetCachedScan(ctx, key, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("SetCachedScan(%d) error = %v", i, err)
		}
		clk.t = clk.t.Add(time.Second)
	}

	var total int
	for _, ct := range models.ChipTypes {
		keys, err := kv.Keys(ctx, string(ct)+"_scan:")
		if err != nil {
			t.Fatal(err)
		}
		total += len(keys)
	}
	if total != maxEntries {
		t.Errorf("entries = %d, want %d", total, maxEntries)
	}
	if _, ok := c.GetCachedScan(ctx, Key(models.ChipProduct, "shop.example.com", "item 0", "")); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.GetCachedScan(ctx, Key(models.ChipHealth, "shop.example.com", "item 1", "")); !ok {
		t.Error("second-oldest entry evicted")
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	seed := []string{
		Key(models.ChipProduct, "shop.example.com", "Widget Pro", "Blue"),
		Key(models.ChipProduct, "shop.example.com", "Widget Pro", "Red"),
		Key(models.ChipHealth, "shop.example.com", "Turmeric cures arthritis", ""),
		Key(models.ChipProduct, "other.example.com", "Widget Pro", ""),
	}
	for _, key := range seed {
		if err := c.SetCachedScan(ctx, key, json.RawMessage(`1`)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.ClearProductCache(ctx, "shop.example.com")
	if err != nil || n != 2 {
		t.Fatalf("ClearProductCache() = (%d, %v), want (2, nil)", n, err)
	}
	if _, ok := c.GetCachedScan(ctx, seed[2]); !ok {
		t.Error("ClearProductCache removed a health scan")
	}

	n, err = c.ClearHostnameCache(ctx, "SHOP.example.com")
	if err != nil || n != 1 {
		t.Fatalf("ClearHostnameCache() = (%d, %v), want (1, nil)", n, err)
	}
	if _, ok := c.GetCachedScan(ctx, seed[3]); !ok {
		t.Error("ClearHostnameCache removed another host's scan")
	}
}

type failingStore struct{}

var errBackend = errors.New("backend unavailable")

func (failingStore) Get(context.Context, string) (string, error) { return "", errBackend }
func (failingStore) Set(context.Context, string, string) error { return errBackend }
func (failingStore) Delete(context.Context, string) error { return errBackend }
func (failingStore) Keys(context.Context, string) ([]string, error) { return nil, errBackend }
func (failingStore) Close() error { return nil }

func TestFailSoft(t *testing.T) {
	ctx := context.Background()
	c := New(failingStore{}, models.DefaultGateConfig())
	if _, ok := c.GetCachedScan(ctx, "product_scan:x:y"); ok {
		t.Error("GetCachedScan() hit on failing store")
	}
	if err := c.SetCachedScan(ctx, "product_scan:x:y", json.RawMessage(`{}`)); !errors.Is(err, errBackend) {
		t.Errorf("SetCachedScan() error = %v", err)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestCache(t)
	if err := kv.Set(ctx, "product_scan:x:y", "garbage"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.GetCachedScan(ctx, "product_scan:x:y"); ok {
		t.Error("corrupt entry returned as hit")
	}
}
