package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// setupTestDB creates an in-memory SQLite store for testing
func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	sqlDB, err := openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return &SQLiteStore{db: sqlDB, path: ":memory:"}
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": setupTestDB(t),
		"memory": NewMemory(),
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := store.Set(ctx, "chip_cooldown:product:https://a.example/x", "100"); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			got, err := store.Get(ctx, "chip_cooldown:product:https://a.example/x")
			if err != nil || got != "100" {
				t.Errorf("Get() = (%q, %v), want (100, nil)", got, err)
			}

			// Last write wins
			if err := store.Set(ctx, "chip_cooldown:product:https://a.example/x", "200"); err != nil {
				t.Fatalf("Set() overwrite failed: %v", err)
			}
			got, _ = store.Get(ctx, "chip_cooldown:product:https://a.example/x")
			if got != "200" {
				t.Errorf("Get() after overwrite = %q, want 200", got)
			}

			if err := store.Delete(ctx, "chip_cooldown:product:https://a.example/x"); err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			if _, err := store.Get(ctx, "chip_cooldown:product:https://a.example/x"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}

			// Deleting twice is fine
			if err := store.Delete(ctx, "chip_cooldown:product:https://a.example/x"); err != nil {
				t.Errorf("second Delete() failed: %v", err)
			}
		})
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			for _, key := range []string{"product_scan:a", "product_scan:b", "health_scan:a", "product%scan:c", "product_xcan:d"} {
				if err := store.Set(ctx, key, "v"); err != nil {
					t.Fatalf("Set(%s) failed: %v", key, err)
				}
			}

			got, err := store.Keys(ctx, "product_scan:")
			if err != nil {
				t.Fatalf("Keys() failed: %v", err)
			}
			want := []string{"product_scan:a", "product_scan:b"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Keys() = %v, want %v", got, want)
			}
		})
	}
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	store.Close()

	// Reopening sees the persisted value and does not re-create the table
	store, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	got, err := store.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Errorf("Get() = (%q, %v), want (v, nil)", got, err)
	}
	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "etcd"}); err == nil {
		t.Error("Open() expected error for unknown backend")
	}
}

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob("chip_cooldown:product:https://a.example/?q=[1]*")
	want := `chip_cooldown:product:https://a.example/\?q=\[1\]\*`
	if got != want {
		t.Errorf("escapeGlob() = %q, want %q", got, want)
	}
}
