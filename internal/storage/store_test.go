package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

type mockStoreSpec struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func (s *mockStoreSpec) Validate() error {
	return nil
}

func writeAsset(t *testing.T, path string, asset Asset[*mockStoreSpec]) {
	t.Helper()
	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("failed to marshal test asset: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestNewFileStore(t *testing.T) {
	tests := map[string]struct {
		setup    func(t *testing.T, dir string)
		expCount int
		expErr   string
	}{
		"empty directory": {
			setup: func(t *testing.T, dir string) {},
		},
		"loads assets recursively": {
			setup: func(t *testing.T, dir string) {
				sub := filepath.Join(dir, "nested")
				if err := os.Mkdir(sub, 0755); err != nil {
					t.Fatal(err)
				}
				writeAsset(t, filepath.Join(dir, "one.json"), Asset[*mockStoreSpec]{Version: 1, Identifier: "one", Spec: &mockStoreSpec{Name: "One"}})
				writeAsset(t, filepath.Join(sub, "two.json"), Asset[*mockStoreSpec]{Version: 1, Identifier: "two", Spec: &mockStoreSpec{Name: "Two"}})
			},
			expCount: 2,
		},
		"ignores other files": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, filepath.Join(dir, "one.json"), Asset[*mockStoreSpec]{Version: 1, Identifier: "one", Spec: &mockStoreSpec{}})
				if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			expCount: 1,
		},
		"invalid json": {
			setup: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{nope`), 0644); err != nil {
					t.Fatal(err)
				}
			},
			expErr: "unmarshalling asset",
		},
		"invalid asset": {
			setup: func(t *testing.T, dir string) {
				writeAsset(t, filepath.Join(dir, "one.json"), Asset[*mockStoreSpec]{Identifier: "one", Spec: &mockStoreSpec{}})
			},
			expErr: "version must be set",
		},
		"duplicate key": {
			setup: func(t *testing.T, dir string) {
				a := Asset[*mockStoreSpec]{Version: 1, Identifier: "dup", Spec: &mockStoreSpec{}}
				writeAsset(t, filepath.Join(dir, "a.json"), a)
				writeAsset(t, filepath.Join(dir, "b.json"), a)
			},
			expErr: "duplicate key detected: dup",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			store, err := NewFileStore[*mockStoreSpec](dir)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "record count", len(store.GetAll()), tt.expCount)
		})
	}
}

func TestNewFileStore_MissingDirectory(t *testing.T) {
	_, err := NewFileStore[*mockStoreSpec](filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFileStore_Get(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.records = map[Identifier]*mockStoreSpec{
		"alice": {Name: "Alice", Value: 7},
	}

	got, err := store.Get("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "name", got.Name, "Alice")

	_, err = store.Get("bob")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_GetSeesOtherWriters(t *testing.T) {
	dir := t.TempDir()
	reader, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writer, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := writer.Save("alice", &mockStoreSpec{Name: "Alice", Value: 1}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	got, err := reader.Get("alice")
	if err != nil {
		t.Fatalf("record written after open not found: %v", err)
	}
	testutil.AssertEqual(t, "created", got.Value, 1)

	if err := writer.Save("alice", &mockStoreSpec{Name: "Alice", Value: 2}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	got, err = reader.Get("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "updated", got.Value, 2)
	testutil.AssertEqual(t, "cache refreshed", reader.GetAll()["alice"].Value, 2)

	_, err = reader.Get("../alice")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unsafe id, got %v", err)
	}
}

func TestFileStore_GetCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "alice.json"), []byte("{"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err = store.Get("alice")
	testutil.AssertErrorContains(t, err, "loading alice")
}

func TestFileStore_GetAllReturnsCopy(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.records = map[Identifier]*mockStoreSpec{
		"a": {Name: "A"},
		"b": {Name: "B"},
	}

	all := store.GetAll()
	delete(all, "a")

	testutil.AssertEqual(t, "store records", len(store.records), 2)
}

func TestFileStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Save("alice", &mockStoreSpec{Name: "First", Value: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save("alice", &mockStoreSpec{Name: "Second", Value: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, err := store.Get("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "cached value", cached.Value, 2)

	reloaded, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error reloading: %v", err)
	}
	got, err := reloaded.Get("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reloaded name", got.Name, "Second")

	if _, err := os.Stat(filepath.Join(dir, "alice.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestFileStore_SaveRejectsUnsafeId(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = store.Save("../escape", &mockStoreSpec{})
	testutil.AssertErrorContains(t, err, "must contain only letters")

	_, err = store.Get("../escape")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected record was cached: %v", err)
	}
}
