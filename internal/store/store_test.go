// ABOUTME: Tests for the metadata store: persistence, migration, rollback, and locking
// ABOUTME: Uses temp directories; the lock test opens the same store twice in one process

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mauromedda/gitstaller/internal/resolver"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "installed.json")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleRecords() []Record {
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	return []Record{
		{Name: "alpha", Locator: "https://example.com/alpha.git", Policy: resolver.Branch("main")},
		{Name: "beta", Locator: "git@example.com:team/beta.git", Policy: resolver.LatestRelease(), Manual: true, InstalledAt: at},
		{Name: "gamma", Locator: "/srv/git/gamma", Policy: resolver.Pinned("deadbeef"), InstalledAt: at},
		{Name: "delta", Locator: "https://example.com/delta", Policy: resolver.Branch("develop")},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, path := openTemp(t)
	for _, rec := range sampleRecords() {
		if err := s.Put(rec); err != nil {
			t.Fatalf("Put(%s): %v", rec.Name, err)
		}
	}
	s.Close()

	reopened, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	for _, want := range sampleRecords() {
		got, ok := reopened.Get(want.Name)
		if !ok {
			t.Fatalf("record %s missing after reload", want.Name)
		}
		if got.Locator != want.Locator || got.Policy != want.Policy || got.Manual != want.Manual ||
			!got.InstalledAt.Equal(want.InstalledAt) {
			t.Errorf("record %s = %+v; want %+v", want.Name, got, want)
		}
	}
	if names := reopened.Names(); strings.Join(names, ",") != "alpha,beta,delta,gamma" {
		t.Errorf("Names = %v; want sorted", names)
	}
}

func TestEncodeDecode_Identity(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	records, legacy, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if legacy {
		t.Error("Decode reported legacy for the current format")
	}
	again, err := Encode(records)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("re-encoded store differs:\n%s\nvs\n%s", again, data)
	}
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	t.Parallel()

	s, path := openTemp(t)
	if len(s.Records()) != 0 {
		t.Errorf("expected empty store, got %v", s.Records())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Open should not create the store file, stat err = %v", err)
	}
}

func TestStore_LegacyMigration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "installed.json")
	legacy := `{
  "foo": {"url": "https://example.com/foo.git", "source": "main", "manual": false},
  "bar": {"url": "https://example.com/bar.git", "source": "latest-release", "manual": true},
  "baz": {"url": "https://example.com/baz.git", "source": "v0.3.1", "manual": false}
}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if !s.Migrated() {
		t.Error("Migrated = false; want true")
	}
	checks := map[string]resolver.Policy{
		"foo": resolver.Branch("main"),
		"bar": resolver.LatestRelease(),
		"baz": resolver.Pinned("v0.3.1"),
	}
	for name, want := range checks {
		rec, ok := s.Get(name)
		if !ok {
			t.Fatalf("record %s missing", name)
		}
		if rec.Policy != want {
			t.Errorf("%s policy = %+v; want %+v", name, rec.Policy, want)
		}
	}
	if rec, _ := s.Get("bar"); !rec.Manual {
		t.Error("bar.Manual = false; want true")
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"format": 2`) {
		t.Errorf("saved store not in current format:\n%s", data)
	}
}

func TestDecode_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, _, err := Decode([]byte(`{"format": 9, "packages": {}}`)); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestStore_PutRollsBackOnSaveFailure(t *testing.T) {
	t.Parallel()

	s, path := openTemp(t)
	if err := s.Put(sampleRecords()[0]); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Replace the store file with a non-empty directory so the rename fails.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o700); err != nil {
		t.Fatal(err)
	}

	if err := s.Put(sampleRecords()[1]); err == nil {
		t.Fatal("expected Put to fail")
	}
	if _, ok := s.Get("beta"); ok {
		t.Error("failed Put left beta in memory")
	}

	if err := s.Delete("alpha"); err == nil {
		t.Fatal("expected Delete to fail")
	}
	if _, ok := s.Get("alpha"); !ok {
		t.Error("failed Delete removed alpha from memory")
	}
}

func TestStore_DeleteAbsentIsNoop(t *testing.T) {
	t.Parallel()

	s, _ := openTemp(t)
	if err := s.Delete("nope"); err != nil {
		t.Errorf("Delete(absent) = %v; want nil", err)
	}
}

func TestStore_PutRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	s, _ := openTemp(t)
	if err := s.Put(Record{Locator: "x"}); err == nil {
		t.Error("expected error for unnamed record")
	}
	if err := s.Put(Record{Name: "x", Policy: resolver.Policy{Kind: resolver.PinnedVersion}}); err == nil {
		t.Error("expected error for pinned record without ref")
	}
}

func TestOpen_LockExclusion(t *testing.T) {
	t.Parallel()

	s, path := openTemp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := Open(ctx, path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Open error = %v; want ErrLocked", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	again.Close()
}
