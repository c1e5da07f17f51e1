// ABOUTME: Metadata store: one record per installed package in a JSON file
// ABOUTME: Holds an exclusive file lock while open; writes atomically and migrates the legacy layout

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mauromedda/gitstaller/internal/log"
	"github.com/mauromedda/gitstaller/internal/resolver"
)

// FormatVersion is the store layout written by Save.
const FormatVersion = 2

// Record describes one installed package.
type Record struct {
	Name        string
	Locator     string
	Policy      resolver.Policy
	Manual      bool
	InstalledAt time.Time
}

// Store is the set of package records backed by a JSON file.
// It is not safe for concurrent use; the file lock serializes processes.
type Store struct {
	path     string
	lock     *fileLock
	records  map[string]Record
	migrated bool
}

type fileRecord struct {
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Ref         string     `json:"ref,omitempty"`
	Manual      bool       `json:"manual"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`
}

type fileFormat struct {
	Format   int                   `json:"format"`
	Packages map[string]fileRecord `json:"packages"`
}

// legacyRecord is the flat layout written by earlier releases, where source
// is "main", "latest-release" or the pinned ref itself.
type legacyRecord struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Manual bool   `json:"manual"`
}

// Open locks and loads the store at path. A missing file is an empty store.
// The lock is held until Close; Open waits for it until ctx is done.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	lock, err := acquire(ctx, path+".lock")
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, lock: lock, records: make(map[string]Record)}
	if err := s.load(); err != nil {
		lock.release()
		return nil, err
	}
	return s, nil
}

// Path returns the location of the store file.
func (s *Store) Path() string { return s.path }

// Migrated reports whether the file on disk used the legacy layout.
func (s *Store) Migrated() bool { return s.migrated }

// Close releases the file lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.release()
	s.lock = nil
	return err
}

// Get returns the record for name.
func (s *Store) Get(name string) (Record, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Put inserts or replaces rec and persists the store. On a failed save the
// in-memory state is restored.
func (s *Store) Put(rec Record) error {
	if rec.Name == "" {
		return errors.New("record has no name")
	}
	if err := rec.Policy.Validate(); err != nil {
		return fmt.Errorf("record %s: %w", rec.Name, err)
	}

	prev, existed := s.records[rec.Name]
	s.records[rec.Name] = rec
	if err := s.Save(); err != nil {
		if existed {
			s.records[rec.Name] = prev
		} else {
			delete(s.records, rec.Name)
		}
		return err
	}
	return nil
}

// Delete removes the record for name and persists the store. Deleting an
// absent name is a no-op that still succeeds.
func (s *Store) Delete(name string) error {
	prev, existed := s.records[name]
	if !existed {
		return nil
	}
	delete(s.records, name)
	if err := s.Save(); err != nil {
		s.records[name] = prev
		return err
	}
	return nil
}

// Names returns the package names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns every record sorted by name.
func (s *Store) Records() []Record {
	names := s.Names()
	out := make([]Record, 0, len(names))
	for _, name := range names {
		out = append(out, s.records[name])
	}
	return out
}

// Save writes the store atomically in the current format.
func (s *Store) Save() error {
	data, err := Encode(s.Records())
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing temp store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp store: %w", err)
	}
	s.migrated = false
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}

	records, legacy, err := Decode(data)
	if err != nil {
		return fmt.Errorf("parsing store %s: %w", s.path, err)
	}
	for _, rec := range records {
		s.records[rec.Name] = rec
	}
	if legacy && len(records) > 0 {
		s.migrated = true
		log.Debug("read %s in the legacy layout", s.path)
	}
	return nil
}

// Encode renders records in the current file format.
func Encode(records []Record) ([]byte, error) {
	ff := fileFormat{Format: FormatVersion, Packages: make(map[string]fileRecord, len(records))}
	for _, rec := range records {
		fr := fileRecord{
			URL:    rec.Locator,
			Source: rec.Policy.Kind.String(),
			Ref:    rec.Policy.Ref,
			Manual: rec.Manual,
		}
		if !rec.InstalledAt.IsZero() {
			at := rec.InstalledAt.UTC()
			fr.InstalledAt = &at
		}
		ff.Packages[rec.Name] = fr
	}

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling store: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses either file format. legacy reports whether the input used
// the flat pre-format layout.
func Decode(data []byte) (records []Record, legacy bool, err error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, false, err
	}

	var version int
	if raw, ok := top["format"]; ok && json.Unmarshal(raw, &version) == nil {
		if version != FormatVersion {
			return nil, false, fmt.Errorf("unsupported store format %d", version)
		}
		var ff fileFormat
		if err := json.Unmarshal(data, &ff); err != nil {
			return nil, false, err
		}
		for name, fr := range ff.Packages {
			p, err := resolver.ParsePolicy(fr.Source, fr.Ref)
			if err != nil {
				return nil, false, fmt.Errorf("package %s: %w", name, err)
			}
			rec := Record{Name: name, Locator: fr.URL, Policy: p, Manual: fr.Manual}
			if fr.InstalledAt != nil {
				rec.InstalledAt = *fr.InstalledAt
			}
			records = append(records, rec)
		}
		sortRecords(records)
		return records, false, nil
	}

	for name, raw := range top {
		var lr legacyRecord
		if err := json.Unmarshal(raw, &lr); err != nil {
			return nil, true, fmt.Errorf("package %s: %w", name, err)
		}
		records = append(records, Record{
			Name:    name,
			Locator: lr.URL,
			Policy:  legacyPolicy(lr.Source),
			Manual:  lr.Manual,
		})
	}
	sortRecords(records)
	return records, true, nil
}

func legacyPolicy(source string) resolver.Policy {
	switch source {
	case "", resolver.SourceMain:
		return resolver.Branch(resolver.DefaultBranch)
	case resolver.SourceLatestRelease:
		return resolver.LatestRelease()
	default:
		return resolver.Pinned(source)
	}
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
}
