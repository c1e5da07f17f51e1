// ABOUTME: Per-command wiring: settings, locked store, git and build collaborators, metrics
// ABOUTME: The store lock is held from open until the command finishes

package cli

import (
	"context"
	"fmt"

	"github.com/mauromedda/gitstaller/internal/config"
	"github.com/mauromedda/gitstaller/internal/log"
	"github.com/mauromedda/gitstaller/internal/pkgmanager"
	"github.com/mauromedda/gitstaller/internal/store"
	"github.com/mauromedda/gitstaller/internal/telemetry"
)

type session struct {
	base     string
	settings *config.Settings
	store    *store.Store
	manager  *pkgmanager.Manager
	metrics  *telemetry.Metrics
	printer  *Printer
}

func (o *rootOptions) baseDir() string {
	if o.home != "" {
		return o.home
	}
	return config.BaseDir()
}

func (o *rootOptions) loadSettings() (string, *config.Settings, error) {
	base := o.baseDir()
	settings, err := config.Load(base)
	if err != nil {
		return "", nil, fmt.Errorf("loading configuration: %w", err)
	}
	return base, settings, nil
}

// open locks the store under base and builds a manager around it.
func (o *rootOptions) open(ctx context.Context, base string, settings *config.Settings) (*session, error) {
	p := NewPrinter(o.stdout, settings.Output.Color)

	if err := config.EnsureDir(base); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	st, err := store.Open(ctx, config.MetadataFile(base))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if st.Migrated() {
		NewPrinter(o.stderr, settings.Output.Color).Warn("Read %s in the legacy layout; it will be rewritten on the next change", st.Path())
	}

	metrics := telemetry.New()
	s := &session{
		base:     base,
		settings: settings,
		store:    st,
		metrics:  metrics,
		printer:  p,
	}
	s.manager = pkgmanager.New(pkgmanager.Options{
		PackagesDir:       config.PackagesDir(base),
		Store:             st,
		Git:               o.newGit(settings),
		Builder:           o.newBuilder(settings),
		Reporter:          p,
		Metrics:           metrics,
		DoctorConcurrency: settings.Doctor.Concurrency,
	})
	return s, nil
}

// openDefault loads settings and opens a session in one step.
func (o *rootOptions) openDefault(ctx context.Context) (*session, error) {
	base, settings, err := o.loadSettings()
	if err != nil {
		return nil, err
	}
	return o.open(ctx, base, settings)
}

func (s *session) close() {
	if err := s.metrics.WriteTextfile(s.settings.Metrics.Textfile); err != nil {
		log.Warn("%v", err)
	}
	if err := s.store.Close(); err != nil {
		log.Warn("releasing store lock: %v", err)
	}
}
