// Package loader discovers project directories and turns their source
// files into entity indexes.
package loader

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/zeebo/blake3"

	"github.com/doppelkit/doppel/pkg/config"
	"github.com/doppelkit/doppel/pkg/entity"
	"github.com/doppelkit/doppel/pkg/frontend"
)

// Loader builds lazily-parsed projects from directories on disk.
type Loader struct {
	cfg *config.Config
	reg *frontend.Registry
	log zerolog.Logger
}

// New creates a loader. A nil config falls back to defaults.
func New(cfg *config.Config, reg *frontend.Registry, log zerolog.Logger) *Loader {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if reg == nil {
		reg = frontend.Default()
	}
	return &Loader{cfg: cfg, reg: reg, log: log}
}

// Project builds a project rooted at dir. Files are enumerated and
// fingerprinted now; parsing is deferred until the first Acquire so a
// memory gate can bound how many parsed indexes exist at once.
func (l *Loader) Project(name, dir string, template bool) (*entity.Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project %s: %s is not a directory", name, dir)
	}

	files, err := l.sourceFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}

	fp, err := fingerprint(dir, files)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}

	return entity.NewProject(name, dir, template, files, fp, func() (*entity.Index, error) {
		return l.parse(name, dir, files)
	}), nil
}

// Discover treats every immediate subdirectory of root as a project,
// named after the directory.
func (l *Loader) Discover(root string, template bool) ([]*entity.Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var projects []*entity.Project
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := l.Project(e.Name(), filepath.Join(root, e.Name()), template)
		if err != nil {
			return nil, err
		}
		if len(p.Files) == 0 {
			l.log.Warn().Str("project", p.Name).Msg("no supported source files, skipping")
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Warm parses every project once in parallel so parse diagnostics
// surface before the comparison run starts. Projects stay resident
// only when ungated.
func (l *Loader) Warm(projects []*entity.Project, onProgress func()) error {
	p := pool.New().WithMaxGoroutines(runtime.NumCPU()).WithErrors()
	for _, prj := range projects {
		p.Go(func() error {
			if _, err := prj.Acquire(); err != nil {
				return fmt.Errorf("%s: %w", prj.Name, err)
			}
			prj.Release()
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	return p.Wait()
}

// sourceFiles walks dir and returns relative paths of parseable files,
// honoring the exclusion config. Files with unrecognized extensions
// are skipped, not errors.
func (l *Loader) sourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		if d.IsDir() {
			if rel != "." && l.cfg.ShouldExclude(rel+string(filepath.Separator)) {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") && rel != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if l.cfg.ShouldExclude(rel) {
			return nil
		}
		if _, ferr := l.reg.ForFile(path); ferr != nil {
			l.log.Debug().Str("file", rel).Msg("unsupported language, skipping")
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// parse builds the index for one project. A file that fails to parse
// is logged and dropped; one broken submission file must not take the
// whole project out of the run.
func (l *Loader) parse(name, dir string, files []string) (*entity.Index, error) {
	var (
		mu       sync.Mutex
		entities []*entity.Entity
		failures int
	)

	p := pool.New().WithMaxGoroutines(runtime.NumCPU())
	for _, rel := range files {
		p.Go(func() {
			path := filepath.Join(dir, rel)
			src, err := os.ReadFile(path)
			if err != nil {
				l.log.Warn().Str("project", name).Str("file", rel).Err(err).Msg("read failed")
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			fe, err := l.reg.ForFile(path)
			if err != nil {
				return
			}

			es, err := fe.Parse(rel, src)
			if err != nil {
				l.log.Warn().Str("project", name).Str("file", rel).Err(err).Msg("parse failed")
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			for _, e := range es {
				tag(e, name)
			}
			mu.Lock()
			entities = append(entities, es...)
			mu.Unlock()
		})
	}
	p.Wait()

	if failures > 0 {
		l.log.Info().Str("project", name).Int("failed_files", failures).Msg("loaded with parse failures")
	}

	// Deterministic entity order regardless of parse completion order.
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Origin.File != entities[j].Origin.File {
			return entities[i].Origin.File < entities[j].Origin.File
		}
		return entities[i].Origin.Line < entities[j].Origin.Line
	})
	return &entity.Index{Entities: entities}, nil
}

func tag(e *entity.Entity, project string) {
	e.Origin.Project = project
	for _, c := range e.Children {
		tag(c, project)
	}
}

// fingerprint hashes the file roster with each file's size and mtime.
// It changes whenever a submission changes, without reading contents.
func fingerprint(dir string, files []string) (string, error) {
	h := blake3.New()
	for _, rel := range files {
		info, err := os.Stat(filepath.Join(dir, rel))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00", rel, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
