// Package fetch clones submission repositories listed in a manifest
// so they can be compared locally.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Entry is one manifest line: a project name and its clone URL.
type Entry struct {
	Name string
	URL  string
}

// ParseManifest reads "name = url" lines. Blank lines and lines
// starting with # are ignored.
func ParseManifest(r io.Reader) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, url, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("manifest line %d: expected name = url, got %q", line, text)
		}
		name = strings.TrimSpace(name)
		url = strings.TrimSpace(url)
		if name == "" || url == "" {
			return nil, fmt.Errorf("manifest line %d: empty name or url", line)
		}
		if strings.ContainsAny(name, "/\\") {
			return nil, fmt.Errorf("manifest line %d: name %q must not contain path separators", line, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("manifest line %d: duplicate project %q", line, name)
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, URL: url})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Fetcher clones or refreshes repositories under a destination root.
type Fetcher struct {
	dest string
	log  zerolog.Logger
}

// New creates a fetcher writing under dest.
func New(dest string, log zerolog.Logger) *Fetcher {
	return &Fetcher{dest: dest, log: log}
}

// Fetch clones entry's repository into dest/name, or pulls when the
// clone already exists.
func (f *Fetcher) Fetch(ctx context.Context, e Entry) error {
	dir := filepath.Join(f.dest, e.Name)

	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   e.URL,
		Depth: 1,
	})
	if err == nil {
		f.log.Info().Str("project", e.Name).Msg("cloned")
		return nil
	}
	if !errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return fmt.Errorf("clone %s: %w", e.Name, err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.Name, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", e.Name, err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull %s: %w", e.Name, err)
	}
	f.log.Info().Str("project", e.Name).Msg("refreshed")
	return nil
}

// FetchAll fetches every entry in parallel. Individual failures are
// collected; the remaining entries still complete.
func (f *Fetcher) FetchAll(ctx context.Context, entries []Entry, onProgress func()) error {
	p := pool.New().WithMaxGoroutines(runtime.NumCPU()).WithErrors()
	for _, e := range entries {
		p.Go(func() error {
			err := f.Fetch(ctx, e)
			if err != nil {
				f.log.Warn().Str("project", e.Name).Err(err).Msg("fetch failed")
			}
			if onProgress != nil {
				onProgress()
			}
			return err
		})
	}
	return p.Wait()
}
