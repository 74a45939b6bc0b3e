package pluginhost

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/radioflow/runtime/internal/radioerr"
)

// Repository holds the ';'-separated search path lists configured per Kind
// (spec §4.10 setRepository) and resolves a component/controller class name
// to a concrete shared-library path.
type Repository struct {
	mu    sync.RWMutex
	paths map[Kind][]string
}

// NewRepository builds an empty Repository.
func NewRepository() *Repository {
	return &Repository{paths: make(map[Kind][]string)}
}

// SetPaths replaces the search paths for kind. Any path that does not exist
// on disk is rejected (spec §6: "paths that do not exist are rejected").
func (r *Repository) SetPaths(kind Kind, paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return radioerr.Newf(radioerr.ResourceNotFound, "Repository.SetPaths", "search path does not exist: %s", p)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[kind] = append([]string{}, paths...)
	return nil
}

// Paths returns the currently configured search paths for kind.
func (r *Repository) Paths(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.paths[kind]...)
}

// libraryFilePrefix and libraryFileExt implement the OS-dependent file
// layout from spec §6: "<prefix><stem><ext> where prefix/ext are
// lib/.so, empty/.dll, or lib/.dylib".
func libraryFilePrefix() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return "lib"
}

func libraryFileExt() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// Resolve searches kind's configured paths for a file matching
// <prefix><stem><ext>, case-insensitively, preferring the most recently
// modified file when more than one path yields a match.
func (r *Repository) Resolve(kind Kind, stem string) (string, error) {
	wantName := strings.ToLower(libraryFilePrefix() + stem + libraryFileExt())

	type candidate struct {
		path    string
		modTime int64
	}
	var found []candidate

	for _, dir := range r.Paths(kind) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(e.Name(), wantName) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			found = append(found, candidate{path: filepath.Join(dir, e.Name()), modTime: info.ModTime().UnixNano()})
		}
	}

	if len(found) == 0 {
		return "", radioerr.Newf(radioerr.FileNotFound, "Repository.Resolve", "no %s library found for class %q", kind, stem)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].modTime > found[j].modTime })
	return found[0].path, nil
}
