// Package pluginhost implements the §6 plug-in ABI contract and the
// repository/search-path resolution the host uses to locate component and
// controller shared libraries (spec §4.7/§6). The spec treats shared-library
// discovery and loading as an external collaborator, contract only; this
// package is that contract plus an in-process Registry substitute so tests
// and scripted components never need a real .so on disk.
package pluginhost

import (
	"strings"
	"sync"

	"github.com/radioflow/runtime/internal/radioerr"
)

// HostAPIVersion is the fixed version string every plug-in's apiVersion()
// must equal exactly (spec §6).
const HostAPIVersion = "1.0"

// Kind names the four repository search-path categories (spec §4.10
// setRepository: kind ∈ {stack, phy, sdf, controller}).
type Kind int

const (
	KindPhy Kind = iota
	KindStack
	KindSDF
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindPhy:
		return "phy"
	case KindStack:
		return "stack"
	case KindSDF:
		return "sdf"
	case KindController:
		return "controller"
	default:
		return "unknown"
	}
}

// Library is the ABI a plug-in exposes: apiVersion/create/release with C
// linkage in the source system, a plain interface here (spec §6 "Plug-in
// ABI").
type Library interface {
	APIVersion() string
	Create(name string) (any, error)
	Release(v any)
}

// Factory builds a Library instance for an in-process pseudo plug-in.
type Factory func() (Library, error)

// Registry is the in-process substitute for a dlopen'd shared library: a
// factory registered under a stem (the lower-cased class name a component
// or controller names itself by in XML) is looked up exactly like a real
// library would be, without touching the filesystem.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates stem (matched case-insensitively) with a factory.
// Re-registering the same stem is an error, mirroring the teacher's
// "package factory already registered" guard.
func (r *Registry) Register(stem string, f Factory) error {
	stem = strings.ToLower(stem)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[stem]; exists {
		return radioerr.Newf(radioerr.LibraryLoad, "Registry.Register", "factory already registered: %s", stem)
	}
	r.factories[stem] = f
	return nil
}

func (r *Registry) lookup(stem string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[strings.ToLower(stem)]
	return f, ok
}

// Host resolves a class name to a Library, preferring an in-process
// Registry factory over a real shared library on disk.
type Host struct {
	registry *Registry
	repo     *Repository
}

// NewHost wires a Registry and Repository into a single load path.
func NewHost(repo *Repository, registry *Registry) *Host {
	return &Host{registry: registry, repo: repo}
}

// Load locates and opens the library backing class under kind, checking
// apiVersion before handing back the handle. On ApiVersionMismatch the
// handle is never returned to the caller (spec Scenario 6: "the library
// handle is dropped").
func (h *Host) Load(kind Kind, class string) (Library, error) {
	stem := strings.ToLower(class)

	var lib Library
	var err error
	if factory, ok := h.registry.lookup(stem); ok {
		lib, err = factory()
	} else {
		var path string
		path, err = h.repo.Resolve(kind, stem)
		if err == nil {
			lib, err = loadNative(path)
		}
	}
	if err != nil {
		return nil, err
	}

	if lib.APIVersion() != HostAPIVersion {
		return nil, radioerr.Newf(radioerr.ApiVersionMismatch, "Host.Load",
			"plug-in %q reports version %q, host requires %q", class, lib.APIVersion(), HostAPIVersion)
	}
	return lib, nil
}
