//go:build linux

package pluginhost

import (
	"plugin"

	"github.com/radioflow/runtime/internal/radioerr"
)

// loadNative opens a real shared library via Go's plugin package, modelling
// the source system's dlopen/LoadLibrary (spec §6). The library must export
// a package-level variable named "Library" satisfying the Library
// interface; this is the closest Go analogue to exporting apiVersion/
// create/release as three C-linkage symbols.
func loadNative(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, radioerr.New(radioerr.LibraryLoad, "loadNative", err)
	}
	sym, err := p.Lookup("Library")
	if err != nil {
		return nil, radioerr.New(radioerr.LibrarySymbol, "loadNative", err)
	}
	lib, ok := sym.(Library)
	if !ok {
		ptr, ok2 := sym.(*Library)
		if ok2 {
			lib = *ptr
		} else {
			return nil, radioerr.Newf(radioerr.LibrarySymbol, "loadNative", "symbol Library in %s does not implement pluginhost.Library", path)
		}
	}
	return lib, nil
}
