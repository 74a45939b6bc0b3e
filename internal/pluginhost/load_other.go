//go:build !linux

package pluginhost

import "github.com/radioflow/runtime/internal/radioerr"

// loadNative is unavailable outside linux — Go's plugin package only
// supports ELF shared objects. Platforms without it rely entirely on
// Registry-based pseudo plug-ins.
func loadNative(path string) (Library, error) {
	return nil, radioerr.Newf(radioerr.LibraryLoad, "loadNative", "native plug-in loading unsupported on this platform: %s", path)
}
