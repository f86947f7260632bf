// Package dynlib opens native shared libraries by platform file name.
package dynlib

import (
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
)

// ErrUnsupportedPlatform is returned for operating systems without a known
// shared library naming scheme or dynamic loader.
var ErrUnsupportedPlatform = errors.New("dynlib: unsupported platform")

// LibraryName returns the shared library file name for base on goos:
// libfoo.so, libfoo.dylib or foo.dll.
func LibraryName(goos, base string) (string, error) {
	switch goos {
	case "linux", "freebsd", "netbsd":
		return "lib" + base + ".so", nil
	case "darwin":
		return "lib" + base + ".dylib", nil
	case "windows":
		return base + ".dll", nil
	}
	return "", errors.Wrapf(ErrUnsupportedPlatform, "no library name for %s on %s", base, goos)
}

// Library is an open shared library.
type Library struct {
	path   string
	handle uintptr
}

func (l *Library) Path() string { return l.path }

// Open loads the library at path. A bare file name is searched for the way
// the platform loader does.
func Open(path string) (*Library, error) {
	h, err := openLibrary(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dynlib: open %s", path)
	}
	return &Library{path: path, handle: h}, nil
}

// OpenNamed opens the library named base for the running platform, inside
// dir when dir is not empty.
func OpenNamed(dir, base string) (*Library, error) {
	name, err := LibraryName(runtime.GOOS, base)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		name = filepath.Join(dir, name)
	}
	return Open(name)
}

// Lookup returns the address of symbol.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	if l.handle == 0 {
		return 0, errors.Newf("dynlib: %s is closed", l.path)
	}
	addr, err := lookupSymbol(l.handle, symbol)
	if err != nil {
		return 0, errors.Wrapf(err, "dynlib: lookup %s in %s", symbol, l.path)
	}
	if addr == 0 {
		return 0, errors.Newf("dynlib: symbol %s not found in %s", symbol, l.path)
	}
	return addr, nil
}

// Close releases the library. Closing twice is a no-op.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	if err := closeLibrary(l.handle); err != nil {
		return errors.Wrapf(err, "dynlib: close %s", l.path)
	}
	l.handle = 0
	return nil
}

// SystemGL lists the library paths that usually provide a registry's entry
// points on the running platform, most specific first.
func SystemGL(specName string) []string {
	return systemGL(runtime.GOOS, specName)
}

func systemGL(goos, specName string) []string {
	switch goos {
	case "darwin":
		if specName == "egl" {
			return []string{"libEGL.dylib"}
		}
		return []string{
			"/System/Library/Frameworks/OpenGL.framework/OpenGL",
			"/System/Library/Frameworks/OpenGL.framework/Versions/Current/OpenGL",
		}
	case "windows":
		if specName == "egl" {
			return []string{"libEGL.dll"}
		}
		return []string{"opengl32.dll"}
	case "linux", "freebsd", "netbsd":
		if specName == "egl" {
			return []string{"libEGL.so.1", "libEGL.so"}
		}
		return []string{"libGL.so.1", "libGL.so"}
	}
	return nil
}
