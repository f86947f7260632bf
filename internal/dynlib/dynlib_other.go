//go:build !(darwin || freebsd || linux || netbsd || windows)

package dynlib

func openLibrary(path string) (uintptr, error) { return 0, ErrUnsupportedPlatform }

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return 0, ErrUnsupportedPlatform
}

func closeLibrary(handle uintptr) error { return ErrUnsupportedPlatform }
