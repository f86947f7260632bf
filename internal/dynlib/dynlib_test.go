package dynlib

import (
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "libGL.so"},
		{"freebsd", "libGL.so"},
		{"darwin", "libGL.dylib"},
		{"windows", "GL.dll"},
	}
	for _, tt := range tests {
		got, err := LibraryName(tt.goos, "GL")
		require.NoError(t, err, tt.goos)
		assert.Equal(t, tt.want, got, tt.goos)
	}
}

func TestLibraryName_Unsupported(t *testing.T) {
	t.Parallel()
	// openbsd has no dynamic loader binding
	for _, goos := range []string{"plan9", "openbsd"} {
		_, err := LibraryName(goos, "GL")
		require.Error(t, err, goos)
		assert.True(t, errors.Is(err, ErrUnsupportedPlatform), goos)
		assert.Nil(t, systemGL(goos, "gl"), goos)
	}
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()
	_, err := OpenNamed(t.TempDir(), "definitely-not-a-library")
	require.Error(t, err)
}

func TestOpenNamed_UnsupportedPlatform(t *testing.T) {
	if _, err := LibraryName(runtime.GOOS, "x"); err == nil {
		t.Skip("running on a supported platform")
	}
	_, err := OpenNamed("", "x")
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestLibrary_CloseTwice(t *testing.T) {
	t.Parallel()
	l := &Library{path: "closed"}
	assert.NoError(t, l.Close())
	_, err := l.Lookup("glClear")
	assert.Error(t, err)
}

func TestSystemGL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"libGL.so.1", "libGL.so"}, systemGL("linux", "gl"))
	assert.Equal(t, []string{"libEGL.so.1", "libEGL.so"}, systemGL("linux", "egl"))
	assert.Equal(t, []string{"opengl32.dll"}, systemGL("windows", "wgl"))
	assert.Contains(t, systemGL("darwin", "gl"), "/System/Library/Frameworks/OpenGL.framework/OpenGL")
	assert.Nil(t, systemGL("plan9", "gl"))
}

func TestOpen_LookupLibc(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uses the glibc soname")
	}
	lib, err := Open("libc.so.6")
	if err != nil {
		t.Skipf("libc.so.6 not loadable here: %v", err)
	}
	defer lib.Close()

	assert.Equal(t, "libc.so.6", lib.Path())
	addr, err := lib.Lookup("strlen")
	require.NoError(t, err)
	assert.NotZero(t, addr)

	_, err = lib.Lookup("glad_symbol_that_does_not_exist")
	assert.Error(t, err)

	require.NoError(t, lib.Close())
	_, err = lib.Lookup("strlen")
	assert.Error(t, err, "lookup after close")
}
