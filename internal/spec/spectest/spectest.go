// Package spectest provides small registries for tests.
package spectest

import (
	"bytes"
	_ "embed"
	"testing"

	"github.com/mark3labs/gladgen/internal/spec"
)

var (
	//go:embed testdata/gl.xml
	GLXML []byte
	//go:embed testdata/egl.xml
	EGLXML []byte
)

// GL parses the trimmed gl registry with the given profile.
func GL(t testing.TB, profile string) *spec.Specification {
	t.Helper()
	s, err := spec.Parse(bytes.NewReader(GLXML), spec.GL, profile)
	if err != nil {
		t.Fatalf("parse gl registry: %v", err)
	}
	return s
}

// EGL parses the trimmed egl registry.
func EGL(t testing.TB) *spec.Specification {
	t.Helper()
	s, err := spec.Parse(bytes.NewReader(EGLXML), spec.EGL, "")
	if err != nil {
		t.Fatalf("parse egl registry: %v", err)
	}
	return s
}
