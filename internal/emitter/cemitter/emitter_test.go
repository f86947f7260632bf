package cemitter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/gladgen/internal/emitter"
	"github.com/mark3labs/gladgen/internal/generator"
	"github.com/mark3labs/gladgen/internal/spec"
	"github.com/mark3labs/gladgen/internal/spec/spectest"
)

// stubOpener writes a placeholder instead of downloading.
type stubOpener struct{ retrieved []string }

func (o *stubOpener) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (o *stubOpener) Retrieve(ctx context.Context, url, dst string) error {
	o.retrieved = append(o.retrieved, url)
	return os.WriteFile(dst, []byte("/* khrplatform */\n"), 0o644)
}

func run(t *testing.T, s *spec.Specification, apis string, opts emitter.Options, extensions []string) *Emitter {
	t.Helper()
	req, err := spec.ParseAPIRequest(apis)
	require.NoError(t, err)
	e := New(context.Background(), s, opts)
	g, err := generator.New(e, generator.Config{
		Path:            opts.OutDir,
		Spec:            s,
		APIs:            req,
		Extensions:      extensions,
		Loader:          opts.Loader,
		Opener:          opts.Opener,
		LocalFiles:      opts.LocalFiles,
		OmitKHRPlatform: opts.OmitKHRPlatform,
		Version:         "test",
		Now:             func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	require.NoError(t, g.Run())
	return e
}

func read(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestEmitter_WritesHeaderSourceAndKHRPlatform(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	op := &stubOpener{}
	run(t, spectest.GL(t, "compatibility"), "gl=3.2", emitter.Options{
		OutDir: dir,
		Force:  true,
		Loader: generator.NewLoader(false),
		Opener: op,
	}, nil)

	h := read(t, dir, "include/glad/glad.h")
	c := read(t, dir, "src/glad.c")
	read(t, dir, "include/KHR/khrplatform.h")
	assert.Equal(t, []string{spec.KHRPlatformURL}, op.retrieved)

	assert.Contains(t, h, "OpenGL loader generated by gladgen test on Fri Mar  1 12:00:00 2024.")
	assert.Contains(t, h, "#include <KHR/khrplatform.h>")
	assert.Contains(t, h, "#define GL_QUADS 0x0007")
	assert.Contains(t, h, "typedef void (APIENTRYP PFNGLBEGINPROC)(GLenum mode);")
	assert.Contains(t, h, "typedef const GLubyte * (APIENTRYP PFNGLGETSTRINGPROC)(GLenum name);")
	assert.Contains(t, h, "GLAPI int GLAD_GL_VERSION_3_2;")
	assert.Contains(t, h, "GLAPI int gladLoadGLLoader(GLADloadproc);")
	assert.Contains(t, h, "GLAPI int gladLoadGL(void);")
	assert.NotContains(t, h, "GLbyte", "gles2-only type leaked into gl header")
	assert.Equal(t, 1, strings.Count(h, "#define GL_TRIANGLES "))

	assert.Contains(t, c, "#include <glad/glad.h>")
	assert.Contains(t, c, "PFNGLCLEARPROC glad_glClear = NULL;")
	assert.Contains(t, c, "static void load_GL_VERSION_3_0(GLADloadproc load) {")
	assert.Contains(t, c, `glad_glGetStringi = (PFNGLGETSTRINGIPROC)load("glGetStringi");`)
	assert.Contains(t, c, `GLAD_GL_KHR_debug = has_ext("GL_KHR_debug");`)
	assert.Contains(t, c, "int gladLoadGL(void) {")
}

func TestEmitter_ExtensionsSkipCoreNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	run(t, spectest.GL(t, "compatibility"), "gl=3.2", emitter.Options{
		OutDir:          dir,
		OmitKHRPlatform: true,
	}, []string{"GL_ARB_ES2_compatibility"})

	h := read(t, dir, "include/glad/glad.h")
	assert.Equal(t, 1, strings.Count(h, "#define GL_FIXED "))
	assert.Equal(t, 1, strings.Count(h, "PFNGLGETINTEGERVPROC glad_glGetIntegerv;"))
	assert.Contains(t, h, "#ifndef GL_ARB_ES2_compatibility")
	assert.NotContains(t, h, "GL_KHR_debug")
}

func TestEmitter_CoreProfileDropsRemovedNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	run(t, spectest.GL(t, "core"), "gl", emitter.Options{OutDir: dir, OmitKHRPlatform: true}, []string{})

	h := read(t, dir, "include/glad/glad.h")
	assert.NotContains(t, h, "GL_QUADS")
	assert.NotContains(t, h, "glBegin")
	assert.Contains(t, h, "GLAD_GL_VERSION_3_2")
}

func TestEmitter_LocalFilesAndOmittedKHRPlatform(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := run(t, spectest.GL(t, "compatibility"), "gl=1.0", emitter.Options{
		OutDir:          dir,
		LocalFiles:      true,
		OmitKHRPlatform: true,
	}, []string{})

	var rels []string
	for _, p := range e.Planned() {
		rels = append(rels, p.RelPath)
	}
	assert.Equal(t, []string{"glad.c", "glad.h"}, rels)

	h := read(t, dir, "glad.h")
	assert.Contains(t, h, "typedef int32_t khronos_int32_t;")
	assert.NotContains(t, h, "khrplatform.h")
	assert.Contains(t, read(t, dir, "glad.c"), `#include "glad.h"`)
	assert.NotContains(t, h, "gladLoadGL(void)", "no loader requested")
}

func TestEmitter_EGLUsesSuffixedNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	run(t, spectest.EGL(t), "egl", emitter.Options{
		OutDir:          dir,
		Loader:          generator.NewLoader(false),
		OmitKHRPlatform: true,
	}, nil)

	h := read(t, dir, "include/glad/glad_egl.h")
	c := read(t, dir, "src/glad_egl.c")
	assert.Contains(t, h, "#ifndef __glad_egl_h_")
	assert.NotContains(t, h, "GLVersion")
	assert.Contains(t, h, "typedef EGLBoolean (APIENTRYP PFNEGLINITIALIZEPROC)(EGLDisplay dpy, EGLint * major, EGLint * minor);")
	assert.Contains(t, c, "GLAD_EGL_KHR_platform_x11 = 1;")
	assert.Contains(t, c, "int gladLoadEGL(void) {")
}

func TestEmitter_DryRunWritesNothing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e := run(t, spectest.GL(t, "compatibility"), "gl", emitter.Options{OutDir: dir, DryRun: true, Opener: &stubOpener{}}, nil)

	require.NotEmpty(t, e.Planned())
	assert.Equal(t, "include/KHR/khrplatform.h", e.Planned()[0].RelPath)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmitter_NonEmptyDirWithoutForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o600))

	s := spectest.GL(t, "compatibility")
	g, err := generator.New(New(context.Background(), s, emitter.Options{OutDir: dir, OmitKHRPlatform: true}), generator.Config{
		Spec: s,
		APIs: []spec.APIVersion{{API: "gl"}},
	})
	require.NoError(t, err)
	err = g.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
}

func TestEmitter_SharedExtensionLoadsEveryAPIsFunctions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	run(t, spectest.GL(t, "compatibility"), "gl=3.2,gles2", emitter.Options{
		OutDir:          dir,
		OmitKHRPlatform: true,
	}, []string{"GL_KHR_debug"})

	h := read(t, dir, "include/glad/glad.h")
	c := read(t, dir, "src/glad.c")
	assert.Equal(t, 1, strings.Count(h, "#ifndef GL_KHR_debug\n"))
	assert.Contains(t, h, "#define GL_DEBUG_OUTPUT_KHR 0x92E0")
	assert.Contains(t, h, "GLAPI PFNGLDEBUGMESSAGECALLBACKKHRPROC glad_glDebugMessageCallbackKHR;")
	assert.Equal(t, 1, strings.Count(c, "static void load_GL_KHR_debug(GLADloadproc load) {"))
	assert.Contains(t, c, `glad_glDebugMessageCallbackKHR = (PFNGLDEBUGMESSAGECALLBACKKHRPROC)load("glDebugMessageCallbackKHR");`)
	assert.Contains(t, c, "int gladLoadGLES2Loader(GLADloadproc load) {")
}
