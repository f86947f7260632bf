package spec

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestRegistry(t *testing.T, profile string) *Specification {
	t.Helper()
	f, err := os.Open(testRegistry)
	require.NoError(t, err)
	defer f.Close()
	s, err := Parse(f, GL, profile)
	require.NoError(t, err)
	return s
}

func TestParse_Commands(t *testing.T) {
	t.Parallel()
	s := parseTestRegistry(t, "")

	want := &Command{
		Name:  "glGetStringi",
		Proto: "const GLubyte *",
		Params: []Param{
			{Type: "GLenum", Name: "name"},
			{Type: "GLuint", Name: "index"},
		},
	}
	if diff := cmp.Diff(want, s.Commands["glGetStringi"]); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "const void *", s.Commands["glDebugMessageCallback"].Params[1].Type)
	assert.Equal(t, "void", s.Commands["glClear"].Proto)
}

func TestParse_TypesExpandApientry(t *testing.T) {
	t.Parallel()
	s := parseTestRegistry(t, "")

	byName := map[string]*Type{}
	for _, typ := range s.Types {
		byName[typ.Name] = typ
	}
	require.Contains(t, byName, "GLDEBUGPROC")
	assert.Equal(t, "typedef void (APIENTRY *GLDEBUGPROC)(GLenum source,GLenum type,GLuint id,const GLchar *message,const void *userParam);", byName["GLDEBUGPROC"].Raw)
	assert.Equal(t, "#include <KHR/khrplatform.h>", byName["khrplatform"].Raw)
	assert.Equal(t, "khrplatform", byName["GLubyte"].Requires)
	assert.Equal(t, "gles2", byName["GLbyte"].API)
	assert.Equal(t, "khrplatform", s.Types[0].Name, "document order kept")
}

func TestParse_Enums(t *testing.T) {
	t.Parallel()
	s := parseTestRegistry(t, "")
	assert.Equal(t, "0x00000100", s.Enums["GL_DEPTH_BUFFER_BIT"].Value)
	assert.Equal(t, "gles2", s.Enums["GL_DEBUG_OUTPUT_KHR"].API)
}

func TestParse_Features(t *testing.T) {
	t.Parallel()
	s := parseTestRegistry(t, "compatibility")

	assert.Equal(t, []Version{{1, 0}, {1, 1}, {3, 0}, {3, 2}}, s.Versions("gl"))
	latest, ok := s.LatestVersion("gles2")
	require.True(t, ok)
	assert.Equal(t, Version{2, 0}, latest)
	_, ok = s.LatestVersion("gles1")
	assert.False(t, ok)

	gl10 := s.Features["gl"][Version{1, 0}]
	assert.Equal(t, "GL_VERSION_1_0", gl10.Name)
	assert.Equal(t, []string{"glBegin", "glClear", "glGetIntegerv", "glGetString"}, gl10.Functions)
	assert.Contains(t, gl10.Enums, "GL_QUADS")
}

func TestParse_CoreProfileRemovals(t *testing.T) {
	t.Parallel()
	s := parseTestRegistry(t, "core")

	// removals apply to every feature of the api, also earlier ones
	gl10 := s.Features["gl"][Version{1, 0}]
	assert.Equal(t, []string{"glClear", "glGetIntegerv", "glGetString"}, gl10.Functions)
	assert.NotContains(t, gl10.Enums, "GL_QUADS")

	// other apis are untouched
	assert.Contains(t, s.Features["gles2"][Version{2, 0}].Functions, "glClear")
}

func TestParse_Extensions(t *testing.T) {
	t.Parallel()
	s := parseTestRegistry(t, "core")

	assert.Equal(t, []string{"GL_ARB_ES2_compatibility", "GL_KHR_debug"}, s.ExtensionNames("gl"))
	assert.Equal(t, []string{"GL_KHR_debug"}, s.ExtensionNames("gles2"))
	assert.NotContains(t, s.Extensions, "glcore")
	assert.NotContains(t, s.ExtensionNames("gl"), "GL_NV_unreleased")

	gl := s.Extensions["gl"]["GL_KHR_debug"]
	assert.Equal(t, []string{"GL_DEBUG_OUTPUT"}, gl.Enums)
	assert.Equal(t, []string{"glDebugMessageCallback"}, gl.Functions)
	es := s.Extensions["gles2"]["GL_KHR_debug"]
	assert.Equal(t, []string{"GL_DEBUG_OUTPUT_KHR"}, es.Enums)
	assert.Equal(t, []string{"glDebugMessageCallbackKHR"}, es.Functions)
}

func TestSupportedAPIs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"gl", "gles2"}, supportedAPIs("gl|glcore|gles2"))
	assert.Empty(t, supportedAPIs("disabled"))
	assert.Equal(t, []string{"egl"}, supportedAPIs(" egl "))
}
