package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/gladgen/internal/spec"
	"github.com/mark3labs/gladgen/internal/spec/spectest"
)

// recorder is a Backend that remembers the hook calls and their arguments.
type recorder struct {
	calls      []string
	header     string
	types      []string
	features   []string
	extensions []string
	enums      spec.NameSet
	functions  spec.NameSet
	loader     map[string][]string
	closed     bool
	failOn     string
}

func (r *recorder) Name() string     { return "rec" }
func (r *recorder) LongName() string { return "Recorder" }

func (r *recorder) Open() error {
	r.calls = append(r.calls, "open")
	return nil
}

func (r *recorder) Close() error {
	r.calls = append(r.calls, "close")
	r.closed = true
	return nil
}

func (r *recorder) step(name string) error {
	r.calls = append(r.calls, name)
	if r.failOn == name {
		return errors.Newf("%s failed", name)
	}
	return nil
}

func (r *recorder) GenerateHeader(header string) error {
	r.header = header
	return r.step("header")
}

func (r *recorder) GenerateTypes(types []*spec.Type) error {
	for _, t := range types {
		r.types = append(r.types, t.Name)
	}
	return r.step("types")
}

func (r *recorder) GenerateFeatures(features []*spec.Feature) error {
	for _, f := range features {
		r.features = append(r.features, f.Name)
	}
	return r.step("features")
}

func (r *recorder) GenerateExtensions(extensions []*spec.Extension, enums, functions spec.NameSet) error {
	for _, x := range extensions {
		r.extensions = append(r.extensions, x.API+":"+x.Name)
	}
	r.enums, r.functions = enums, functions
	return r.step("extensions")
}

func (r *recorder) GenerateLoader(features map[string][]*spec.Feature, _ map[string][]*spec.Extension) error {
	r.loader = map[string][]string{}
	for api, fs := range features {
		for _, f := range fs {
			r.loader[api] = append(r.loader[api], f.Name)
		}
	}
	return r.step("loader")
}

func fixedNow() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func newGenerator(t *testing.T, r *recorder, cfg Config) *Generator {
	t.Helper()
	if cfg.Spec == nil {
		cfg.Spec = spectest.GL(t, "compatibility")
	}
	cfg.Now = fixedNow
	g, err := New(r, cfg)
	require.NoError(t, err)
	return g
}

func mustAPIs(t *testing.T, s string) []spec.APIVersion {
	t.Helper()
	req, err := spec.ParseAPIRequest(s)
	require.NoError(t, err)
	return req
}

func TestGenerate_HookOrder(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl=3.0")})
	require.NoError(t, g.Run())

	want := []string{"open", "header", "types", "features", "extensions", "loader", "close"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"GL_VERSION_1_0", "GL_VERSION_1_1", "GL_VERSION_3_0"}, r.features)
	assert.Equal(t, map[string][]string{"gl": {"GL_VERSION_1_0", "GL_VERSION_1_1", "GL_VERSION_3_0"}}, r.loader)
}

func TestGenerate_ResolvesLatestWithoutMutatingRequest(t *testing.T) {
	t.Parallel()
	req := mustAPIs(t, "gl,gles2")
	r := &recorder{}
	g := newGenerator(t, r, Config{APIs: req})

	before := g.APIs()
	require.NoError(t, g.Run())

	assert.Nil(t, req[0].Version, "caller request mutated")
	assert.Nil(t, req[1].Version, "caller request mutated")
	got := make([]string, 0, 2)
	for _, a := range g.APIs() {
		got = append(got, a.String())
	}
	assert.Equal(t, []string{"gl=3.2", "gles2=2.0"}, got)
	assert.Equal(t, before, g.APIs())
	assert.Contains(t, r.features, "GL_ES_VERSION_2_0")
}

func TestNew_RepeatedAPIKeepsFirstPositionAndLastVersion(t *testing.T) {
	t.Parallel()
	v10, v30 := spec.MustParseVersion("1.0"), spec.MustParseVersion("3.0")
	req := []spec.APIVersion{{API: "gl", Version: &v10}, {API: "gles2"}, {API: "gl", Version: &v30}}
	r := &recorder{}
	g := newGenerator(t, r, Config{APIs: req})
	require.NoError(t, g.Run())

	got := make([]string, 0, 2)
	for _, a := range g.APIs() {
		got = append(got, a.String())
	}
	assert.Equal(t, []string{"gl=3.0", "gles2=2.0"}, got)
	assert.Len(t, req, 3, "caller request modified")

	seen := map[string]int{}
	for _, f := range r.features {
		seen[f]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, "feature %s passed more than once", name)
	}
	assert.Equal(t, []string{"GL_VERSION_1_0", "GL_VERSION_1_1", "GL_VERSION_3_0"}, r.loader["gl"])
	assert.Contains(t, g.CommandLine(), `--api="gl=3.0,gles2=2.0"`)
}

func TestNew_UnknownAPI(t *testing.T) {
	t.Parallel()
	_, err := New(&recorder{}, Config{Spec: spectest.GL(t, ""), APIs: mustAPIs(t, "gles1")})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), `unknown API "gles1" for specification "gl"`)
	assert.Equal(t, "known apis: gl, gles2", errors.FlattenHints(err))
}

func TestGenerate_UnknownVersionRunsNoHook(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl=4.6")})
	err := g.Run()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), `unknown version "4.6" of API "gl"`)
	assert.Equal(t, "available versions: 1.0, 1.1, 3.0, 3.2", errors.FlattenHints(err))
	assert.Equal(t, []string{"open", "close"}, r.calls)
}

func TestGenerate_InvalidExtensionRunsNoHook(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"GL_NV_unreleased", "GL_EXT_nonexistent"} {
		r := &recorder{}
		g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl"), Extensions: []string{"GL_KHR_debug", name}})
		err := g.Run()
		require.Error(t, err, name)
		assert.True(t, IsConfigurationError(err), name)
		assert.Contains(t, err.Error(), `invalid extension "`+name+`"`)
		assert.Equal(t, []string{"open", "close"}, r.calls, name)
	}
}

func TestGenerate_ExtensionSelection(t *testing.T) {
	t.Parallel()

	t.Run("nil selects all", func(t *testing.T) {
		r := &recorder{}
		g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl=3.2,gles2")})
		require.NoError(t, g.Run())
		assert.Equal(t, []string{"GL_ARB_ES2_compatibility", "GL_KHR_debug"}, g.ExtensionNames())
		assert.Equal(t, []string{
			"gl:GL_ARB_ES2_compatibility",
			"gl:GL_KHR_debug",
			"gles2:GL_KHR_debug",
		}, r.extensions)
	})

	t.Run("empty selects none", func(t *testing.T) {
		r := &recorder{}
		g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl"), Extensions: []string{}})
		require.NoError(t, g.Run())
		assert.Empty(t, g.ExtensionNames())
		assert.Empty(t, r.extensions)
	})

	t.Run("selection order kept", func(t *testing.T) {
		sel := []string{"GL_KHR_debug", "GL_ARB_ES2_compatibility"}
		r := &recorder{}
		g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl"), Extensions: sel})
		require.NoError(t, g.Run())
		assert.Equal(t, []string{"gl:GL_KHR_debug", "gl:GL_ARB_ES2_compatibility"}, r.extensions)
		sel[0] = "changed"
		assert.Equal(t, "GL_KHR_debug", g.ExtensionNames()[0], "selection aliases the caller slice")
	})
}

func TestGenerate_MergedCoreNames(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl=1.1")})
	require.NoError(t, g.Run())

	assert.Equal(t, []string{
		"GL_DEPTH_BUFFER_BIT", "GL_EXTENSIONS", "GL_QUADS", "GL_TRIANGLES", "GL_VERSION",
	}, r.enums.Sorted())
	assert.Equal(t, []string{"glBegin", "glClear", "glGetIntegerv", "glGetString"}, r.functions.Sorted())
}

func TestMerge(t *testing.T) {
	t.Parallel()
	enums, functions := Merge([]*spec.Feature{
		{Enums: []string{"A", "B"}, Functions: []string{"f"}},
		{Enums: []string{"B", "C"}, Functions: []string{"f", "g"}},
	})
	assert.Equal(t, []string{"A", "B", "C"}, enums.Sorted())
	assert.Equal(t, []string{"f", "g"}, functions.Sorted())

	enums, functions = Merge(nil)
	assert.Zero(t, enums.Len())
	assert.Zero(t, functions.Len())
}

func TestGenerate_TypesFilteredByAPI(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl")})
	require.NoError(t, g.Run())
	assert.NotContains(t, r.types, "GLbyte")

	r = &recorder{}
	g = newGenerator(t, r, Config{APIs: mustAPIs(t, "gles2")})
	require.NoError(t, g.Run())
	assert.Contains(t, r.types, "GLbyte")
}

func TestRun_ClosesOnHookFailure(t *testing.T) {
	t.Parallel()
	r := &recorder{failOn: "features"}
	g := newGenerator(t, r, Config{APIs: mustAPIs(t, "gl")})
	err := g.Run()
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "generate features: features failed")
	assert.True(t, r.closed)
	assert.Equal(t, []string{"open", "header", "types", "features", "close"}, r.calls)
}

func TestHeader(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	g := newGenerator(t, r, Config{
		APIs:       mustAPIs(t, "gl=3.0,gles2"),
		Extensions: []string{"GL_KHR_debug"},
		Loader:     NewLoader(false),
		Version:    "1.2.3",
	})
	require.NoError(t, g.Run())

	h := r.header
	assert.Contains(t, h, "OpenGL, OpenGL ES loader generated by gladgen 1.2.3 on Fri Mar  1 12:00:00 2024.")
	assert.Contains(t, h, "Language/Generator: Recorder")
	assert.Contains(t, h, "Specification: gl")
	assert.Contains(t, h, "APIs: gl=3.0, gles2=2.0")
	assert.Contains(t, h, "Profile: compatibility")
	assert.Contains(t, h, "Loader: True")
	assert.Contains(t, h, "Local files: False")
	assert.Contains(t, h, `--profile="compatibility" --api="gl=3.0,gles2=2.0" --generator="rec" --spec="gl" --extensions="GL_KHR_debug"`)
	assert.Contains(t, h, "http://glad.dav1d.de/#profile=compatibility&language=rec&specification=gl&loader=on&api=gl%3D3.0&api=gles2%3D2.0&extensions=GL_KHR_debug")
}

func TestCommandLine_Flags(t *testing.T) {
	t.Parallel()
	g := newGenerator(t, &recorder{}, Config{
		Spec:            spectest.EGL(t),
		APIs:            mustAPIs(t, "egl=1.5"),
		Extensions:      []string{},
		LocalFiles:      true,
		OmitKHRPlatform: true,
	})
	assert.Equal(t,
		`--api="egl=1.5" --generator="rec" --spec="egl" --no-loader --local-files --omit-khrplatform --extensions=""`,
		g.CommandLine())
}

func TestHeader_OnlineLinkCapped(t *testing.T) {
	t.Parallel()
	s := spectest.GL(t, "")
	many := map[string]*spec.Extension{}
	var names []string
	for i := 0; i < 200; i++ {
		name := "GL_EXT_generated_extension_" + strings.Repeat("x", 3) + string(rune('a'+i%26)) + strings.Repeat("y", i/26)
		many[name] = &spec.Extension{API: "gl", Name: name}
		names = append(names, name)
	}
	s.Extensions = map[string]map[string]*spec.Extension{"gl": many}

	r := &recorder{}
	g := newGenerator(t, r, Config{Spec: s, APIs: mustAPIs(t, "gl"), Extensions: names})
	require.Greater(t, len(g.Online()), 2000)
	require.NoError(t, g.Run())
	assert.Contains(t, r.header, "Online:\n        Too many extensions\n")
}

func TestNew_RejectsBadTemplate(t *testing.T) {
	t.Parallel()
	_, err := New(&recorder{}, Config{Spec: spectest.GL(t, ""), HeaderTemplate: "{{.broken"})
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
}
