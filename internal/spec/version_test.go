package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "4.6", want: Version{4, 6}},
		{in: "1", want: Version{1, 0}},
		{in: " 3.2 ", want: Version{3, 2}},
		{in: "2.0.0", want: Version{2, 0}},
		{in: "4.6.1", wantErr: true},
		{in: "1.0-rc1", wantErr: true},
		{in: "", wantErr: true},
		{in: "one", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestVersionOrdering(t *testing.T) {
	t.Parallel()
	vs := []Version{{4, 6}, {1, 10}, {1, 2}, {3, 0}}
	SortVersions(vs)
	assert.Equal(t, []Version{{1, 2}, {1, 10}, {3, 0}, {4, 6}}, vs)
	assert.Equal(t, 0, Version{3, 3}.Compare(Version{3, 3}))
	assert.True(t, Version{3, 3}.LessEqual(Version{3, 3}))
	assert.True(t, Version{2, 9}.Less(Version{3, 0}))
	assert.Equal(t, "1.10", Version{1, 10}.String())
}

func TestParseAPIRequest(t *testing.T) {
	t.Parallel()
	req, err := ParseAPIRequest("GL=4.6, gles2 ,gles1=1.0,gl=3.3")
	require.NoError(t, err)
	require.Len(t, req, 3)
	assert.Equal(t, "gl=3.3", req[0].String())
	assert.Equal(t, "gles2", req[1].String())
	assert.Nil(t, req[1].Version)
	assert.Equal(t, "gles1=1.0", req[2].String())

	req, err = ParseAPIRequest("")
	require.NoError(t, err)
	assert.Empty(t, req)

	_, err = ParseAPIRequest("=4.6")
	assert.Error(t, err)
	_, err = ParseAPIRequest("gl=4.6.2")
	assert.Error(t, err)
}

func TestNameSet(t *testing.T) {
	t.Parallel()
	s := NewNameSet("b", "a", "b")
	s.Add("c")
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("z"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Sorted())
}

func TestURLAndAPIName(t *testing.T) {
	t.Parallel()
	u, ok := URL("EGL")
	require.True(t, ok)
	assert.Contains(t, u, "EGL-Registry")
	_, ok = URL("vk")
	assert.False(t, ok)
	assert.Equal(t, "OpenGL ES", APIName("gles2"))
	assert.Equal(t, "xyz", APIName("xyz"))
}
