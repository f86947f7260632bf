package spec

import (
	"fmt"
	"strings"
)

// Registry names understood by the loader.
const (
	GL  = "gl"
	EGL = "egl"
	GLX = "glx"
	WGL = "wgl"
)

const khronosRegistry = "https://raw.githubusercontent.com/KhronosGroup/OpenGL-Registry/main/xml/"

// KHRPlatformURL is where khrplatform.h is downloaded from.
const KHRPlatformURL = "https://raw.githubusercontent.com/KhronosGroup/EGL-Registry/main/api/KHR/khrplatform.h"

var registryURLs = map[string]string{
	GL:  khronosRegistry + "gl.xml",
	GLX: khronosRegistry + "glx.xml",
	WGL: khronosRegistry + "wgl.xml",
	EGL: "https://raw.githubusercontent.com/KhronosGroup/EGL-Registry/main/api/egl.xml",
}

// URL returns the upstream registry location for a registry name.
func URL(name string) (string, bool) {
	u, ok := registryURLs[strings.ToLower(name)]
	return u, ok
}

// Names lists the known registry names.
func Names() []string { return []string{GL, EGL, GLX, WGL} }

var apiNames = map[string]string{
	"gl":    "OpenGL",
	"gles1": "OpenGL ES",
	"gles2": "OpenGL ES",
	"glsc2": "OpenGL SC",
	"egl":   "EGL",
	"glx":   "GLX",
	"wgl":   "WGL",
}

// APIName returns the human readable name of an api.
func APIName(api string) string {
	if n, ok := apiNames[api]; ok {
		return n
	}
	return api
}

// APIVersion is one requested api. A nil Version means the latest version
// the registry defines.
type APIVersion struct {
	API     string
	Version *Version
}

func (a APIVersion) String() string {
	if a.Version == nil {
		return a.API
	}
	return a.API + "=" + a.Version.String()
}

// ParseAPIRequest parses "gl=4.6,gles2=3.2,gles1" into an ordered request.
// Duplicate apis keep their first position and last version.
func ParseAPIRequest(s string) ([]APIVersion, error) {
	var out []APIVersion
	index := map[string]int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, ver, _ := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("invalid api %q", part)
		}
		entry := APIVersion{API: name}
		if ver = strings.TrimSpace(ver); ver != "" {
			v, err := ParseVersion(ver)
			if err != nil {
				return nil, fmt.Errorf("api %q: %w", name, err)
			}
			entry.Version = &v
		}
		if i, ok := index[name]; ok {
			out[i] = entry
			continue
		}
		index[name] = len(out)
		out = append(out, entry)
	}
	return out, nil
}
