package spec

// Registry model shared by the generator and the emitters.

// Specification is a parsed API registry (gl.xml, egl.xml, ...). It is
// treated as immutable once loaded.
type Specification struct {
	Name    string // registry name: gl, egl, glx, wgl
	Profile string // gl profile (core|compatibility); empty when the registry has none

	Types      []*Type
	Enums      map[string]*Enum
	Commands   map[string]*Command
	Features   map[string]map[Version]*Feature  // api -> version -> feature
	Extensions map[string]map[string]*Extension // api -> extension name -> extension
}

// Type is a C type declaration from the registry's <types> block.
type Type struct {
	Name     string
	API      string // empty when the type applies to every api
	Raw      string // C text, APIENTRY already expanded
	Requires string
}

type Enum struct {
	Name  string
	Value string
	API   string
}

type Param struct {
	Type string // full C type, e.g. "const GLchar *"
	Name string
}

type Command struct {
	Name   string
	Proto  string // return type
	Params []Param
}

// Feature is the set of enums and functions a version of an api introduces.
type Feature struct {
	API       string
	Name      string // e.g. GL_VERSION_3_3
	Version   Version
	Enums     []string
	Functions []string
}

// Extension has the same shape as Feature, keyed by name instead of version.
type Extension struct {
	API       string
	Name      string
	Enums     []string
	Functions []string
}

// Versions returns the versions defined for api in ascending order.
func (s *Specification) Versions(api string) []Version {
	features := s.Features[api]
	out := make([]Version, 0, len(features))
	for v := range features {
		out = append(out, v)
	}
	SortVersions(out)
	return out
}

// LatestVersion returns the highest version defined for api.
func (s *Specification) LatestVersion(api string) (Version, bool) {
	versions := s.Versions(api)
	if len(versions) == 0 {
		return Version{}, false
	}
	return versions[len(versions)-1], true
}

// ExtensionNames returns the extension names defined for api, sorted.
func (s *Specification) ExtensionNames(api string) []string {
	set := NameSet{}
	for name := range s.Extensions[api] {
		set.Add(name)
	}
	return set.Sorted()
}

// HasProfile reports whether the registry carries a profile attribute.
func (s *Specification) HasProfile() bool { return s.Profile != "" }
