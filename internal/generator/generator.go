// Package generator validates a loader request against a registry and drives
// a language backend through the emission steps in a fixed order.
package generator

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mark3labs/gladgen/internal/opener"
	"github.com/mark3labs/gladgen/internal/spec"
)

// Loader describes whether a runtime loader was requested.
type Loader interface {
	Disabled() bool
}

type loaderFlag bool

func (l loaderFlag) Disabled() bool { return bool(l) }

// NullLoader is the loader descriptor used when none is given; it requests
// no runtime loader.
var NullLoader Loader = loaderFlag(true)

// NewLoader returns a descriptor; disabled=false requests a runtime loader.
func NewLoader(disabled bool) Loader { return loaderFlag(disabled) }

// Backend is a language emitter. Open and Close bracket a single Generate
// call; each Generate* hook is called exactly once, in declaration order.
type Backend interface {
	// Name is the generator flag value, e.g. "c".
	Name() string
	// LongName is the human readable language name, e.g. "C/C++".
	LongName() string

	Open() error
	Close() error

	GenerateHeader(header string) error
	GenerateTypes(types []*spec.Type) error
	GenerateFeatures(features []*spec.Feature) error
	GenerateExtensions(extensions []*spec.Extension, enums, functions spec.NameSet) error
	GenerateLoader(features map[string][]*spec.Feature, extensions map[string][]*spec.Extension) error
}

// Config is everything a generation run depends on.
type Config struct {
	Path string
	Spec *spec.Specification
	APIs []spec.APIVersion
	// Extensions selects extensions by name; nil selects every extension
	// defined for the requested apis.
	Extensions      []string
	Loader          Loader
	Opener          opener.Opener
	LocalFiles      bool
	OmitKHRPlatform bool
	HeaderTemplate  string
	// Version is the generator version written into headers.
	Version string
	Now     func() time.Time
}

type Generator struct {
	backend Backend
	cfg     Config

	// resolved holds the request with "latest" versions substituted; it is
	// set by Generate and never aliases cfg.APIs.
	resolved   []spec.APIVersion
	extensions []string
}

// New validates that every requested api exists in the registry. A repeated
// api keeps its first position and takes the last version given for it.
func New(backend Backend, cfg Config) (*Generator, error) {
	if backend == nil {
		return nil, errors.New("generator: nil backend")
	}
	if cfg.Spec == nil {
		return nil, errors.New("generator: nil specification")
	}
	if cfg.Path != "" {
		abs, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, errors.Wrap(err, "resolve output path")
		}
		cfg.Path = abs
	}
	for _, a := range cfg.APIs {
		if _, ok := cfg.Spec.Features[a.API]; !ok {
			return nil, configErrorf(
				"known apis: "+strings.Join(knownAPIs(cfg.Spec), ", "),
				"unknown API %q for specification %q", a.API, cfg.Spec.Name)
		}
	}
	cfg.APIs = collapseAPIs(cfg.APIs)
	if cfg.Extensions != nil {
		cfg.Extensions = slices.Clone(cfg.Extensions)
	}
	if cfg.Loader == nil {
		cfg.Loader = NullLoader
	}
	if cfg.Opener == nil {
		cfg.Opener = opener.Default()
	}
	if cfg.HeaderTemplate == "" {
		cfg.HeaderTemplate = DefaultHeaderTemplate
	}
	if _, err := parseHeaderTemplate(cfg.HeaderTemplate); err != nil {
		return nil, errors.Wrap(err, "parse header template")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{backend: backend, cfg: cfg}, nil
}

func (g *Generator) Path() string              { return g.cfg.Path }
func (g *Generator) Spec() *spec.Specification { return g.cfg.Spec }
func (g *Generator) HasLoader() bool           { return !g.cfg.Loader.Disabled() }
func (g *Generator) Opener() opener.Opener     { return g.cfg.Opener }
func (g *Generator) Backend() Backend          { return g.backend }

// APIs returns the request with versions resolved where possible. Before
// Generate runs, unresolved entries are resolved on the fly.
func (g *Generator) APIs() []spec.APIVersion {
	if g.resolved != nil {
		return slices.Clone(g.resolved)
	}
	out := make([]spec.APIVersion, len(g.cfg.APIs))
	for i, a := range g.cfg.APIs {
		out[i] = a
		if a.Version == nil {
			if v, ok := g.cfg.Spec.LatestVersion(a.API); ok {
				out[i].Version = &v
			}
		}
	}
	return out
}

// ExtensionNames returns the selected extensions, defaulting to all of them.
func (g *Generator) ExtensionNames() []string {
	if g.extensions != nil {
		return slices.Clone(g.extensions)
	}
	if g.cfg.Extensions != nil {
		return slices.Clone(g.cfg.Extensions)
	}
	return g.availableExtensions().Sorted()
}

func (g *Generator) availableExtensions() spec.NameSet {
	all := spec.NameSet{}
	for _, a := range g.cfg.APIs {
		for name := range g.cfg.Spec.Extensions[a.API] {
			all.Add(name)
		}
	}
	return all
}

// collapseAPIs returns a copy of apis with one entry per api name.
func collapseAPIs(apis []spec.APIVersion) []spec.APIVersion {
	out := make([]spec.APIVersion, 0, len(apis))
	index := make(map[string]int, len(apis))
	for _, a := range apis {
		if i, ok := index[a.API]; ok {
			out[i] = a
			continue
		}
		index[a.API] = len(out)
		out = append(out, a)
	}
	return out
}

func knownAPIs(s *spec.Specification) []string {
	set := spec.NameSet{}
	for api := range s.Features {
		set.Add(api)
	}
	return set.Sorted()
}
