package generator

import (
	"github.com/cockroachdb/errors"

	"github.com/mark3labs/gladgen/internal/spec"
)

// Run opens the backend, generates, and always closes the backend, also when
// validation or a hook fails.
func (g *Generator) Run() (err error) {
	if err := g.backend.Open(); err != nil {
		return errors.Wrapf(err, "open %s backend", g.backend.Name())
	}
	defer func() {
		if cerr := g.backend.Close(); cerr != nil {
			err = errors.CombineErrors(err, errors.Wrapf(cerr, "close %s backend", g.backend.Name()))
		}
	}()
	return g.Generate()
}

// Generate validates the request and calls the backend hooks: header, types,
// features, extensions, loader. Validation completes before the first hook.
func (g *Generator) Generate() error {
	s := g.cfg.Spec

	resolved := make([]spec.APIVersion, len(g.cfg.APIs))
	for i, a := range g.cfg.APIs {
		if a.Version == nil {
			latest, ok := s.LatestVersion(a.API)
			if !ok {
				return configErrorf("", "API %q has no versions in specification %q", a.API, s.Name)
			}
			a.Version = &latest
		} else {
			v := *a.Version
			a.Version = &v
		}
		if _, ok := s.Features[a.API][*a.Version]; !ok {
			return configErrorf(
				"available versions: "+joinVersions(s.Versions(a.API)),
				"unknown version %q of API %q for specification %q", a.Version.String(), a.API, s.Name)
		}
		resolved[i] = a
	}
	g.resolved = resolved

	available := g.availableExtensions()
	selected := g.cfg.Extensions
	if selected == nil {
		selected = available.Sorted()
	}
	for _, name := range selected {
		if !available.Has(name) {
			return configErrorf("", "invalid extension %q for specification %q", name, s.Name)
		}
	}
	g.extensions = append([]string{}, selected...)

	if err := g.backend.GenerateHeader(g.Header()); err != nil {
		return errors.Wrap(err, "generate header")
	}

	if err := g.backend.GenerateTypes(g.types()); err != nil {
		return errors.Wrap(err, "generate types")
	}

	var features []*spec.Feature
	for _, a := range resolved {
		features = append(features, includedFeatures(s, a)...)
	}
	enums, functions := Merge(features)
	if err := g.backend.GenerateFeatures(features); err != nil {
		return errors.Wrap(err, "generate features")
	}

	var extensions []*spec.Extension
	for _, a := range resolved {
		extensions = append(extensions, g.selectedExtensions(a.API)...)
	}
	if err := g.backend.GenerateExtensions(extensions, enums, functions); err != nil {
		return errors.Wrap(err, "generate extensions")
	}

	fs := map[string][]*spec.Feature{}
	es := map[string][]*spec.Extension{}
	for _, a := range resolved {
		fs[a.API] = append(fs[a.API], includedFeatures(s, a)...)
		es[a.API] = append(es[a.API], g.selectedExtensions(a.API)...)
	}
	if err := g.backend.GenerateLoader(fs, es); err != nil {
		return errors.Wrap(err, "generate loader")
	}
	return nil
}

func (g *Generator) types() []*spec.Type {
	requested := spec.NameSet{}
	for _, a := range g.cfg.APIs {
		requested.Add(a.API)
	}
	var out []*spec.Type
	for _, t := range g.cfg.Spec.Types {
		if t.API == "" || requested.Has(t.API) {
			out = append(out, t)
		}
	}
	return out
}

// includedFeatures returns the features of a.API up to and including
// a.Version, ascending.
func includedFeatures(s *spec.Specification, a spec.APIVersion) []*spec.Feature {
	var out []*spec.Feature
	for _, v := range s.Versions(a.API) {
		if v.LessEqual(*a.Version) {
			out = append(out, s.Features[a.API][v])
		}
	}
	return out
}

// selectedExtensions keeps selection order and skips names the api does not
// define.
func (g *Generator) selectedExtensions(api string) []*spec.Extension {
	defined := g.cfg.Spec.Extensions[api]
	var out []*spec.Extension
	for _, name := range g.extensions {
		if ext, ok := defined[name]; ok {
			out = append(out, ext)
		}
	}
	return out
}

// Merge returns the union of enum names and function names of features.
func Merge(features []*spec.Feature) (enums, functions spec.NameSet) {
	enums, functions = spec.NameSet{}, spec.NameSet{}
	for _, f := range features {
		enums.Add(f.Enums...)
		functions.Add(f.Functions...)
	}
	return enums, functions
}

func joinVersions(vs []spec.Version) string {
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += ", "
		}
		out += v.String()
	}
	return out
}
