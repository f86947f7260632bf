// Package cemitter writes a C/C++ loader: one header, one source file and,
// unless omitted, khrplatform.h.
package cemitter

import (
	"context"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/mark3labs/gladgen/internal/emitter"
	"github.com/mark3labs/gladgen/internal/spec"
)

const (
	Name     = "c"
	LongName = "C/C++"
)

// Emitter implements generator.Backend for C.
type Emitter struct {
	emitter.Base

	spec *spec.Specification

	enums      spec.NameSet // #defines already written
	functions  spec.NameSet // PFN typedefs already written
	extensions spec.NameSet // extension guards already written
}

func New(ctx context.Context, s *spec.Specification, opts emitter.Options) *Emitter {
	return &Emitter{Base: emitter.NewBase(ctx, Name, opts), spec: s}
}

func (e *Emitter) Name() string     { return Name }
func (e *Emitter) LongName() string { return LongName }

func (e *Emitter) Open() error {
	if e.spec == nil {
		return fmt.Errorf("cemitter: nil specification")
	}
	e.enums, e.functions, e.extensions = spec.NameSet{}, spec.NameSet{}, spec.NameSet{}
	return e.Base.Open()
}

// suffix is "" for gl and "_<spec>" otherwise: glad.h, glad_egl.h.
func (e *Emitter) suffix() string {
	if e.spec.Name == spec.GL {
		return ""
	}
	return "_" + e.spec.Name
}

func (e *Emitter) headerPath() string {
	name := "glad" + e.suffix() + ".h"
	if e.Opts.LocalFiles {
		return name
	}
	return path.Join("include", "glad", name)
}

func (e *Emitter) sourcePath() string {
	name := "glad" + e.suffix() + ".c"
	if e.Opts.LocalFiles {
		return name
	}
	return path.Join("src", name)
}

func (e *Emitter) khrPlatformPath() string {
	if e.Opts.LocalFiles {
		return "khrplatform.h"
	}
	return path.Join("include", "KHR", "khrplatform.h")
}

func (e *Emitter) GenerateHeader(header string) error {
	h := e.Out.File(e.headerPath())
	c := e.Out.File(e.sourcePath())

	comment := "/*\n" + header + "*/\n\n"
	h.WriteString(comment)
	c.WriteString(comment)

	data := map[string]any{
		"Suffix": e.suffix(),
		"IsGL":   e.spec.Name == spec.GL,
	}
	if err := render(h, "prologue", headerPrologue, data); err != nil {
		return err
	}

	include := "<glad/glad" + e.suffix() + ".h>"
	if e.Opts.LocalFiles {
		include = `"glad` + e.suffix() + `.h"`
	}
	if err := render(c, "source", sourcePrologue, map[string]any{"Include": include}); err != nil {
		return err
	}
	if e.spec.Name == spec.GL {
		c.WriteString("\nstruct gladGLversionStruct GLVersion = { 0, 0 };\n")
	}
	return nil
}

// usesKHRPlatform reports whether the registry's types include khrplatform.h.
func (e *Emitter) usesKHRPlatform() bool {
	return e.spec.Name == spec.GL || e.spec.Name == spec.EGL
}

func (e *Emitter) GenerateTypes(types []*spec.Type) error {
	h := e.Out.File(e.headerPath())
	h.WriteString("\n")
	if e.usesKHRPlatform() {
		switch {
		case e.Opts.OmitKHRPlatform:
			h.WriteString(omittedKHRPlatform)
		case e.Opts.LocalFiles:
			h.WriteString("#include \"khrplatform.h\"\n")
			e.Out.Fetch(e.khrPlatformPath(), spec.KHRPlatformURL)
		default:
			h.WriteString("#include <KHR/khrplatform.h>\n")
			e.Out.Fetch(e.khrPlatformPath(), spec.KHRPlatformURL)
		}
	}
	for _, t := range types {
		if t.Raw == "" || t.Name == "khrplatform" || strings.HasPrefix(t.Raw, "#include") {
			continue
		}
		h.WriteString(t.Raw)
		h.WriteString("\n")
	}
	return nil
}

func (e *Emitter) GenerateFeatures(features []*spec.Feature) error {
	h := e.Out.File(e.headerPath())
	c := e.Out.File(e.sourcePath())

	h.WriteString("\n")
	for _, f := range features {
		e.writeEnums(f.Enums, nil)
	}
	for _, f := range features {
		fmt.Fprintf(h, "#ifndef %s\n#define %s 1\n", f.Name, f.Name)
		fmt.Fprintf(h, "GLAPI int GLAD_%s;\n", f.Name)
		fmt.Fprintf(c, "int GLAD_%s = 0;\n", f.Name)
		e.writeFunctions(f.Functions, nil)
		h.WriteString("#endif\n")
	}
	return nil
}

// GenerateExtensions only declares what the core features did not already.
func (e *Emitter) GenerateExtensions(extensions []*spec.Extension, enums, functions spec.NameSet) error {
	h := e.Out.File(e.headerPath())
	c := e.Out.File(e.sourcePath())

	merged := mergeExtensions(extensions)
	for _, x := range merged {
		e.writeEnums(x.Enums, enums)
	}
	for _, x := range merged {
		if e.extensions.Has(x.Name) {
			continue
		}
		e.extensions.Add(x.Name)
		fmt.Fprintf(h, "#ifndef %s\n#define %s 1\n", x.Name, x.Name)
		fmt.Fprintf(h, "GLAPI int GLAD_%s;\n", x.Name)
		fmt.Fprintf(c, "int GLAD_%s = 0;\n", x.Name)
		e.writeFunctions(x.Functions, functions)
		h.WriteString("#endif\n")
	}
	return nil
}

func (e *Emitter) GenerateLoader(features map[string][]*spec.Feature, extensions map[string][]*spec.Extension) error {
	h := e.Out.File(e.headerPath())
	c := e.Out.File(e.sourcePath())

	apis := sortedKeys(features)
	glFamily := false
	for _, api := range apis {
		if isGLFamily(api) {
			glFamily = true
		}
	}
	if glFamily {
		c.WriteString(glExtensionHelpers)
	}

	var all []*spec.Extension
	for _, api := range apis {
		for _, f := range features[api] {
			e.writeLoadFunction(f.Name, f.Functions)
		}
		all = append(all, extensions[api]...)
	}
	for _, x := range mergeExtensions(all) {
		e.writeLoadFunction(x.Name, x.Functions)
	}

	h.WriteString("\n")
	for _, api := range apis {
		upper := strings.ToUpper(api)
		fmt.Fprintf(h, "GLAPI int gladLoad%sLoader(GLADloadproc);\n", upper)
		if err := e.writeLoaderEntry(api, features[api], extensions[api]); err != nil {
			return err
		}
	}

	if e.Opts.HasLoader() {
		switch {
		case e.spec.Name == spec.GL && features[spec.GL] != nil:
			h.WriteString("GLAPI int gladLoadGL(void);\n")
			c.WriteString(glLibraryLoader)
		case simpleLoaders[e.spec.Name] != "":
			fmt.Fprintf(h, "GLAPI int gladLoad%s(void);\n", strings.ToUpper(e.spec.Name))
			c.WriteString(simpleLoaders[e.spec.Name])
		}
	}

	h.WriteString(headerEpilogue)
	e.Finish()
	return nil
}

func (e *Emitter) writeEnums(names []string, skip spec.NameSet) {
	h := e.Out.File(e.headerPath())
	for _, name := range names {
		if e.enums.Has(name) || skip.Has(name) {
			continue
		}
		enum, ok := e.spec.Enums[name]
		if !ok {
			continue
		}
		e.enums.Add(name)
		fmt.Fprintf(h, "#define %s %s\n", name, enum.Value)
	}
}

func (e *Emitter) writeFunctions(names []string, skip spec.NameSet) {
	h := e.Out.File(e.headerPath())
	c := e.Out.File(e.sourcePath())
	for _, name := range names {
		if e.functions.Has(name) || skip.Has(name) {
			continue
		}
		cmd, ok := e.spec.Commands[name]
		if !ok {
			continue
		}
		e.functions.Add(name)
		pfn := pfnName(name)
		fmt.Fprintf(h, "typedef %s (APIENTRYP %s)(%s);\n", cmd.Proto, pfn, paramList(cmd.Params))
		fmt.Fprintf(h, "GLAPI %s glad_%s;\n", pfn, name)
		fmt.Fprintf(h, "#define %s glad_%s\n", name, name)
		fmt.Fprintf(c, "%s glad_%s = NULL;\n", pfn, name)
	}
}

func (e *Emitter) writeLoadFunction(name string, functions []string) {
	c := e.Out.File(e.sourcePath())
	fmt.Fprintf(c, "static void load_%s(GLADloadproc load) {\n", name)
	fmt.Fprintf(c, "\tif(!GLAD_%s) return;\n", name)
	for _, fn := range functions {
		if _, ok := e.spec.Commands[fn]; !ok {
			continue
		}
		fmt.Fprintf(c, "\tglad_%s = (%s)load(\"%s\");\n", fn, pfnName(fn), fn)
	}
	c.WriteString("}\n")
}

func (e *Emitter) writeLoaderEntry(api string, features []*spec.Feature, extensions []*spec.Extension) error {
	c := e.Out.File(e.sourcePath())
	upper := strings.ToUpper(api)

	if isGLFamily(api) {
		if err := render(c, "findcore", glFindCore, map[string]any{"API": upper, "Features": features}); err != nil {
			return err
		}
		fmt.Fprintf(c, "\nstatic int find_extensions%s(void) {\n\tif (!get_exts()) return 0;\n", upper)
		for _, x := range extensions {
			fmt.Fprintf(c, "\tGLAD_%s = has_ext(\"%s\");\n", x.Name, x.Name)
		}
		c.WriteString("\tfree_exts();\n\treturn 1;\n}\n")

		fmt.Fprintf(c, "\nint gladLoad%sLoader(GLADloadproc load) {\n", upper)
		c.WriteString("\tGLVersion.major = 0; GLVersion.minor = 0;\n")
		c.WriteString("\tglGetString = (PFNGLGETSTRINGPROC)load(\"glGetString\");\n")
		c.WriteString("\tif(glGetString == NULL) return 0;\n")
		c.WriteString("\tif(glGetString(GL_VERSION) == NULL) return 0;\n")
		fmt.Fprintf(c, "\tfind_core%s();\n", upper)
		for _, f := range features {
			fmt.Fprintf(c, "\tload_%s(load);\n", f.Name)
		}
		fmt.Fprintf(c, "\n\tif (!find_extensions%s()) return 0;\n", upper)
		for _, x := range extensions {
			fmt.Fprintf(c, "\tload_%s(load);\n", x.Name)
		}
		c.WriteString("\treturn GLVersion.major != 0 || GLVersion.minor != 0;\n}\n")
		return nil
	}

	// Window-system registries have no version query: every feature and
	// extension is assumed present and resolved on a best-effort basis.
	fmt.Fprintf(c, "\nint gladLoad%sLoader(GLADloadproc load) {\n", upper)
	for _, f := range features {
		fmt.Fprintf(c, "\tGLAD_%s = 1;\n\tload_%s(load);\n", f.Name, f.Name)
	}
	for _, x := range extensions {
		fmt.Fprintf(c, "\tGLAD_%s = 1;\n\tload_%s(load);\n", x.Name, x.Name)
	}
	c.WriteString("\treturn 1;\n}\n")
	return nil
}

// mergeExtensions folds extensions that several apis share into one entry
// per name, keeping first-seen order.
func mergeExtensions(extensions []*spec.Extension) []*spec.Extension {
	var out []*spec.Extension
	byName := map[string]*spec.Extension{}
	for _, x := range extensions {
		m, ok := byName[x.Name]
		if !ok {
			m = &spec.Extension{API: x.API, Name: x.Name}
			byName[x.Name] = m
			out = append(out, m)
		}
		m.Enums = appendNew(m.Enums, x.Enums)
		m.Functions = appendNew(m.Functions, x.Functions)
	}
	return out
}

func appendNew(dst, names []string) []string {
	seen := spec.NewNameSet(dst...)
	for _, n := range names {
		if !seen.Has(n) {
			seen.Add(n)
			dst = append(dst, n)
		}
	}
	return dst
}

func isGLFamily(api string) bool {
	switch api {
	case "gl", "gles1", "gles2", "glsc2":
		return true
	}
	return false
}

func pfnName(fn string) string { return "PFN" + strings.ToUpper(fn) + "PROC" }

func paramList(params []spec.Param) string {
	if len(params) == 0 {
		return "void"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strings.TrimSpace(p.Type + " " + p.Name)
	}
	return strings.Join(parts, ", ")
}

func render(w interface{ WriteString(string) (int, error) }, name, text string, data any) error {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return fmt.Errorf("cemitter: parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return fmt.Errorf("cemitter: render %s: %w", name, err)
	}
	_, err = w.WriteString(b.String())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	set := spec.NameSet{}
	for k := range m {
		set.Add(k)
	}
	return set.Sorted()
}
