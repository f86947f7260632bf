// Package goemitter writes a Go loader: one package per registry that binds
// entry points with purego.RegisterFunc.
package goemitter

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/mark3labs/gladgen/internal/emitter"
	"github.com/mark3labs/gladgen/internal/spec"
)

const (
	Name     = "go"
	LongName = "Go"
)

// prefixes are stripped from entry point names: glClear becomes Clear.
var prefixes = map[string]string{
	spec.GL:  "gl",
	spec.EGL: "egl",
	spec.GLX: "glX",
	spec.WGL: "wgl",
}

type Emitter struct {
	emitter.Base

	spec *spec.Specification

	header string
	types  map[string]string // registry type -> Go type

	consts    strings.Builder
	flags     strings.Builder
	funcs     strings.Builder
	procs     strings.Builder
	enums     spec.NameSet
	functions spec.NameSet
}

func New(ctx context.Context, s *spec.Specification, opts emitter.Options) *Emitter {
	return &Emitter{Base: emitter.NewBase(ctx, Name, opts), spec: s}
}

func (e *Emitter) Name() string     { return Name }
func (e *Emitter) LongName() string { return LongName }

func (e *Emitter) Open() error {
	if e.spec == nil {
		return fmt.Errorf("goemitter: nil specification")
	}
	e.types = map[string]string{}
	e.consts.Reset()
	e.flags.Reset()
	e.funcs.Reset()
	e.procs.Reset()
	e.enums, e.functions = spec.NameSet{}, spec.NameSet{}
	return e.Base.Open()
}

func (e *Emitter) relPath() string { return path.Join(e.spec.Name, e.spec.Name+".go") }

func (e *Emitter) GenerateHeader(header string) error {
	e.header = header
	return nil
}

// GenerateTypes records what each registry typedef resolves to; the
// generated package uses plain Go types.
func (e *Emitter) GenerateTypes(types []*spec.Type) error {
	for _, t := range types {
		raw := strings.Join(strings.Fields(t.Raw), " ")
		if reFuncPointer.MatchString(raw) {
			e.types[t.Name] = "uintptr"
			continue
		}
		if m := reTypedef.FindStringSubmatch(raw); m != nil {
			e.types[m[2]] = e.goType(m[1])
		}
	}
	return nil
}

func (e *Emitter) GenerateFeatures(features []*spec.Feature) error {
	for _, f := range features {
		e.writeEnums(f.Enums, nil)
	}
	for _, f := range features {
		fmt.Fprintf(&e.flags, "\t%s bool\n", f.Name)
		e.writeFunctions(f.Functions, nil)
	}
	return nil
}

func (e *Emitter) GenerateExtensions(extensions []*spec.Extension, enums, functions spec.NameSet) error {
	seen := spec.NameSet{}
	for _, x := range extensions {
		e.writeEnums(x.Enums, enums)
	}
	for _, x := range extensions {
		if !seen.Has(x.Name) {
			seen.Add(x.Name)
			fmt.Fprintf(&e.flags, "\t%s bool\n", x.Name)
		}
		e.writeFunctions(x.Functions, functions)
	}
	return nil
}

func (e *Emitter) GenerateLoader(features map[string][]*spec.Feature, extensions map[string][]*spec.Extension) error {
	var src strings.Builder
	src.WriteString("// Code generated by gladgen. DO NOT EDIT.\n\n")
	src.WriteString("/*\n" + e.header + "*/\n\n")
	fmt.Fprintf(&src, "// Package %s binds the %s entry points at run time.\n", e.spec.Name, strings.ToUpper(e.spec.Name))
	fmt.Fprintf(&src, "package %s\n\n", e.spec.Name)
	src.WriteString("import (\n\t\"fmt\"\n\t\"strings\"\n\t\"unsafe\"\n\n\t\"github.com/ebitengine/purego\"\n)\n\n")

	if e.consts.Len() > 0 {
		src.WriteString("const (\n" + e.consts.String() + ")\n\n")
	}
	src.WriteString("// Feature and extension availability, set by Load.\nvar (\n" + e.flags.String() + ")\n\n")
	if e.funcs.Len() > 0 {
		src.WriteString("var (\n" + e.funcs.String() + ")\n\n")
	}
	src.WriteString("// Procs maps entry point names to the function variables Load binds.\n")
	src.WriteString("var Procs = map[string]any{\n" + e.procs.String() + "}\n")
	src.WriteString(bindHelpers)

	apis := spec.NameSet{}
	for api := range features {
		apis.Add(api)
	}
	for _, api := range apis.Sorted() {
		e.writeLoad(&src, api, features[api], extensions[api])
	}

	formatted, err := imports.Process(e.relPath(), []byte(src.String()), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return fmt.Errorf("goemitter: format %s: %w", e.relPath(), err)
	}
	e.Out.File(e.relPath()).Write(formatted)
	e.Finish()
	return nil
}

func (e *Emitter) writeEnums(names []string, skip spec.NameSet) {
	for _, n := range names {
		if e.enums.Has(n) || skip.Has(n) {
			continue
		}
		enum, ok := e.spec.Enums[n]
		if !ok {
			continue
		}
		e.enums.Add(n)
		value, ok := goConst(enum.Value)
		if !ok {
			fmt.Fprintf(&e.consts, "\t// %s = %s\n", n, enum.Value)
			continue
		}
		fmt.Fprintf(&e.consts, "\t%s = %s\n", n, value)
	}
}

func (e *Emitter) writeFunctions(names []string, skip spec.NameSet) {
	for _, n := range names {
		if e.functions.Has(n) || skip.Has(n) {
			continue
		}
		cmd, ok := e.spec.Commands[n]
		if !ok {
			continue
		}
		e.functions.Add(n)
		goName := e.goName(n)
		params := make([]string, len(cmd.Params))
		for i, p := range cmd.Params {
			params[i] = paramName(p.Name, i) + " " + e.goType(p.Type)
		}
		ret := e.goType(cmd.Proto)
		if ret == "" {
			fmt.Fprintf(&e.funcs, "\t%s func(%s)\n", goName, strings.Join(params, ", "))
		} else {
			fmt.Fprintf(&e.funcs, "\t%s func(%s) %s\n", goName, strings.Join(params, ", "), ret)
		}
		fmt.Fprintf(&e.procs, "\t%q: &%s,\n", n, goName)
	}
}

func (e *Emitter) writeLoad(b *strings.Builder, api string, features []*spec.Feature, extensions []*spec.Extension) {
	fn := "Load"
	if api != e.spec.Name {
		fn += strings.ToUpper(api)
	}
	gl := isGLFamily(api)
	getString := e.goNameIfDeclared("glGetString")
	if gl && (getString == "" || !e.enums.Has("GL_VERSION")) {
		gl = false
	}

	fmt.Fprintf(b, "\n// %s resolves the %s entry points through getProcAddress.\n", fn, api)
	fmt.Fprintf(b, "func %s(getProcAddress func(name string) uintptr) error {\n", fn)
	if gl {
		fmt.Fprintf(b, "\tif !bind(getProcAddress, %q) {\n\t\treturn fmt.Errorf(\"%s: glGetString not found\")\n\t}\n", "glGetString", api)
		fmt.Fprintf(b, "\tmajor, minor, ok := parseVersion(cString(%s(GL_VERSION)))\n", getString)
		b.WriteString("\tif !ok {\n\t\treturn fmt.Errorf(\"" + api + ": no current context\")\n\t}\n")
		for _, f := range features {
			fmt.Fprintf(b, "\t%s = major > %d || (major == %d && minor >= %d)\n",
				f.Name, f.Version.Major, f.Version.Major, f.Version.Minor)
		}
	} else {
		for _, f := range features {
			fmt.Fprintf(b, "\t%s = true\n", f.Name)
		}
	}
	for _, f := range features {
		writeBinds(b, f.Name, f.Functions, e.functions)
	}
	if len(extensions) > 0 {
		if gl && e.enums.Has("GL_EXTENSIONS") {
			fmt.Fprintf(b, "\texts := strings.Fields(cString(%s(GL_EXTENSIONS)))\n", getString)
			b.WriteString("\thas := func(name string) bool {\n\t\tfor _, x := range exts {\n\t\t\tif x == name {\n\t\t\t\treturn true\n\t\t\t}\n\t\t}\n\t\treturn false\n\t}\n")
			for _, x := range extensions {
				fmt.Fprintf(b, "\t%s = has(%q)\n", x.Name, x.Name)
			}
		} else {
			for _, x := range extensions {
				fmt.Fprintf(b, "\t%s = true\n", x.Name)
			}
		}
		for _, x := range extensions {
			writeBinds(b, x.Name, x.Functions, e.functions)
		}
	}
	b.WriteString("\treturn nil\n}\n")
}

func writeBinds(b *strings.Builder, flag string, functions []string, declared spec.NameSet) {
	var names []string
	for _, fn := range functions {
		if declared.Has(fn) {
			names = append(names, fn)
		}
	}
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "\tif %s {\n", flag)
	for _, n := range names {
		fmt.Fprintf(b, "\t\tbind(getProcAddress, %q)\n", n)
	}
	b.WriteString("\t}\n")
}

func (e *Emitter) goNameIfDeclared(fn string) string {
	if !e.functions.Has(fn) {
		return ""
	}
	return e.goName(fn)
}

// goName strips the registry prefix; names that would not be exported keep
// it.
func (e *Emitter) goName(fn string) string {
	name := strings.TrimPrefix(fn, prefixes[e.spec.Name])
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		name = strings.ToUpper(fn[:1]) + fn[1:]
	}
	return name
}

// goType maps a C type, following registry typedefs, to a Go type. void maps
// to "".
func (e *Emitter) goType(c string) string {
	c = strings.TrimSpace(strings.ReplaceAll(c, "struct ", ""))
	if strings.Contains(c, "*") {
		return "unsafe.Pointer"
	}
	var words []string
	for _, w := range strings.Fields(c) {
		if w != "const" {
			words = append(words, w)
		}
	}
	base := strings.Join(words, " ")
	if t, ok := goTypes[base]; ok {
		return t
	}
	if t, ok := e.types[base]; ok {
		return t
	}
	return "uintptr"
}

var goTypes = map[string]string{
	"void":                        "",
	"char":                        "int8",
	"signed char":                 "int8",
	"unsigned char":               "uint8",
	"short":                       "int16",
	"signed short int":            "int16",
	"unsigned short":              "uint16",
	"unsigned short int":          "uint16",
	"int":                         "int32",
	"unsigned int":                "uint32",
	"long":                        "int",
	"unsigned long":               "uint",
	"float":                       "float32",
	"double":                      "float64",
	"int8_t":                      "int8",
	"uint8_t":                     "uint8",
	"int16_t":                     "int16",
	"uint16_t":                    "uint16",
	"int32_t":                     "int32",
	"uint32_t":                    "uint32",
	"int64_t":                     "int64",
	"uint64_t":                    "uint64",
	"intptr_t":                    "int",
	"uintptr_t":                   "uintptr",
	"ptrdiff_t":                   "int",
	"size_t":                      "uint",
	"khronos_int8_t":              "int8",
	"khronos_uint8_t":             "uint8",
	"khronos_int16_t":             "int16",
	"khronos_uint16_t":            "uint16",
	"khronos_int32_t":             "int32",
	"khronos_uint32_t":            "uint32",
	"khronos_int64_t":             "int64",
	"khronos_uint64_t":            "uint64",
	"khronos_intptr_t":            "int",
	"khronos_uintptr_t":           "uintptr",
	"khronos_ssize_t":             "int",
	"khronos_usize_t":             "uint",
	"khronos_float_t":             "float32",
	"khronos_utime_nanoseconds_t": "uint64",
	"khronos_stime_nanoseconds_t": "int64",
}

var (
	reTypedef      = regexp.MustCompile(`^typedef\s+([^()]+?)\s*\b(\w+)\s*;$`)
	reFuncPointer  = regexp.MustCompile(`^typedef\s+.+\(\s*(?:APIENTRY\s*)?\*\s*\w+\s*\)\s*\(.*\)\s*;$`)
	reGoConst      = regexp.MustCompile(`^(-?)(0[xX][0-9a-fA-F]+|\d+)[uU]?[lL]{0,2}$`)
	goReservedWord = map[string]bool{
		"type": true, "func": true, "range": true, "map": true, "string": true,
		"len": true, "cap": true, "var": true, "const": true, "go": true,
		"select": true, "chan": true, "default": true, "interface": true,
		"package": true, "import": true, "return": true, "defer": true,
	}
)

func goConst(v string) (string, bool) {
	m := reGoConst.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return "", false
	}
	return m[1] + m[2], true
}

func paramName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("p%d", i)
	}
	if goReservedWord[name] {
		return name + "_"
	}
	return name
}

func isGLFamily(api string) bool {
	switch api {
	case "gl", "gles1", "gles2", "glsc2":
		return true
	}
	return false
}

// bindHelpers is shared by every Load function of the generated package.
const bindHelpers = `
// bind resolves name and registers it on its Procs entry. It reports
// whether the symbol was found.
func bind(getProcAddress func(name string) uintptr, name string) bool {
	addr := getProcAddress(name)
	if addr == 0 {
		return false
	}
	purego.RegisterFunc(Procs[name], addr)
	return true
}

func cString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; ; i++ {
		c := *(*byte)(unsafe.Add(p, i))
		if c == 0 {
			return b.String()
		}
		b.WriteByte(c)
	}
}

// parseVersion reads "4.6.0 NVIDIA", "OpenGL ES 3.2 Mesa" and the like.
func parseVersion(v string) (major, minor int, ok bool) {
	for _, prefix := range []string{"OpenGL ES-CM ", "OpenGL ES-CL ", "OpenGL ES "} {
		v = strings.TrimPrefix(v, prefix)
	}
	if _, err := fmt.Sscanf(v, "%d.%d", &major, &minor); err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
`
