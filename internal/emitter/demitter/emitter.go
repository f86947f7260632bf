// Package demitter writes a D loader as the modules glad.<spec>.types,
// enums, funcs, ext and loader.
package demitter

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/mark3labs/gladgen/internal/emitter"
	"github.com/mark3labs/gladgen/internal/spec"
)

const (
	Name     = "d"
	LongName = "D"
)

type Emitter struct {
	emitter.Base

	spec *spec.Specification

	header    string
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
		return fmt.Errorf("demitter: nil specification")
	}
	e.enums, e.functions = spec.NameSet{}, spec.NameSet{}
	return e.Base.Open()
}

func (e *Emitter) module(name string) string { return "glad." + e.spec.Name + "." + name }

// file returns the buffer of a module, writing its preamble on first use.
func (e *Emitter) file(name string) *strings.Builder {
	rel := path.Join("glad", e.spec.Name, name+".d")
	b := e.Out.File(rel)
	var sb strings.Builder
	if b.Len() == 0 {
		fmt.Fprintf(&sb, "/*\n%s*/\n\nmodule %s;\n\n", e.header, e.module(name))
		for _, dep := range imports[name] {
			fmt.Fprintf(&sb, "private import %s;\n", e.module(dep))
		}
	}
	return &sb
}

// flush appends what was rendered for a module.
func (e *Emitter) flush(name string, sb *strings.Builder) {
	e.Out.File(path.Join("glad", e.spec.Name, name+".d")).WriteString(sb.String())
}

var imports = map[string][]string{
	"types":  nil,
	"enums":  {"types"},
	"funcs":  {"types"},
	"ext":    {"types", "funcs"},
	"loader": {"types", "enums", "funcs", "ext"},
}

func (e *Emitter) GenerateHeader(header string) error {
	e.header = header
	return nil
}

func (e *Emitter) GenerateTypes(types []*spec.Type) error {
	sb := e.file("types")
	sb.WriteString("\nimport core.stdc.config : c_long, c_ulong;\n\n")
	sb.WriteString(khronosAliases)
	sb.WriteString("\n")
	for _, t := range types {
		if alias := typeAlias(t.Raw); alias != "" {
			sb.WriteString(alias + "\n")
		}
	}
	e.flush("types", sb)
	return nil
}

func (e *Emitter) GenerateFeatures(features []*spec.Feature) error {
	enums := e.file("enums")
	for _, f := range features {
		e.writeEnums(enums, f.Enums, nil)
	}
	e.flush("enums", enums)

	funcs := e.file("funcs")
	funcs.WriteString("\n")
	for _, f := range features {
		fmt.Fprintf(funcs, "__gshared bool %s;\n", f.Name)
	}
	var names []string
	for _, f := range features {
		names = append(names, e.claim(f.Functions, nil)...)
	}
	e.writeFunctions(funcs, names)
	e.flush("funcs", funcs)
	return nil
}

func (e *Emitter) GenerateExtensions(extensions []*spec.Extension, enums, functions spec.NameSet) error {
	en := e.file("enums")
	for _, x := range extensions {
		e.writeEnums(en, x.Enums, enums)
	}
	e.flush("enums", en)

	ext := e.file("ext")
	ext.WriteString("\n")
	seen := spec.NameSet{}
	var names []string
	for _, x := range extensions {
		if !seen.Has(x.Name) {
			seen.Add(x.Name)
			fmt.Fprintf(ext, "__gshared bool %s;\n", x.Name)
		}
		names = append(names, e.claim(x.Functions, functions)...)
	}
	e.writeFunctions(ext, names)
	e.flush("ext", ext)
	return nil
}

func (e *Emitter) GenerateLoader(features map[string][]*spec.Feature, extensions map[string][]*spec.Extension) error {
	sb := e.file("loader")
	sb.WriteString("\nimport core.stdc.string : strlen, strncmp, strstr;\n\n")
	sb.WriteString("alias Loader = void* delegate(const(char)*) nothrow;\n")

	apis := spec.NameSet{}
	for api := range features {
		apis.Add(api)
	}
	glFamily := false
	for _, api := range apis.Sorted() {
		glFamily = isGLFamily(api) || glFamily
		e.writeLoad(sb, api, features[api], extensions[api])
	}
	if glFamily {
		sb.WriteString(glHelpers)
	}
	if e.Opts.HasLoader() {
		if tmpl, ok := runtimeLoaders[e.spec.Name]; ok {
			sb.WriteString(tmpl)
		}
	}
	e.flush("loader", sb)
	e.Finish()
	return nil
}

// claim returns the names not yet declared and not in skip, marking them
// declared.
func (e *Emitter) claim(names []string, skip spec.NameSet) []string {
	var out []string
	for _, n := range names {
		if e.functions.Has(n) || skip.Has(n) {
			continue
		}
		if _, ok := e.spec.Commands[n]; !ok {
			continue
		}
		e.functions.Add(n)
		out = append(out, n)
	}
	return out
}

func (e *Emitter) writeEnums(sb *strings.Builder, names []string, skip spec.NameSet) {
	for _, n := range names {
		if e.enums.Has(n) || skip.Has(n) {
			continue
		}
		enum, ok := e.spec.Enums[n]
		if !ok {
			continue
		}
		e.enums.Add(n)
		typ, value, ok := dEnum(enum.Value)
		if !ok {
			fmt.Fprintf(sb, "// %s = %s\n", n, enum.Value)
			continue
		}
		fmt.Fprintf(sb, "enum %s %s = %s;\n", typ, n, value)
	}
}

func (e *Emitter) writeFunctions(sb *strings.Builder, names []string) {
	if len(names) == 0 {
		return
	}
	sb.WriteString("nothrow @nogc extern(System) {\n")
	for _, n := range names {
		cmd := e.spec.Commands[n]
		params := make([]string, len(cmd.Params))
		for i, p := range cmd.Params {
			params[i] = dType(p.Type) + " " + paramName(p.Name)
		}
		fmt.Fprintf(sb, "alias fp_%s = %s function(%s);\n", n, dType(cmd.Proto), strings.Join(params, ", "))
	}
	sb.WriteString("}\n__gshared {\n")
	for _, n := range names {
		fmt.Fprintf(sb, "fp_%s %s;\n", n, n)
	}
	sb.WriteString("}\n")
}

func (e *Emitter) writeLoad(sb *strings.Builder, api string, features []*spec.Feature, extensions []*spec.Extension) {
	fn := "gladLoad" + strings.ToUpper(api)
	fmt.Fprintf(sb, "\nbool %s(Loader load) {\n", fn)
	gl := isGLFamily(api)
	if gl {
		sb.WriteString("\tglGetString = cast(typeof(glGetString))load(\"glGetString\");\n")
		sb.WriteString("\tif(glGetString is null) { return false; }\n")
		sb.WriteString("\tauto v = cast(const(char)*)glGetString(GL_VERSION);\n")
		sb.WriteString("\tif(v is null) { return false; }\n")
		sb.WriteString("\tint major, minor;\n\tparseVersion(v, major, minor);\n")
		for _, f := range features {
			fmt.Fprintf(sb, "\t%s = (major == %d && minor >= %d) || major > %d;\n",
				f.Name, f.Version.Major, f.Version.Minor, f.Version.Major)
		}
	} else {
		for _, f := range features {
			fmt.Fprintf(sb, "\t%s = true;\n", f.Name)
		}
	}
	for _, f := range features {
		writeLoadBlock(sb, f.Name, f.Functions, e.spec)
	}
	for _, x := range extensions {
		if gl {
			fmt.Fprintf(sb, "\t%s = hasExt(\"%s\");\n", x.Name, x.Name)
		} else {
			fmt.Fprintf(sb, "\t%s = true;\n", x.Name)
		}
		writeLoadBlock(sb, x.Name, x.Functions, e.spec)
	}
	if gl {
		sb.WriteString("\treturn major != 0 || minor != 0;\n}\n")
		return
	}
	sb.WriteString("\treturn true;\n}\n")
}

func writeLoadBlock(sb *strings.Builder, flag string, functions []string, s *spec.Specification) {
	var loads []string
	for _, fn := range functions {
		if _, ok := s.Commands[fn]; ok {
			loads = append(loads, fmt.Sprintf("\t\t%s = cast(typeof(%s))load(\"%s\");\n", fn, fn, fn))
		}
	}
	if len(loads) == 0 {
		return
	}
	fmt.Fprintf(sb, "\tif(%s) {\n%s\t}\n", flag, strings.Join(loads, ""))
}

func isGLFamily(api string) bool {
	return api == "gl" || strings.HasPrefix(api, "gles") || api == "glsc2"
}

var reNumber = regexp.MustCompile(`^(-?)(0[xX][0-9a-fA-F]+|\d+)([uU]?[lL]{0,2})$`)

// dEnum picks a D type for a registry value.
func dEnum(v string) (typ, value string, ok bool) {
	m := reNumber.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return "", "", false
	}
	suffix := strings.ToLower(m[3])
	switch {
	case m[1] == "-":
		return "int", "-" + m[2], true
	case strings.Contains(suffix, "ll"):
		return "ulong", m[2], true
	default:
		return "uint", m[2], true
	}
}

const glHelpers = `
private void parseVersion(const(char)* v, out int major, out int minor) nothrow {
	static immutable string[] prefixes = ["OpenGL ES-CM ", "OpenGL ES-CL ", "OpenGL ES "];
	foreach(p; prefixes) {
		if(strncmp(v, p.ptr, p.length) == 0) {
			v += p.length;
			break;
		}
	}
	for(; *v >= '0' && *v <= '9'; v++) major = major * 10 + (*v - '0');
	if(*v == '.') v++;
	for(; *v >= '0' && *v <= '9'; v++) minor = minor * 10 + (*v - '0');
}

private bool hasExt(const(char)* name) nothrow {
	auto all = cast(const(char)*)glGetString(GL_EXTENSIONS);
	if(all is null || name is null) return false;
	auto len = strlen(name);
	for(auto loc = strstr(all, name); loc !is null; loc = strstr(loc + len, name)) {
		bool start = loc == all || *(loc - 1) == ' ';
		bool end = loc[len] == ' ' || loc[len] == '\0';
		if(start && end) return true;
	}
	return false;
}
`

// runtimeLoaders open the system library and resolve symbols with the
// registry's own GetProcAddress.
var runtimeLoaders = map[string]string{
	"gl": `
version(Windows) {
	import core.sys.windows.windows : LoadLibraryA, GetProcAddress, FreeLibrary;
	bool gladLoadGL() {
		auto lib = LoadLibraryA("opengl32.dll");
		if(lib is null) return false;
		scope(exit) FreeLibrary(lib);
		alias WGLGetProc = extern(System) void* function(const(char)*) nothrow;
		auto wglGetProc = cast(WGLGetProc)GetProcAddress(lib, "wglGetProcAddress");
		return gladLoadGL(delegate void*(const(char)* name) nothrow {
			void* p = wglGetProc is null ? null : wglGetProc(name);
			return p !is null ? p : cast(void*)GetProcAddress(lib, name);
		});
	}
} else {
	import core.sys.posix.dlfcn : dlopen, dlsym, dlclose, RTLD_NOW, RTLD_GLOBAL;
	bool gladLoadGL() {
		version(OSX) {
			auto lib = dlopen("/System/Library/Frameworks/OpenGL.framework/OpenGL", RTLD_NOW | RTLD_GLOBAL);
		} else {
			auto lib = dlopen("libGL.so.1", RTLD_NOW | RTLD_GLOBAL);
			if(lib is null) lib = dlopen("libGL.so", RTLD_NOW | RTLD_GLOBAL);
		}
		if(lib is null) return false;
		scope(exit) dlclose(lib);
		return gladLoadGL(delegate void*(const(char)* name) nothrow {
			return dlsym(lib, name);
		});
	}
}
`,
	"egl": `
bool gladLoadEGL() {
	import core.sys.posix.dlfcn : dlopen, dlsym, RTLD_NOW, RTLD_GLOBAL;
	auto lib = dlopen("libEGL.so.1", RTLD_NOW | RTLD_GLOBAL);
	if(lib is null) return false;
	alias GetProc = extern(System) void* function(const(char)*) nothrow;
	auto getProc = cast(GetProc)dlsym(lib, "eglGetProcAddress");
	if(getProc is null) return false;
	return gladLoadEGL(delegate void*(const(char)* name) nothrow { return getProc(name); });
}
`,
	"glx": `
bool gladLoadGLX() {
	import core.sys.posix.dlfcn : dlopen, dlsym, RTLD_NOW, RTLD_GLOBAL;
	auto lib = dlopen("libGL.so.1", RTLD_NOW | RTLD_GLOBAL);
	if(lib is null) return false;
	alias GetProc = extern(System) void* function(const(char)*) nothrow;
	auto getProc = cast(GetProc)dlsym(lib, "glXGetProcAddressARB");
	if(getProc is null) return false;
	return gladLoadGLX(delegate void*(const(char)* name) nothrow { return getProc(name); });
}
`,
	"wgl": `
bool gladLoadWGL() {
	import core.sys.windows.windows : LoadLibraryA, GetProcAddress;
	auto lib = LoadLibraryA("opengl32.dll");
	if(lib is null) return false;
	alias GetProc = extern(System) void* function(const(char)*) nothrow;
	auto getProc = cast(GetProc)GetProcAddress(lib, "wglGetProcAddress");
	if(getProc is null) return false;
	return gladLoadWGL(delegate void*(const(char)* name) nothrow { return getProc(name); });
}
`,
}
