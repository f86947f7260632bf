package demitter

import (
	"regexp"
	"strings"
)

// cTypes maps C base types to their D spelling. Registry type names such as
// GLenum pass through unchanged; types.d aliases them.
var cTypes = map[string]string{
	"void":               "void",
	"char":               "char",
	"signed char":        "byte",
	"unsigned char":      "ubyte",
	"short":              "short",
	"signed short int":   "short",
	"unsigned short":     "ushort",
	"unsigned short int": "ushort",
	"int":                "int",
	"unsigned int":       "uint",
	"long":               "c_long",
	"unsigned long":      "c_ulong",
	"float":              "float",
	"double":             "double",
	"int8_t":             "byte",
	"uint8_t":            "ubyte",
	"int16_t":            "short",
	"uint16_t":           "ushort",
	"int32_t":            "int",
	"uint32_t":           "uint",
	"int64_t":            "long",
	"uint64_t":           "ulong",
	"intptr_t":           "ptrdiff_t",
	"uintptr_t":          "size_t",
	"ptrdiff_t":          "ptrdiff_t",
	"size_t":             "size_t",
	"ssize_t":            "ptrdiff_t",
}

// khronosAliases replaces khrplatform.h, which D cannot include.
const khronosAliases = `alias khronos_int8_t = byte;
alias khronos_uint8_t = ubyte;
alias khronos_int16_t = short;
alias khronos_uint16_t = ushort;
alias khronos_int32_t = int;
alias khronos_uint32_t = uint;
alias khronos_int64_t = long;
alias khronos_uint64_t = ulong;
alias khronos_intptr_t = ptrdiff_t;
alias khronos_uintptr_t = size_t;
alias khronos_ssize_t = ptrdiff_t;
alias khronos_usize_t = size_t;
alias khronos_float_t = float;
alias khronos_utime_nanoseconds_t = ulong;
alias khronos_stime_nanoseconds_t = long;
`

// keywords that are legal C parameter names but reserved in D.
var keywords = map[string]bool{
	"alias": true, "align": true, "in": true, "out": true, "ref": true,
	"function": true, "delegate": true, "module": true, "version": true,
	"body": true, "debug": true, "scope": true, "cast": true,
}

var (
	reTypedef      = regexp.MustCompile(`^typedef\s+([^()]+?)\s*\b(\w+)\s*;$`)
	reFuncTypedef  = regexp.MustCompile(`^typedef\s+(.+?)\s*\(\s*(?:APIENTRY\s*)?\*\s*(\w+)\s*\)\s*\((.*)\)\s*;$`)
	reTrailingName = regexp.MustCompile(`^(.*?[\s*])(\w+)$`)
)

// dType converts a C type expression like "const GLchar *const*" to D.
func dType(c string) string {
	c = strings.TrimSpace(strings.ReplaceAll(c, "struct ", ""))
	stars := strings.Count(c, "*")
	c = strings.ReplaceAll(c, "*", " ")
	isConst := false
	var words []string
	for _, w := range strings.Fields(c) {
		if w == "const" {
			isConst = true
			continue
		}
		words = append(words, w)
	}
	base := strings.Join(words, " ")
	if d, ok := cTypes[base]; ok {
		base = d
	}
	if isConst && stars > 0 {
		base = "const(" + base + ")"
	}
	return base + strings.Repeat("*", stars)
}

func paramName(name string) string {
	if keywords[name] {
		return name + "_"
	}
	return name
}

// typeAlias renders one registry type as a D alias, or "" when the
// declaration has no D equivalent.
func typeAlias(raw string) string {
	raw = strings.TrimSpace(strings.Join(strings.Fields(raw), " "))
	if m := reFuncTypedef.FindStringSubmatch(raw); m != nil {
		return "alias " + m[2] + " = extern(System) " + dType(m[1]) + " function(" + cParams(m[3]) + ") nothrow;"
	}
	if m := reTypedef.FindStringSubmatch(raw); m != nil {
		return "alias " + m[2] + " = " + dType(m[1]) + ";"
	}
	return ""
}

// cParams converts a C parameter list written out as text.
func cParams(list string) string {
	list = strings.TrimSpace(list)
	if list == "" || list == "void" {
		return ""
	}
	parts := strings.Split(list, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if m := reTrailingName.FindStringSubmatch(p); m != nil && !isBareType(p) {
			out[i] = dType(m[1]) + " " + paramName(m[2])
			continue
		}
		out[i] = dType(p)
	}
	return strings.Join(out, ", ")
}

func isBareType(p string) bool {
	_, ok := cTypes[p]
	return ok || !strings.ContainsAny(p, " *")
}
