package spec

import (
	"encoding/xml"
	"html"
	"io"
	"regexp"
	"strings"
)

type xmlRegistry struct {
	Types      []xmlType      `xml:"types>type"`
	Enums      []xmlEnums     `xml:"enums"`
	Commands   []xmlCommand   `xml:"commands>command"`
	Features   []xmlFeature   `xml:"feature"`
	Extensions []xmlExtension `xml:"extensions>extension"`
}

type xmlType struct {
	Name      string `xml:"name,attr"`
	API       string `xml:"api,attr"`
	Requires  string `xml:"requires,attr"`
	InnerName string `xml:"name"`
	Inner     string `xml:",innerxml"`
}

type xmlEnums struct {
	Enums []xmlEnum `xml:"enum"`
}

type xmlEnum struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	API   string `xml:"api,attr"`
}

type xmlCommand struct {
	Proto  xmlNamed   `xml:"proto"`
	Params []xmlNamed `xml:"param"`
}

type xmlNamed struct {
	Name  string `xml:"name"`
	Inner string `xml:",innerxml"`
}

type xmlRef struct {
	Name string `xml:"name,attr"`
}

type xmlRequire struct {
	Profile  string   `xml:"profile,attr"`
	API      string   `xml:"api,attr"`
	Enums    []xmlRef `xml:"enum"`
	Commands []xmlRef `xml:"command"`
}

type xmlFeature struct {
	API      string       `xml:"api,attr"`
	Name     string       `xml:"name,attr"`
	Number   string       `xml:"number,attr"`
	Requires []xmlRequire `xml:"require"`
	Removes  []xmlRequire `xml:"remove"`
}

type xmlExtension struct {
	Name      string       `xml:"name,attr"`
	Supported string       `xml:"supported,attr"`
	Requires  []xmlRequire `xml:"require"`
}

var (
	reTag      = regexp.MustCompile(`<[^>]*>`)
	reApientry = regexp.MustCompile(`<apientry\s*/>`)
	reSpaces   = regexp.MustCompile(`[ \t]+`)
)

// innerText flattens mixed content to plain C text.
func innerText(inner string) string {
	s := reApientry.ReplaceAllString(inner, "APIENTRY")
	s = reTag.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}

// Parse decodes a registry document. name is the registry name (gl, egl...);
// profile filters require/remove blocks and is kept on the Specification.
func Parse(r io.Reader, name, profile string) (*Specification, error) {
	var reg xmlRegistry
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&reg); err != nil {
		return nil, &SpecError{Code: ParseError, Message: "parse registry: " + err.Error(), Cause: err}
	}

	s := &Specification{
		Name:       strings.ToLower(name),
		Profile:    profile,
		Enums:      map[string]*Enum{},
		Commands:   map[string]*Command{},
		Features:   map[string]map[Version]*Feature{},
		Extensions: map[string]map[string]*Extension{},
	}

	for _, t := range reg.Types {
		tname := t.Name
		if tname == "" {
			tname = t.InnerName
		}
		if tname == "" {
			continue
		}
		s.Types = append(s.Types, &Type{
			Name:     tname,
			API:      t.API,
			Raw:      strings.TrimSpace(innerText(t.Inner)),
			Requires: t.Requires,
		})
	}

	for _, group := range reg.Enums {
		for _, e := range group.Enums {
			if e.Name == "" {
				continue
			}
			if prev, ok := s.Enums[e.Name]; ok && prev.API == "" {
				continue
			}
			s.Enums[e.Name] = &Enum{Name: e.Name, Value: e.Value, API: e.API}
		}
	}

	for _, c := range reg.Commands {
		cname := strings.TrimSpace(c.Proto.Name)
		if cname == "" {
			continue
		}
		cmd := &Command{
			Name:  cname,
			Proto: cleanType(strings.TrimSuffix(strings.TrimSpace(innerText(c.Proto.Inner)), cname)),
		}
		for _, p := range c.Params {
			pname := strings.TrimSpace(p.Name)
			text := strings.TrimSpace(innerText(p.Inner))
			cmd.Params = append(cmd.Params, Param{
				Type: cleanType(strings.TrimSuffix(text, pname)),
				Name: pname,
			})
		}
		s.Commands[cname] = cmd
	}

	removed := map[string]NameSet{}
	for _, f := range reg.Features {
		if f.API == "" {
			continue
		}
		v, err := ParseVersion(f.Number)
		if err != nil {
			return nil, &SpecError{Code: ValidationError, Message: "feature " + f.Name + ": " + err.Error(), Cause: err}
		}
		feature := &Feature{API: f.API, Name: f.Name, Version: v}
		enums, funcs := collect(f.Requires, f.API, profile)
		feature.Enums, feature.Functions = enums, funcs

		gone := removed[f.API]
		if gone == nil {
			gone = NameSet{}
			removed[f.API] = gone
		}
		renums, rfuncs := collect(f.Removes, f.API, profile)
		gone.Add(renums...)
		gone.Add(rfuncs...)

		if s.Features[f.API] == nil {
			s.Features[f.API] = map[Version]*Feature{}
		}
		s.Features[f.API][v] = feature
	}
	for api, gone := range removed {
		if gone.Len() == 0 {
			continue
		}
		for _, feature := range s.Features[api] {
			feature.Enums = without(feature.Enums, gone)
			feature.Functions = without(feature.Functions, gone)
		}
	}

	for _, x := range reg.Extensions {
		if x.Name == "" {
			continue
		}
		for _, api := range supportedAPIs(x.Supported) {
			enums, funcs := collect(x.Requires, api, profile)
			if s.Extensions[api] == nil {
				s.Extensions[api] = map[string]*Extension{}
			}
			s.Extensions[api][x.Name] = &Extension{API: api, Name: x.Name, Enums: enums, Functions: funcs}
		}
	}

	return s, nil
}

// collect gathers the enum and command names of the blocks that apply to
// api and profile, de-duplicated in document order.
func collect(blocks []xmlRequire, api, profile string) (enums, funcs []string) {
	seenE, seenF := NameSet{}, NameSet{}
	for _, b := range blocks {
		if b.API != "" && b.API != api {
			continue
		}
		if b.Profile != "" && profile != "" && b.Profile != profile {
			continue
		}
		for _, e := range b.Enums {
			if e.Name != "" && !seenE.Has(e.Name) {
				seenE.Add(e.Name)
				enums = append(enums, e.Name)
			}
		}
		for _, c := range b.Commands {
			if c.Name != "" && !seenF.Has(c.Name) {
				seenF.Add(c.Name)
				funcs = append(funcs, c.Name)
			}
		}
	}
	return enums, funcs
}

func supportedAPIs(supported string) []string {
	var out []string
	seen := NameSet{}
	for _, token := range strings.Split(supported, "|") {
		token = strings.TrimSpace(token)
		switch token {
		case "", "disabled":
			continue
		case "glcore":
			token = GL
		}
		if !seen.Has(token) {
			seen.Add(token)
			out = append(out, token)
		}
	}
	return out
}

func without(names []string, gone NameSet) []string {
	out := names[:0:0]
	for _, n := range names {
		if !gone.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func cleanType(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " "))
}
