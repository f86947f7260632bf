package generator

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/mark3labs/gladgen/internal/spec"
)

// OnlineURL is the web configurator the Online link points at.
const OnlineURL = "http://glad.dav1d.de"

// maxOnlineLength caps the online link written into headers.
const maxOnlineLength = 2000

// DefaultHeaderTemplate is rendered with text/template. Keys: apis_named,
// version, date, language, specification, apis, profile, extensions, loader,
// local_files, omit_khrplatform, commandline, online.
const DefaultHeaderTemplate = `
    {{.apis_named}} loader generated by gladgen {{.version}} on {{.date}}.

    Language/Generator: {{.language}}
    Specification: {{.specification}}
    APIs: {{.apis}}
    Profile: {{.profile}}
    Extensions:
        {{.extensions}}
    Loader: {{.loader}}
    Local files: {{.local_files}}
    Omit khrplatform: {{.omit_khrplatform}}

    Commandline:
        {{.commandline}}
    Online:
        {{.online}}
`

// cDateLayout matches strftime's %c in the C locale.
const cDateLayout = "Mon Jan _2 15:04:05 2006"

func parseHeaderTemplate(text string) (*template.Template, error) {
	return template.New("header").Option("missingkey=zero").Parse(text)
}

// Header renders the provenance comment written at the top of generated files.
func (g *Generator) Header() string {
	tmpl, err := parseHeaderTemplate(g.cfg.HeaderTemplate)
	if err != nil {
		// New rejects templates that do not parse.
		return ""
	}

	named := spec.NameSet{}
	for _, a := range g.cfg.APIs {
		named.Add(spec.APIName(a.API))
	}

	profile := g.cfg.Spec.Profile
	if profile == "" {
		profile = "-"
	}

	online := g.Online()
	if len(online) > maxOnlineLength {
		online = "Too many extensions"
	}

	version := g.cfg.Version
	if version == "" {
		version = "dev"
	}

	data := map[string]any{
		"apis_named":       strings.Join(named.Sorted(), ", "),
		"version":          version,
		"date":             g.cfg.Now().Format(cDateLayout),
		"language":         g.backend.LongName(),
		"specification":    g.cfg.Spec.Name,
		"apis":             strings.Join(g.apiPairs(), ", "),
		"profile":          profile,
		"extensions":       strings.Join(g.ExtensionNames(), ", "),
		"loader":           titleBool(g.HasLoader()),
		"local_files":      titleBool(g.cfg.LocalFiles),
		"omit_khrplatform": titleBool(g.cfg.OmitKHRPlatform),
		"commandline":      g.CommandLine(),
		"online":           online,
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}

// CommandLine reconstructs an equivalent gladgen invocation.
func (g *Generator) CommandLine() string {
	var profile string
	if g.cfg.Spec.Profile != "" {
		profile = fmt.Sprintf("--profile=%q", g.cfg.Spec.Profile)
	}
	api := fmt.Sprintf("--api=%q", strings.Join(g.apiPairs(), ","))
	generator := fmt.Sprintf("--generator=%q", g.backend.Name())
	specification := fmt.Sprintf("--spec=%q", g.cfg.Spec.Name)
	loader := ""
	if !g.HasLoader() {
		loader = "--no-loader"
	}
	localFiles := ""
	if g.cfg.LocalFiles {
		localFiles = "--local-files"
	}
	omit := ""
	if g.cfg.OmitKHRPlatform {
		omit = "--omit-khrplatform"
	}
	extensions := fmt.Sprintf("--extensions=%q", strings.Join(g.ExtensionNames(), ","))

	parts := make([]string, 0, 8)
	for _, p := range []string{profile, api, generator, specification, loader, localFiles, omit, extensions} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Online returns a link that reopens this configuration in the web
// configurator. Query fields keep insertion order.
func (g *Generator) Online() string {
	type pair struct{ key, value string }
	var data []pair
	if g.cfg.Spec.Profile != "" {
		data = append(data, pair{"profile", g.cfg.Spec.Profile})
	}
	data = append(data, pair{"language", g.backend.Name()}, pair{"specification", g.cfg.Spec.Name})
	if g.HasLoader() {
		data = append(data, pair{"loader", "on"})
	}
	for _, a := range g.apiPairs() {
		data = append(data, pair{"api", a})
	}
	for _, ext := range g.ExtensionNames() {
		data = append(data, pair{"extensions", ext})
	}

	parts := make([]string, len(data))
	for i, p := range data {
		parts[i] = url.QueryEscape(p.key) + "=" + url.QueryEscape(p.value)
	}
	// TODO: encode --local-files and --omit-khrplatform once the configurator accepts them.
	return OnlineURL + "/#" + strings.Join(parts, "&")
}

func (g *Generator) apiPairs() []string {
	apis := g.APIs()
	out := make([]string, len(apis))
	for i, a := range apis {
		out[i] = a.String()
	}
	return out
}

// titleBool renders booleans capitalized, as the web configurator does.
func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
