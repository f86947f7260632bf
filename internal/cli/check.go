package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mark3labs/gladgen/internal/dynlib"
	"github.com/mark3labs/gladgen/internal/generator"
	"github.com/mark3labs/gladgen/internal/logging"
	"github.com/mark3labs/gladgen/internal/opener"
	"github.com/mark3labs/gladgen/internal/spec"
)

// CheckConfig captures the options for the check command.
type CheckConfig struct {
	Spec     string
	API      string
	Profile  string
	SpecFile string
	Library  string
}

var checkRunner = runCheck

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which entry points the system library exports",
		Long: "Open the system OpenGL or EGL library (or --library) and report which " +
			"functions of the requested feature level it exports.",
		Example: strings.TrimSpace(`  gladgen check --api gl=3.3
  gladgen check --spec egl --library /usr/lib/x86_64-linux-gnu/libEGL.so.1`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &CheckConfig{}
			for name, dst := range map[string]*string{
				"spec":      &cfg.Spec,
				"api":       &cfg.API,
				"profile":   &cfg.Profile,
				"spec-file": &cfg.SpecFile,
				"library":   &cfg.Library,
			} {
				value, err := cmd.Flags().GetString(name)
				if err != nil {
					return err
				}
				*dst = strings.TrimSpace(value)
			}
			cfg.Spec = strings.ToLower(cfg.Spec)
			if _, ok := spec.URL(cfg.Spec); !ok {
				return newUsageError(fmt.Sprintf("check: unsupported --spec %q (allowed: %s)", cfg.Spec, strings.Join(spec.Names(), ", ")))
			}
			if _, err := spec.ParseAPIRequest(cfg.API); err != nil {
				return newUsageError(fmt.Sprintf("check: invalid --api: %v", err))
			}
			return checkRunner(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", spec.GL, "Registry to check (gl|egl|glx|wgl)")
	flags.String("api", "", `API and version, e.g. "gl=3.3"; a missing version means latest`)
	flags.String("profile", "", "OpenGL profile (core|compatibility)")
	flags.String("spec-file", "", "Read the registry from this file or URL instead of downloading it")
	flags.String("library", "", "Shared library to open instead of the system default")

	return cmd
}

// collector is a generator backend that only records the requested
// entry points.
type collector struct {
	functions map[string][]string // api -> functions, feature order
}

func (c *collector) Name() string     { return "check" }
func (c *collector) LongName() string { return "Entry point check" }
func (c *collector) Open() error {
	c.functions = map[string][]string{}
	return nil
}
func (c *collector) Close() error                     { return nil }
func (c *collector) GenerateHeader(string) error      { return nil }
func (c *collector) GenerateTypes([]*spec.Type) error { return nil }
func (c *collector) GenerateFeatures([]*spec.Feature) error {
	return nil
}
func (c *collector) GenerateExtensions([]*spec.Extension, spec.NameSet, spec.NameSet) error {
	return nil
}

func (c *collector) GenerateLoader(features map[string][]*spec.Feature, _ map[string][]*spec.Extension) error {
	for api, fs := range features {
		seen := spec.NameSet{}
		for _, f := range fs {
			for _, fn := range f.Functions {
				if !seen.Has(fn) {
					seen.Add(fn)
					c.functions[api] = append(c.functions[api], fn)
				}
			}
		}
	}
	return nil
}

func runCheck(ctx context.Context, w io.Writer, cfg *CheckConfig) error {
	log := logging.Logger
	op := opener.New(log)

	profile := cfg.Profile
	if profile == "" && cfg.Spec == spec.GL {
		profile = "compatibility"
	}
	s, err := spec.Load(ctx, cfg.SpecFile, spec.WithName(cfg.Spec), spec.WithProfile(profile), spec.WithOpener(op))
	if err != nil {
		return specUsageError(err)
	}

	req, _ := spec.ParseAPIRequest(cfg.API)
	if len(req) == 0 {
		req = []spec.APIVersion{{API: cfg.Spec}}
	}
	c := &collector{}
	g, err := generator.New(c, generator.Config{Spec: s, APIs: req, Extensions: []string{}, Opener: op})
	if err != nil {
		return asUsageError(err)
	}
	if err := g.Run(); err != nil {
		return asUsageError(err)
	}

	lib, err := openCheckLibrary(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := lib.Close(); cerr != nil {
			log.Warnw("close library", "path", lib.Path(), "error", cerr)
		}
	}()

	fmt.Fprintf(w, "Library: %s\n", lib.Path())
	for _, a := range g.APIs() {
		functions := c.functions[a.API]
		var missing []string
		for _, fn := range functions {
			if _, err := lib.Lookup(fn); err != nil {
				log.Debugw("unresolved", "function", fn, "error", err)
				missing = append(missing, fn)
			}
		}
		fmt.Fprintf(w, "%s: %d/%d functions resolved\n", a, len(functions)-len(missing), len(functions))
		for _, fn := range missing {
			fmt.Fprintf(w, "- missing %s\n", fn)
		}
	}
	return nil
}

func openCheckLibrary(cfg *CheckConfig) (*dynlib.Library, error) {
	candidates := dynlib.SystemGL(cfg.Spec)
	if cfg.Library != "" {
		candidates = []string{cfg.Library}
	}
	if len(candidates) == 0 {
		return nil, dynlib.ErrUnsupportedPlatform
	}
	var errs error
	for _, path := range candidates {
		lib, err := dynlib.Open(path)
		if err == nil {
			return lib, nil
		}
		errs = errors.CombineErrors(errs, err)
	}
	return nil, errors.WithHint(errs, "pass --library with the path of the shared library to check")
}
