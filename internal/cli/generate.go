package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/gladgen/internal/emitter"
	"github.com/mark3labs/gladgen/internal/emitter/cemitter"
	"github.com/mark3labs/gladgen/internal/emitter/demitter"
	"github.com/mark3labs/gladgen/internal/emitter/goemitter"
	"github.com/mark3labs/gladgen/internal/generator"
	"github.com/mark3labs/gladgen/internal/logging"
	"github.com/mark3labs/gladgen/internal/opener"
	"github.com/mark3labs/gladgen/internal/spec"
	"github.com/mark3labs/gladgen/internal/version"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Spec      string
	API       string
	Profile   string
	Generator string
	// Extensions selects extensions; nil means all of them, an empty slice
	// none.
	Extensions      []string
	Out             string
	SpecFile        string
	NoLoader        bool
	LocalFiles      bool
	OmitKHRPlatform bool
	ConfigPath      string
	DryRun          bool
	Force           bool
	Verbose         bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Spec: spec.GL, Generator: cemitter.Name}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a loader from a Khronos registry",
		Long: "Generate a loader for the requested APIs and extensions. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  gladgen generate --api gl=3.3 --profile core --out ./glad
  gladgen generate --spec egl --generator go --out ./egl --extensions EGL_KHR_platform_x11
  gladgen --config gladgen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Registry to generate from (gl|egl|glx|wgl); defaults to gl")
	flags.String("api", "", `APIs and versions, e.g. "gl=4.6,gles2=3.2"; a missing version means latest`)
	flags.String("profile", "", "OpenGL profile (core|compatibility); defaults to compatibility")
	flags.String("generator", "", "Language to generate (c|d|go); defaults to c")
	flags.StringSlice("extensions", nil, "Extensions to include, or a file listing one per line; all when omitted")
	flags.String("out", "", "Output directory")
	flags.String("spec-file", "", "Read the registry from this file or URL instead of downloading it")
	flags.Bool("no-loader", false, "Do not generate a runtime loader")
	flags.Bool("local-files", false, "Write all files into one directory and include them locally")
	flags.Bool("omit-khrplatform", false, "Do not fetch khrplatform.h; declare the types it provides inline")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"spec":      &cfg.Spec,
		"api":       &cfg.API,
		"profile":   &cfg.Profile,
		"generator": &cfg.Generator,
		"out":       &cfg.Out,
		"spec-file": &cfg.SpecFile,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	bools := map[string]*bool{
		"no-loader":        &cfg.NoLoader,
		"local-files":      &cfg.LocalFiles,
		"omit-khrplatform": &cfg.OmitKHRPlatform,
		"dry-run":          &cfg.DryRun,
		"force":            &cfg.Force,
		"verbose":          &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("extensions") {
		value, err := flags.GetStringSlice("extensions")
		if err != nil {
			return err
		}
		cfg.Extensions = sanitizeNames(value)
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Spec = strings.ToLower(strings.TrimSpace(c.Spec))
	c.API = strings.TrimSpace(c.API)
	c.Profile = strings.ToLower(strings.TrimSpace(c.Profile))
	c.Generator = strings.ToLower(strings.TrimSpace(c.Generator))
	c.Out = strings.TrimSpace(c.Out)
	c.SpecFile = strings.TrimSpace(c.SpecFile)
	c.Extensions = sanitizeNames(c.Extensions)
	if c.Spec == "" {
		c.Spec = spec.GL
	}
	if c.Generator == "" {
		c.Generator = cemitter.Name
	}
	if c.Spec == spec.GL && c.Profile == "" {
		c.Profile = "compatibility"
	}
}

func (c *GenerateConfig) validate() error {
	if _, ok := spec.URL(c.Spec); !ok {
		return newUsageError(fmt.Sprintf("generate: unsupported --spec %q (allowed: %s)", c.Spec, strings.Join(spec.Names(), ", ")))
	}

	switch c.Generator {
	case cemitter.Name, demitter.Name, goemitter.Name:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --generator %q (allowed: c, d, go)", c.Generator))
	}

	switch c.Profile {
	case "", "core", "compatibility":
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --profile %q (allowed: core, compatibility)", c.Profile))
	}
	if c.Profile != "" && c.Spec != spec.GL {
		return newUsageError(fmt.Sprintf("generate: --profile only applies to the gl specification, not %q", c.Spec))
	}

	if c.Out == "" {
		return newUsageError("generate: --out is required (set via flag or config file)")
	}

	if _, err := spec.ParseAPIRequest(c.API); err != nil {
		return newUsageError(fmt.Sprintf("generate: invalid --api: %v", err))
	}

	return nil
}

// apiRequest parses --api, defaulting to the latest version of the api named
// like the registry.
func (c *GenerateConfig) apiRequest() []spec.APIVersion {
	req, _ := spec.ParseAPIRequest(c.API)
	if len(req) == 0 {
		req = []spec.APIVersion{{API: c.Spec}}
	}
	return req
}

// extensionList expands a single --extensions entry naming a file.
func (c *GenerateConfig) extensionList() ([]string, error) {
	if len(c.Extensions) != 1 {
		return c.Extensions, nil
	}
	path := c.Extensions[0]
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return c.Extensions, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("generate: read extensions file %q: %v", path, err))
	}
	defer f.Close()

	names := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, newUsageError(fmt.Sprintf("generate: read extensions file %q: %v", path, err))
	}
	return sanitizeNames(names), nil
}

// plannedBackend is a generator backend that reports what it wrote.
type plannedBackend interface {
	generator.Backend
	Planned() []emitter.PlannedFile
}

func newBackend(ctx context.Context, name string, s *spec.Specification, opts emitter.Options) plannedBackend {
	switch name {
	case demitter.Name:
		return demitter.New(ctx, s, opts)
	case goemitter.Name:
		return goemitter.New(ctx, s, opts)
	default:
		return cemitter.New(ctx, s, opts)
	}
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	log := logging.Logger
	op := opener.New(log)

	// 1) Load the registry (file, URL, or upstream download)
	s, err := spec.Load(ctx, cfg.SpecFile,
		spec.WithName(cfg.Spec),
		spec.WithProfile(cfg.Profile),
		spec.WithOpener(op),
	)
	if err != nil {
		return specUsageError(err)
	}
	log.Debugw("loaded specification", "spec", s.Name, "profile", s.Profile,
		"commands", len(s.Commands), "enums", len(s.Enums))

	extensions, err := cfg.extensionList()
	if err != nil {
		return err
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}

	// 2) Pick the emitter and let the generator drive it
	loader := generator.NewLoader(cfg.NoLoader)
	backend := newBackend(ctx, cfg.Generator, s, emitter.Options{
		OutDir:          cfg.Out,
		Force:           cfg.Force,
		DryRun:          cfg.DryRun,
		Loader:          loader,
		LocalFiles:      cfg.LocalFiles,
		OmitKHRPlatform: cfg.OmitKHRPlatform,
		Opener:          op,
		Logger:          log,
	})
	g, err := generator.New(backend, generator.Config{
		Path:            cfg.Out,
		Spec:            s,
		APIs:            cfg.apiRequest(),
		Extensions:      extensions,
		Loader:          loader,
		Opener:          op,
		LocalFiles:      cfg.LocalFiles,
		OmitKHRPlatform: cfg.OmitKHRPlatform,
		Version:         version.Version,
		Now:             headerClock(),
	})
	if err != nil {
		return asUsageError(err)
	}
	if err := g.Run(); err != nil {
		if generator.IsConfigurationError(err) {
			return asUsageError(err)
		}
		return wrapOutputError(err, absOut)
	}

	if cfg.DryRun {
		planned := backend.Planned()
		paths := make([]string, 0, len(planned))
		for _, p := range planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, len(planned), paths)
	}
	return nil
}

// headerClock honours SOURCE_DATE_EPOCH so headers can be reproduced.
func headerClock() func() time.Time {
	epoch := strings.TrimSpace(os.Getenv("SOURCE_DATE_EPOCH"))
	if epoch == "" {
		return time.Now
	}
	secs, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		logging.Logger.Warnw("ignoring invalid SOURCE_DATE_EPOCH", "value", epoch)
		return time.Now
	}
	t := time.Unix(secs, 0).UTC()
	return func() time.Time { return t }
}

// specUsageError maps structured registry errors into friendly messages.
func specUsageError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.Code == spec.NetworkError {
		msg += "\nHint: use --spec-file to read a local copy of the registry."
	}
	return newUsageError(msg)
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

// sanitizeNames trims and de-duplicates, keeping order. A non-nil input
// stays non-nil so an explicitly empty selection survives.
func sanitizeNames(names []string) []string {
	if names == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"spec":      &cfg.Spec,
		"api":       &cfg.API,
		"profile":   &cfg.Profile,
		"generator": &cfg.Generator,
		"out":       &cfg.Out,
		"specfile":  &cfg.SpecFile,
	}
	bools := map[string]*bool{
		"noloader":        &cfg.NoLoader,
		"localfiles":      &cfg.LocalFiles,
		"omitkhrplatform": &cfg.OmitKHRPlatform,
		"dryrun":          &cfg.DryRun,
		"force":           &cfg.Force,
		"verbose":         &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		switch normalized {
		case "extensions":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			if list == nil {
				list = []string{}
			}
			cfg.Extensions = sanitizeNames(list)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
