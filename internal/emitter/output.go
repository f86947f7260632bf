// Package emitter holds the output plumbing shared by the language emitters:
// files are buffered in memory while the generator runs and written out in
// one pass once every hook has succeeded.
package emitter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/mark3labs/gladgen/internal/generator"
	"github.com/mark3labs/gladgen/internal/opener"
)

// Options controls how an emitter renders a loader.
type Options struct {
	OutDir          string // required; target directory
	Force           bool   // overwrite a non-empty OutDir
	DryRun          bool   // don't write, only plan
	Loader          generator.Loader
	LocalFiles      bool
	OmitKHRPlatform bool
	Opener          opener.Opener
	Logger          *zap.SugaredLogger
}

func (o Options) HasLoader() bool {
	return o.Loader != nil && !o.Loader.Disabled()
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Output collects generated files by slash-separated relative path.
type Output struct {
	outDir string
	force  bool
	dryRun bool
	files  map[string]*bytes.Buffer
	// external files are fetched into place at commit time (dst rel -> url)
	external map[string]string
}

func NewOutput(opts Options) *Output {
	return &Output{
		outDir:   opts.OutDir,
		force:    opts.Force,
		dryRun:   opts.DryRun,
		files:    map[string]*bytes.Buffer{},
		external: map[string]string{},
	}
}

// File returns the buffer for rel, creating it on first use.
func (o *Output) File(rel string) *bytes.Buffer {
	rel = filepath.ToSlash(rel)
	if b, ok := o.files[rel]; ok {
		return b
	}
	b := &bytes.Buffer{}
	o.files[rel] = b
	return b
}

// Fetch schedules rel to be downloaded from url on commit.
func (o *Output) Fetch(rel, url string) {
	o.external[filepath.ToSlash(rel)] = url
}

// Plan lists generated files in deterministic order. Fetched files are
// listed with size 0.
func (o *Output) Plan() []PlannedFile {
	rels := make([]string, 0, len(o.files)+len(o.external))
	for p := range o.files {
		rels = append(rels, p)
	}
	for p := range o.external {
		if _, ok := o.files[p]; !ok {
			rels = append(rels, p)
		}
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		size := 0
		if b, ok := o.files[rel]; ok {
			size = b.Len()
		}
		planned = append(planned, PlannedFile{RelPath: rel, Size: size, Mode: 0o644})
	}
	return planned
}

// Commit writes the buffered files (unless dry-run) and returns the plan.
// retrieve is called for every scheduled download. Files are staged next to
// the output directory and moved into place only after every write and
// download succeeded.
func (o *Output) Commit(retrieve func(url, dst string) error) ([]PlannedFile, error) {
	planned := o.Plan()
	if o.dryRun {
		return planned, nil
	}
	abs, err := filepath.Abs(o.outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: if directory exists and not empty and not force, error.
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !o.force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return nil, fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	stage, err := os.MkdirTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".stage-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	contents := make(map[string][]byte, len(o.files))
	for rel, b := range o.files {
		contents[rel] = b.Bytes()
	}
	if err := writeFiles(stage, contents); err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(o.external))
	for rel := range o.external {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		if retrieve == nil {
			return nil, fmt.Errorf("emitter: no opener to fetch %s", rel)
		}
		dst := filepath.Join(stage, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
		if err := retrieve(o.external[rel], dst); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rel, err)
		}
	}
	for _, p := range planned {
		if err := install(stage, abs, p.RelPath); err != nil {
			return nil, err
		}
	}
	return planned, nil
}

// Reset drops everything buffered so far.
func (o *Output) Reset() {
	o.files = map[string]*bytes.Buffer{}
	o.external = map[string]string{}
}

func writeFiles(dir string, files map[string][]byte) error {
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		if err := os.WriteFile(p, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

// install moves rel from the staging dir into the output dir.
func install(stage, abs, rel string) error {
	src := filepath.Join(stage, filepath.FromSlash(rel))
	dst := filepath.Join(abs, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}
