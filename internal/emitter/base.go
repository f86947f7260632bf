package emitter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Base implements the Open/Close half of generator.Backend. Emitters embed
// it, write into Out from their hooks and call Finish from GenerateLoader.
// Close commits only a finished run; anything else is discarded. A commit
// that fails, including a failed download, leaves the output directory as it
// was.
type Base struct {
	Opts Options
	Out  *Output
	Log  *zap.SugaredLogger

	ctx      context.Context
	name     string
	finished bool
	planned  []PlannedFile
}

func NewBase(ctx context.Context, name string, opts Options) Base {
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return Base{Opts: opts, Log: log.With("generator", name), ctx: ctx, name: name}
}

func (b *Base) Open() error {
	if strings.TrimSpace(b.Opts.OutDir) == "" {
		return fmt.Errorf("%s: OutDir is required", b.name)
	}
	b.Out = NewOutput(b.Opts)
	b.finished = false
	b.planned = nil
	return nil
}

// Finish marks the run complete so Close writes it out.
func (b *Base) Finish() { b.finished = true }

func (b *Base) Close() error {
	if b.Out == nil {
		return nil
	}
	out := b.Out
	b.Out = nil
	if !b.finished {
		b.Log.Debugw("discarding incomplete output", "files", len(out.files))
		out.Reset()
		return nil
	}
	planned, err := out.Commit(func(url, dst string) error {
		if b.Opts.Opener == nil {
			return fmt.Errorf("%s: no opener configured", b.name)
		}
		b.Log.Infow("fetching", "url", url, "destination", dst)
		return b.Opts.Opener.Retrieve(b.ctx, url, dst)
	})
	if err != nil {
		return err
	}
	b.planned = planned
	if !b.Opts.DryRun {
		b.Log.Infow("wrote loader", "dir", b.Opts.OutDir, "files", len(planned))
	}
	return nil
}

// Planned returns the files of the last committed run.
func (b *Base) Planned() []PlannedFile { return b.planned }
