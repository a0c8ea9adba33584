package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-dedup/internal/executor"
	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
	"github.com/kozaktomas/frame-dedup/internal/frames"
	"github.com/kozaktomas/frame-dedup/internal/selector"
)

var (
	errNoReadableFrames = errors.New("none of the image files could be read")
	errInterrupted      = errors.New("interrupted")
)

// dedupOptions holds the resolved settings of one run.
type dedupOptions struct {
	FramesDir   string
	Threshold   int
	DryRun      bool
	Hash        string
	Concurrency int
	Extensions  []string
	JSON        bool

	readFile func(string) ([]byte, error) // nil means os.ReadFile
}

// DedupOutput is the JSON form of a run.
type DedupOutput struct {
	FramesDir   string           `json:"frames_dir"`
	Threshold   int              `json:"threshold"`
	Hash        string           `json:"hash"`
	Found       int              `json:"found"`
	Unreadable  []string         `json:"unreadable,omitempty"`
	Kept        []string         `json:"kept"`
	Discarded   []string         `json:"discarded"`
	Report      *executor.Report `json:"report"`
	Interrupted bool             `json:"interrupted,omitempty"`
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg.Dedup.Concurrency = intFlagOr(cmd, "concurrency", cfg.Dedup.Concurrency)

	opts := dedupOptions{
		FramesDir:   cfg.Dedup.FramesDir,
		Threshold:   intFlagOr(cmd, "threshold", cfg.Dedup.Threshold),
		DryRun:      mustGetBool(cmd, "dry-run"),
		Hash:        stringFlagOr(cmd, "hash", cfg.Dedup.Hash),
		Concurrency: cfg.Dedup.Workers(),
		Extensions:  cfg.Dedup.Extensions,
		JSON:        mustGetBool(cmd, "json"),
	}
	if len(args) > 0 {
		opts.FramesDir = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := dedup(ctx, opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if opts.JSON {
		if err := outputJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}
	if out.Interrupted {
		return errInterrupted
	}
	return nil
}

// dedup runs the whole pipeline: list, hash, select, report or remove.
// Validation errors are returned before any file is read.
func dedup(ctx context.Context, opts dedupOptions, w io.Writer) (*DedupOutput, error) {
	if opts.Threshold < 0 {
		return nil, fmt.Errorf("%w: %d", selector.ErrNegativeThreshold, opts.Threshold)
	}
	provider, err := fingerprint.ByName(opts.Hash)
	if err != nil {
		return nil, err
	}
	paths, err := frames.List(opts.FramesDir, opts.Extensions)
	if err != nil {
		return nil, err
	}

	human := w
	if opts.JSON {
		human = io.Discard
	}
	pr := newPrinter(human)
	mode := executor.ParseMode(opts.DryRun)

	pr.header(absPath(opts.FramesDir), len(paths), opts.Threshold, provider.Kind(), mode)

	pr.step(1, "Computing perceptual hashes …")
	bar := newHashProgressBar(human, len(paths), opts.JSON)
	hasher := &frames.Hasher{
		Provider:    provider,
		Concurrency: opts.Concurrency,
		ReadFile:    opts.readFile,
		Logger:      logger,
	}
	entries, failures, hashErr := hasher.Hash(ctx, paths, func(done, total int, path string) {
		if bar != nil {
			bar.Describe(progressDescription(path))
			_ = bar.Set(done)
		}
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(human)
	}
	interrupted := isInterrupt(hashErr)
	if hashErr != nil && !interrupted {
		return nil, hashErr
	}

	out := &DedupOutput{
		FramesDir: opts.FramesDir,
		Threshold: opts.Threshold,
		Hash:      string(provider.Kind()),
		Found:     len(paths),
	}
	for _, f := range failures {
		out.Unreadable = append(out.Unreadable, f.Path)
	}
	if len(entries) == 0 {
		if interrupted {
			pr.interrupted()
			out.Interrupted = true
			out.Kept, out.Discarded = []string{}, []string{}
			out.Report = &executor.Report{Mode: executor.ModeReport, Paths: []string{}}
			return out, nil
		}
		return nil, fmt.Errorf("%w in %s", errNoReadableFrames, opts.FramesDir)
	}

	// The hashed prefix of an interrupted run is still selected so the
	// summary covers every frame that was read.
	selectCtx := ctx
	if interrupted {
		selectCtx = context.WithoutCancel(ctx)
	}

	pr.step(2, "Detecting duplicates …")
	res, selErr := selector.Select(selectCtx, entries, opts.Threshold, provider.Distance, &decisionLogger{logger: logger})
	if selErr != nil {
		if !isInterrupt(selErr) {
			return nil, selErr
		}
		interrupted = true
	}
	out.Kept, out.Discarded = res.Kept, res.Discarded
	pr.counts(len(res.Kept), len(res.Discarded), len(failures))

	// An interrupted run only reports.
	applyCtx := ctx
	if interrupted {
		mode = executor.ModeReport
		applyCtx = context.WithoutCancel(ctx)
		pr.interrupted()
	}

	pr.step(3, "Removing duplicates …")
	ex := &executor.Executor{Observer: pr, Logger: logger}
	report, err := ex.Apply(applyCtx, res.Discarded, mode)
	if report != nil {
		out.Report = report
		pr.done(report, len(res.Kept), absPath(opts.FramesDir))
	}
	if err != nil {
		if !isInterrupt(err) {
			return nil, err
		}
		interrupted = true
	}

	out.Interrupted = interrupted
	return out, nil
}

func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
