// Package executor reports or removes the frames selected for removal.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Mode selects between a dry run and actual removal.
type Mode string

const (
	ModeReport Mode = "report"
	ModeRemove Mode = "remove"
)

// ParseMode maps the --dry-run flag to a Mode.
func ParseMode(dryRun bool) Mode {
	if dryRun {
		return ModeReport
	}
	return ModeRemove
}

// Failure is a file that could not be removed.
type Failure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("could not delete %s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// MarshalJSON writes the error message next to the path.
func (f Failure) MarshalJSON() ([]byte, error) {
	out := struct {
		Path  string `json:"path"`
		Error string `json:"error,omitempty"`
	}{Path: f.Path}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// Report summarises an Apply call. Paths are in processing order; in
// remove mode they are the files actually removed.
type Report struct {
	Mode     Mode      `json:"mode"`
	Selected int       `json:"selected"`
	Removed  int       `json:"removed"`
	Paths    []string  `json:"paths"`
	Failures []Failure `json:"failures,omitempty"`
}

// Partial reports whether some selected files survived a remove run.
func (r *Report) Partial() bool {
	return r.Mode == ModeRemove && r.Removed < r.Selected
}

// Observer is notified about every file in processing order.
type Observer interface {
	WouldDelete(path string)
	Deleted(path string)
	DeleteFailed(path string, err error)
}

// Executor applies a discard set to the filesystem.
type Executor struct {
	Remove   func(string) error // defaults to os.Remove
	Observer Observer
	Logger   *slog.Logger // defaults to slog.Default()
}

// Apply processes discard in sorted order. In report mode nothing is
// touched. In remove mode a failed deletion is logged and recorded and
// the remaining files are still processed.
//
// A cancelled ctx stops processing between files; the report covers the
// files handled so far and ctx.Err() is returned with it.
func (e *Executor) Apply(ctx context.Context, discard []string, mode Mode) (*Report, error) {
	if mode != ModeReport && mode != ModeRemove {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	remove := e.Remove
	if remove == nil {
		remove = os.Remove
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sorted := slices.Clone(discard)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	report := &Report{Mode: mode, Selected: len(sorted), Paths: make([]string, 0, len(sorted))}

	for _, path := range sorted {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if mode == ModeReport {
			report.Paths = append(report.Paths, path)
			if e.Observer != nil {
				e.Observer.WouldDelete(path)
			}
			continue
		}

		if err := remove(path); err != nil {
			logger.Warn("could not delete frame", "path", path, "error", err)
			report.Failures = append(report.Failures, Failure{Path: path, Err: err})
			if e.Observer != nil {
				e.Observer.DeleteFailed(path, err)
			}
			continue
		}
		report.Removed++
		report.Paths = append(report.Paths, path)
		if e.Observer != nil {
			e.Observer.Deleted(path)
		}
	}

	return report, nil
}
