package frames

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
	"github.com/kozaktomas/frame-dedup/internal/selector"
)

// Failure records a frame that could not be read or fingerprinted.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// ProgressFunc is called once per processed file. done counts files
// finished so far, including failed ones.
type ProgressFunc func(done, total int, path string)

// Hasher loads frames and computes their fingerprints.
type Hasher struct {
	Provider    fingerprint.Provider
	Concurrency int                          // <= 0 means sequential
	ReadFile    func(string) ([]byte, error) // defaults to os.ReadFile
	Logger      *slog.Logger                 // defaults to slog.Default()
}

type hashed struct {
	done bool
	fp   fingerprint.Fingerprint
	err  error
}

// Hash fingerprints every path. Fingerprints are computed in parallel
// but returned in the order of paths. Files that fail to load are
// logged, reported as failures and left out of the entries.
//
// When ctx is cancelled Hash returns the entries of the longest fully
// processed prefix of paths together with ctx.Err().
func (h *Hasher) Hash(ctx context.Context, paths []string, progress ProgressFunc) ([]selector.Entry, []Failure, error) {
	read := h.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]hashed, len(paths))
	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(max(h.Concurrency, 1))

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			fp, err := h.hashFile(read, path)
			if err != nil {
				logger.Warn("could not read frame", "path", path, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = hashed{done: true, fp: fp, err: err}
			done++
			if progress != nil {
				progress(done, len(paths), path)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	entries := make([]selector.Entry, 0, len(paths))
	var failures []Failure
	for i, r := range results {
		if !r.done {
			break
		}
		if r.err != nil {
			failures = append(failures, Failure{Path: paths[i], Err: r.err})
			continue
		}
		entries = append(entries, selector.Entry{ID: paths[i], Fingerprint: r.fp})
	}

	if err := ctx.Err(); err != nil {
		return entries, failures, err
	}
	return entries, failures, waitErr
}

func (h *Hasher) hashFile(read func(string) ([]byte, error), path string) (fingerprint.Fingerprint, error) {
	data, err := read(path)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return h.Provider.Compute(data)
}
