package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kozaktomas/frame-dedup/internal/constants"
	"github.com/kozaktomas/frame-dedup/internal/executor"
	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
	"github.com/kozaktomas/frame-dedup/internal/selector"
)

const rule = "======================================================="

// printer writes the human-readable run output. It also serves as the
// executor observer for the per-file lines.
type printer struct {
	w io.Writer
	p *message.Printer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, p: message.NewPrinter(language.English)}
}

func (pr *printer) header(dir string, found, threshold int, kind fingerprint.Kind, mode executor.Mode) {
	modeText := "LIVE (will delete duplicates)"
	if mode == executor.ModeReport {
		modeText = "DRY RUN (no files deleted)"
	}

	fmt.Fprintf(pr.w, "\n%s\n", rule)
	fmt.Fprintf(pr.w, "  Frames directory : %s\n", dir)
	pr.p.Fprintf(pr.w, "  Total images     : %d\n", found)
	fmt.Fprintf(pr.w, "  Hash algorithm   : %s\n", kind)
	fmt.Fprintf(pr.w, "  Similarity thresh: %d  (hash distance <= %d -> duplicate)\n", threshold, threshold)
	fmt.Fprintf(pr.w, "  Mode             : %s\n", modeText)
	fmt.Fprintf(pr.w, "%s\n\n", rule)
}

func (pr *printer) step(n int, text string) {
	fmt.Fprintf(pr.w, "[%d/3] %s\n", n, text)
}

func (pr *printer) counts(kept, discarded, unreadable int) {
	pr.p.Fprintf(pr.w, "\n  Unique frames to keep : %d\n", kept)
	pr.p.Fprintf(pr.w, "  Duplicate frames found: %d\n", discarded)
	if unreadable > 0 {
		pr.p.Fprintf(pr.w, "  Unreadable (skipped)  : %d\n", unreadable)
	}
	fmt.Fprintln(pr.w)
}

func (pr *printer) interrupted() {
	fmt.Fprintln(pr.w, "\n[WARN] Interrupted. Reporting the partial result only, nothing is deleted.")
}

func (pr *printer) WouldDelete(path string) {
	fmt.Fprintf(pr.w, "  [DRY-RUN] Would delete: %s\n", filepath.Base(path))
}

func (pr *printer) Deleted(path string) {
	fmt.Fprintf(pr.w, "  Deleted: %s\n", filepath.Base(path))
}

func (pr *printer) DeleteFailed(path string, err error) {
	fmt.Fprintf(pr.w, "  [WARN] Could not delete %s: %v\n", filepath.Base(path), err)
}

func (pr *printer) done(report *executor.Report, kept int, dir string) {
	if report.Mode == executor.ModeReport {
		pr.p.Fprintf(pr.w, "\n[DONE] Dry run complete. %d files would be removed.\n", report.Selected)
		return
	}
	pr.p.Fprintf(pr.w, "\n[DONE] Removed %d of %d duplicate frames.\n", report.Removed, report.Selected)
	if report.Partial() {
		pr.p.Fprintf(pr.w, "[WARN] %d files could not be removed.\n", report.Selected-report.Removed)
	}
	pr.p.Fprintf(pr.w, "[DONE] %d unique frames remain in: %s\n", kept+report.Selected-report.Removed, dir)
}

// newHashProgressBar creates a progress bar for hash computation, or nil if JSON output.
func newHashProgressBar(w io.Writer, count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Hashing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

// progressDescription shortens the file name shown next to the bar.
func progressDescription(path string) string {
	name := filepath.Base(path)
	if r := []rune(name); len(r) > constants.ProgressDescriptionWidth {
		name = "…" + string(r[len(r)-constants.ProgressDescriptionWidth+1:])
	}
	return "Hashing " + name
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// decisionLogger logs every selector decision at debug level.
type decisionLogger struct {
	logger *slog.Logger
}

func (d *decisionLogger) Kept(e selector.Entry, distance int) {
	d.logger.Debug("frame kept", "frame", filepath.Base(e.ID), "distance", distance)
}

func (d *decisionLogger) Discarded(e, reference selector.Entry, distance int) {
	d.logger.Debug("frame is a duplicate", "frame", filepath.Base(e.ID),
		"reference", filepath.Base(reference.ID), "distance", distance)
}
