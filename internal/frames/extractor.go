package frames

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kozaktomas/frame-dedup/internal/constants"
)

var (
	ErrNoFramesExtracted = errors.New("no frames extracted from video")
	ErrFramesExist       = errors.New("output directory already contains frames")
)

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Extractor decodes a video into numbered image files with ffmpeg.
type Extractor struct {
	FFmpeg  string
	FFprobe string
	FPS     int
	Format  string
	Logger  *slog.Logger

	run runFunc
}

// Extraction describes the frames written by Extract.
type Extraction struct {
	VideoPath string   `json:"video_path"`
	OutputDir string   `json:"output_dir"`
	Frames    []string `json:"frames"`
	Duration  float64  `json:"duration_sec,omitempty"`
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Extractor) runner() runFunc {
	if e.run != nil {
		return e.run
	}
	return execRun
}

// Args returns the ffmpeg arguments used to extract frames from videoPath
// into outputDir.
func (e *Extractor) Args(videoPath, outputDir string) []string {
	pattern := filepath.Join(outputDir, constants.FrameNamePattern+"."+e.Format)
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", e.FPS),
		"-y",
		pattern,
	}
}

// Extract writes frames of videoPath into outputDir, creating it if needed,
// and returns the produced files in frame order.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputDir string) (*Extraction, error) {
	if e.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", e.FPS)
	}
	if info, err := os.Stat(videoPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}
	if err := os.MkdirAll(outputDir, constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %w", outputDir, err)
	}
	// Leftovers from an earlier run would be mixed into this one.
	existing, err := e.frameFiles(outputDir)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: %s has %d %s frames", ErrFramesExist, outputDir, len(existing), e.Format)
	}

	duration, err := e.Probe(ctx, videoPath)
	if err != nil {
		e.logger().Warn("could not get video duration", "video", videoPath, "error", err)
	}

	e.logger().Info("extracting frames", "video", videoPath, "output", outputDir, "fps", e.FPS, "format", e.Format)
	output, err := e.runner()(ctx, e.FFmpeg, e.Args(videoPath, outputDir)...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	frames, err := e.frameFiles(outputDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoFramesExtracted
	}

	e.logger().Info("frames extracted", "count", len(frames), "video_duration", duration)

	return &Extraction{
		VideoPath: videoPath,
		OutputDir: outputDir,
		Frames:    frames,
		Duration:  duration,
	}, nil
}

// frameFiles lists the files in dir named like extracted frames, sorted.
func (e *Extractor) frameFiles(dir string) ([]string, error) {
	frames, err := filepath.Glob(filepath.Join(dir, "frame_*."+e.Format))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

// Probe returns the duration of videoPath in seconds using ffprobe.
func (e *Extractor) Probe(ctx context.Context, videoPath string) (float64, error) {
	output, err := e.runner()(ctx, e.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
