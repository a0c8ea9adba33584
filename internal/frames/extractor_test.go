package frames

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// fakeFFmpeg writes n frames into the directory of the last argument and
// answers ffprobe with a fixed duration.
func fakeFFmpeg(t *testing.T, n int, calls *[]string) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, name)
		if name == "ffprobe" {
			return []byte("12.500000\n"), nil
		}
		pattern := args[len(args)-1]
		for i := 1; i <= n; i++ {
			if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("frame"), 0o644); err != nil {
				t.Fatalf("fake ffmpeg failed to write frame: %v", err)
			}
		}
		return nil, nil
	}
}

func newTestExtractor(run runFunc) *Extractor {
	return &Extractor{
		FFmpeg:  "ffmpeg",
		FFprobe: "ffprobe",
		FPS:     1,
		Format:  "jpg",
		Logger:  quietLogger(),
		run:     run,
	}
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract(t *testing.T) {
	var calls []string
	e := newTestExtractor(fakeFFmpeg(t, 12, &calls))
	out := filepath.Join(t.TempDir(), "frames")

	res, err := e.Extract(context.Background(), writeVideo(t), out)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(res.Frames) != 12 {
		t.Fatalf("expected 12 frames, got %d", len(res.Frames))
	}
	if !slices.IsSorted(res.Frames) {
		t.Errorf("frames are not sorted: %v", res.Frames)
	}
	if filepath.Base(res.Frames[9]) != "frame_000010.jpg" {
		t.Errorf("unexpected frame name %s", res.Frames[9])
	}
	if res.Duration != 12.5 {
		t.Errorf("expected duration 12.5, got %f", res.Duration)
	}
	if !slices.Equal(calls, []string{"ffprobe", "ffmpeg"}) {
		t.Errorf("unexpected calls %v", calls)
	}

	// The extracted frames are exactly what the loader would list.
	listed, err := List(out, []string{".jpg"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !slices.Equal(listed, res.Frames) {
		t.Errorf("List = %v; want %v", listed, res.Frames)
	}
}

func TestExtract_ProbeFailureIsNotFatal(t *testing.T) {
	var calls []string
	ffmpeg := fakeFFmpeg(t, 2, &calls)
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name == "ffprobe" {
			return nil, errors.New("ffprobe not installed")
		}
		return ffmpeg(ctx, name, args...)
	}

	res, err := newTestExtractor(run).Extract(context.Background(), writeVideo(t), t.TempDir())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Duration != 0 || len(res.Frames) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestExtract_FFmpegError(t *testing.T) {
	run := func(_ context.Context, name string, _ ...string) ([]byte, error) {
		if name == "ffprobe" {
			return []byte("1.0"), nil
		}
		return []byte("moov atom not found"), errors.New("exit status 1")
	}

	_, err := newTestExtractor(run).Extract(context.Background(), writeVideo(t), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "moov atom not found") {
		t.Errorf("expected ffmpeg output in error, got %v", err)
	}
}

func TestExtract_NoFrames(t *testing.T) {
	var calls []string
	_, err := newTestExtractor(fakeFFmpeg(t, 0, &calls)).Extract(context.Background(), writeVideo(t), t.TempDir())
	if !errors.Is(err, ErrNoFramesExtracted) {
		t.Errorf("expected ErrNoFramesExtracted, got %v", err)
	}
}

func TestExtract_MissingVideo(t *testing.T) {
	var calls []string
	e := newTestExtractor(fakeFFmpeg(t, 1, &calls))

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing video")
	}
	if len(calls) != 0 {
		t.Errorf("ffmpeg should not run for a missing video, got calls %v", calls)
	}
}

func TestExtract_RefusesExistingFrames(t *testing.T) {
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "frame_000001.jpg"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls []string
	_, err := newTestExtractor(fakeFFmpeg(t, 3, &calls)).Extract(context.Background(), writeVideo(t), out)
	if !errors.Is(err, ErrFramesExist) {
		t.Fatalf("expected ErrFramesExist, got %v", err)
	}
	if slices.Contains(calls, "ffmpeg") {
		t.Error("ffmpeg should not run when frames already exist")
	}
}

func TestExtract_IgnoresOtherFiles(t *testing.T) {
	out := t.TempDir()
	for _, name := range []string{"cover.jpg", "frame_000001.png"} {
		if err := os.WriteFile(filepath.Join(out, name), []byte("other"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var calls []string
	res, err := newTestExtractor(fakeFFmpeg(t, 2, &calls)).Extract(context.Background(), writeVideo(t), out)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := []string{filepath.Join(out, "frame_000001.jpg"), filepath.Join(out, "frame_000002.jpg")}
	if !slices.Equal(res.Frames, want) {
		t.Errorf("frames = %v; want %v", res.Frames, want)
	}
}

func TestArgs(t *testing.T) {
	e := &Extractor{FPS: 2, Format: "png"}

	args := e.Args("in.mp4", "out")

	if !slices.Contains(args, "fps=2") {
		t.Errorf("expected fps filter in %v", args)
	}
	if last := args[len(args)-1]; last != filepath.Join("out", "frame_%06d.png") {
		t.Errorf("unexpected output pattern %s", last)
	}
}
