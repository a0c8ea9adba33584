package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
)

// fakeProvider parses "bits:<n>" payloads instead of decoding images.
type fakeProvider struct{}

func (fakeProvider) Kind() fingerprint.Kind { return fingerprint.KindPHash }

func (fakeProvider) Compute(data []byte) (fingerprint.Fingerprint, error) {
	s, ok := strings.CutPrefix(string(data), "bits:")
	if !ok {
		return fingerprint.Fingerprint{}, errors.New("failed to decode image")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return fingerprint.Fingerprint{Kind: fingerprint.KindPHash, Bits: v}, nil
}

func (fakeProvider) Distance(a, b fingerprint.Fingerprint) int { return fingerprint.Distance(a, b) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memFS(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(data), nil
	}
}

func TestHash_PreservesOrder(t *testing.T) {
	files := map[string]string{}
	var paths []string
	for i := range 50 {
		p := fmt.Sprintf("frame_%03d.jpg", i)
		paths = append(paths, p)
		files[p] = fmt.Sprintf("bits:%d", i)
	}

	h := &Hasher{Provider: fakeProvider{}, Concurrency: 8, ReadFile: memFS(files), Logger: quietLogger()}

	var mu sync.Mutex
	calls := 0
	entries, failures, err := h.Hash(context.Background(), paths, func(done, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if total != len(paths) || done != calls {
			t.Errorf("progress(%d, %d) on call %d", done, total, calls)
		}
	})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("unexpected failures: %v", failures)
	}
	if calls != len(paths) {
		t.Errorf("progress called %d times; want %d", calls, len(paths))
	}
	if len(entries) != len(paths) {
		t.Fatalf("got %d entries; want %d", len(entries), len(paths))
	}
	for i, e := range entries {
		if e.ID != paths[i] || e.Fingerprint.Bits != uint64(i) {
			t.Errorf("entry %d = %s/%d; want %s/%d", i, e.ID, e.Fingerprint.Bits, paths[i], i)
		}
	}
}

func TestHash_SkipsUnreadable(t *testing.T) {
	files := map[string]string{
		"a.jpg": "bits:1",
		"b.jpg": "garbage",
		"d.jpg": "bits:4",
	}
	paths := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}

	h := &Hasher{Provider: fakeProvider{}, Concurrency: 2, ReadFile: memFS(files), Logger: quietLogger()}
	entries, failures, err := h.Hash(context.Background(), paths, nil)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if len(entries) != 2 || entries[0].ID != "a.jpg" || entries[1].ID != "d.jpg" {
		t.Errorf("entries = %+v; want a.jpg, d.jpg", entries)
	}
	if len(failures) != 2 || failures[0].Path != "b.jpg" || failures[1].Path != "c.jpg" {
		t.Fatalf("failures = %v; want b.jpg, c.jpg", failures)
	}
	if !errors.Is(failures[1], os.ErrNotExist) {
		t.Errorf("failure should unwrap to os.ErrNotExist, got %v", failures[1].Err)
	}
}

func TestHash_CancelledReturnsPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	files := map[string]string{}
	var paths []string
	for i := range 10 {
		p := fmt.Sprintf("f%02d.jpg", i)
		paths = append(paths, p)
		files[p] = fmt.Sprintf("bits:%d", i)
	}

	read := func(path string) ([]byte, error) {
		if path == "f03.jpg" {
			cancel()
		}
		return memFS(files)(path)
	}

	h := &Hasher{Provider: fakeProvider{}, Concurrency: 1, ReadFile: read, Logger: quietLogger()}
	entries, _, err := h.Hash(ctx, paths, nil)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries; want the 4 frames processed before cancellation", len(entries))
	}
	for i, e := range entries {
		if e.ID != paths[i] {
			t.Errorf("entry %d = %s; want %s", i, e.ID, paths[i])
		}
	}
}

func TestHash_RealImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "frame_000001.png", 0)
	writePNG(t, dir, "frame_000002.png", 0)
	if err := os.WriteFile(filepath.Join(dir, "frame_000003.png"), []byte("truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := List(dir, []string{".png"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	p, _ := fingerprint.New(fingerprint.KindPHash)
	h := &Hasher{Provider: p, Concurrency: 4, Logger: quietLogger()}
	entries, failures, err := h.Hash(context.Background(), paths, nil)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(entries) != 2 || len(failures) != 1 {
		t.Fatalf("got %d entries and %d failures; want 2 and 1", len(entries), len(failures))
	}
	if entries[0].Fingerprint != entries[1].Fingerprint {
		t.Errorf("identical images should have identical fingerprints: %s vs %s",
			entries[0].Fingerprint, entries[1].Fingerprint)
	}
}

// writePNG writes a 64x64 image whose left half brightness is shifted by level.
func writePNG(t *testing.T, dir, name string, level uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := range 64 {
		for y := range 64 {
			v := uint8(x * 4)
			if x < 32 {
				v += level
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}
