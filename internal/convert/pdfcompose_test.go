package convert

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestLayoutContain(t *testing.T) {
	// wide image in a square box letterboxes vertically
	x, y, w, h := layout(200, 100, 0, 0, 100, 100, FitContain)
	if w != 100 || h != 50 {
		t.Fatalf("expected 100x50, got %vx%v", w, h)
	}
	if x != 0 || y != 25 {
		t.Fatalf("expected centering at (0,25), got (%v,%v)", x, y)
	}
}

func TestLayoutCover(t *testing.T) {
	x, _, w, h := layout(200, 100, 0, 0, 100, 100, FitCover)
	if w != 200 || h != 100 {
		t.Fatalf("expected 200x100 overflow, got %vx%v", w, h)
	}
	if x != -50 {
		t.Fatalf("expected horizontal overflow centered at -50, got %v", x)
	}
}

func TestLayoutStretch(t *testing.T) {
	x, y, w, h := layout(200, 100, 5, 5, 90, 90, FitStretch)
	if x != 5 || y != 5 || w != 90 || h != 90 {
		t.Fatalf("stretch must fill the box exactly, got (%v,%v,%v,%v)", x, y, w, h)
	}
}

func TestLayoutRespectsBoxOffset(t *testing.T) {
	x, y, _, _ := layout(100, 100, 10, 20, 100, 100, FitContain)
	if x != 10 || y != 20 {
		t.Fatalf("expected offset (10,20), got (%v,%v)", x, y)
	}
}

func TestComposeMergedWritesOneDocument(t *testing.T) {
	dir := t.TempDir()
	a := writeTestPNG(t, dir, "x.png", 40, 30)
	b := writeTestPNG(t, dir, "y.png", 30, 40)
	out := filepath.Join(dir, "x.pdf")

	backend := &pdfComposeBackend{}
	err := backend.Convert(context.Background(), Request{
		Inputs: []string{a, b},
		Output: out,
		Mode:   ImagesToPdfMerged,
		Page:   -1,
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
}

func TestComposeFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	good := writeTestPNG(t, dir, "x.png", 10, 10)
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("not a png"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "merged.pdf")

	backend := &pdfComposeBackend{}
	err := backend.Convert(context.Background(), Request{
		Inputs: []string{good, broken},
		Output: out,
		Mode:   ImagesToPdfMerged,
		Page:   -1,
	}, DefaultOptions())
	if err == nil {
		t.Fatalf("expected failure for broken input")
	}
	if KindOf(err) != CorruptSource {
		t.Fatalf("expected CorruptSource, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("failed merge must not leave a partial file at the output path")
	}
}

func TestComposeRejectsEmptyInput(t *testing.T) {
	backend := &pdfComposeBackend{}
	err := backend.Convert(context.Background(), Request{Mode: ImagesToPdfMerged, Page: -1}, DefaultOptions())
	if KindOf(err) != UnsupportedInput {
		t.Fatalf("expected UnsupportedInput, got %v", err)
	}
}

func TestComposeHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	a := writeTestPNG(t, dir, "x.png", 10, 10)
	out := filepath.Join(dir, "x.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &pdfComposeBackend{}
	err := backend.Convert(ctx, Request{Inputs: []string{a}, Output: out, Mode: ImagesToPdfSeparate, Page: -1}, DefaultOptions())
	if err == nil {
		t.Fatalf("expected context error")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("cancelled compose must not write output")
	}
}
