package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"imageResizer/worker/converter"
	"imageResizer/worker/models"
	"imageResizer/worker/planner"
	"imageResizer/worker/validation"
)

func uintPtr(v uint) *uint { return &v }

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 200, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func newTestCoordinator(t *testing.T, obs Observer) *Coordinator {
	logger := zaptest.NewLogger(t)
	conv := converter.NewConverter(logger, converter.DefaultOptions())
	return NewCoordinator(conv, obs, logger, 4)
}

func pngBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode %s: %v", path, err)
	}
	return img.Bounds()
}

func outcomeFor(t *testing.T, report *models.BatchReport, name string) models.Outcome {
	t.Helper()
	for _, o := range report.Outcomes {
		if filepath.Base(o.Source()) == name {
			return o
		}
	}
	t.Fatalf("No outcome for %s", name)
	return nil
}

func TestCoordinator_Run_SourceNotFound(t *testing.T) {
	var observed int
	c := newTestCoordinator(t, ObserverFunc(func(string, models.Outcome) { observed++ }))

	tmpDir := t.TempDir()
	report, err := c.Run(context.Background(), models.Request{
		InputDir:  filepath.Join(tmpDir, "missing"),
		OutputDir: filepath.Join(tmpDir, "out"),
	})

	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("Expected ErrSourceNotFound, got %v", err)
	}
	if report != nil {
		t.Error("Expected no report")
	}
	if observed != 0 {
		t.Errorf("Expected no outcomes, got %d", observed)
	}
	if _, statErr := os.Stat(filepath.Join(tmpDir, "out")); !os.IsNotExist(statErr) {
		t.Error("Expected output folder not to be created")
	}
}

func TestCoordinator_Run_SourceIsFile(t *testing.T) {
	c := newTestCoordinator(t, nil)

	path := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, path, 2, 2)

	_, err := c.Run(context.Background(), models.Request{InputDir: path, OutputDir: t.TempDir()})
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("Expected ErrSourceNotFound, got %v", err)
	}
}

func TestCoordinator_Run_MixedFolder(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "nested", "out")

	writePNG(t, filepath.Join(inDir, "wide.png"), 100, 50)
	writePNG(t, filepath.Join(inDir, "UPPER.PNG"), 40, 40)
	if err := os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inDir, "spoofed.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(inDir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	report, err := c.Run(context.Background(), models.Request{
		InputDir:        inDir,
		OutputDir:       outDir,
		Width:           uintPtr(20),
		KeepAspectRatio: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Outcomes) != 5 {
		t.Fatalf("Expected 5 outcomes, got %d", len(report.Outcomes))
	}
	if report.OutputDir != outDir {
		t.Errorf("Expected output dir %s, got %s", outDir, report.OutputDir)
	}

	wide := outcomeFor(t, report, "wide.png")
	if wide.Status() != models.StatusSuccess {
		t.Fatalf("Expected wide.png success, got %s: %+v", wide.Status(), wide)
	}
	if b := pngBounds(t, filepath.Join(outDir, "wide.png")); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("Expected 20x10, got %dx%d", b.Dx(), b.Dy())
	}

	if o := outcomeFor(t, report, "UPPER.PNG"); o.Status() != models.StatusSuccess {
		t.Errorf("Expected UPPER.PNG success, got %s", o.Status())
	}

	notes := outcomeFor(t, report, "notes.txt")
	if u, ok := notes.(models.Unsupported); !ok || u.Reason != msgUnsupported {
		t.Errorf("Expected extension-filtered unsupported outcome, got %+v", notes)
	}

	if o := outcomeFor(t, report, "subdir"); o.Status() != models.StatusUnsupported {
		t.Errorf("Expected subdir to be unsupported, got %s", o.Status())
	}

	spoofed := outcomeFor(t, report, "spoofed.png")
	if spoofed.Status() != models.StatusUnsupported {
		t.Errorf("Expected spoofed.png unsupported (not a decode error), got %+v", spoofed)
	}
	if _, err := os.Stat(filepath.Join(outDir, "spoofed.png")); !os.IsNotExist(err) {
		t.Error("Expected no output for spoofed.png")
	}
}

func TestCoordinator_Run_CorruptAndUnreadableSourcesFail(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := t.TempDir()

	// A valid PNG signature followed by garbage passes sniffing but not decoding.
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xAB}, 64)...)
	if err := os.WriteFile(filepath.Join(inDir, "corrupt.png"), corrupt, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(inDir, "gone.png"), filepath.Join(inDir, "dangling.png")); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}

	report, err := c.Run(context.Background(), models.Request{
		InputDir:  inDir,
		OutputDir: outDir,
		Width:     uintPtr(10),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tests := []struct {
		name string
		want error
	}{
		{"corrupt.png", converter.ErrDecode},
		{"dangling.png", validation.ErrUnreadableFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := outcomeFor(t, report, tt.name).(models.Failed)
			if !ok {
				t.Fatalf("Expected a failed outcome for %s", tt.name)
			}
			if !errors.Is(f.Err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, f.Err)
			}
			if _, err := os.Stat(filepath.Join(outDir, tt.name)); !os.IsNotExist(err) {
				t.Errorf("Expected no output for %s", tt.name)
			}
		})
	}
}

func TestCoordinator_Run_MissingDimension(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := t.TempDir()
	for i := 0; i < 3; i++ {
		writePNG(t, filepath.Join(inDir, fmt.Sprintf("img%d.png", i)), 10, 10)
	}

	report, err := c.Run(context.Background(), models.Request{
		InputDir:        inDir,
		OutputDir:       outDir,
		KeepAspectRatio: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, o := range report.Outcomes {
		f, ok := o.(models.Failed)
		if !ok {
			t.Fatalf("Expected failed outcome, got %+v", o)
		}
		if !errors.Is(f.Err, planner.ErrMissingDimension) {
			t.Errorf("Expected ErrMissingDimension, got %v", f.Err)
		}
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("Expected empty output folder, got %d entries", len(entries))
	}
}

func TestCoordinator_Run_ZeroDimensionFails(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	writePNG(t, filepath.Join(inDir, "strip.png"), 1000, 1)

	report, err := c.Run(context.Background(), models.Request{
		InputDir:        inDir,
		OutputDir:       t.TempDir(),
		Width:           uintPtr(200),
		KeepAspectRatio: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	f, ok := report.Outcomes[0].(models.Failed)
	if !ok || !errors.Is(f.Err, converter.ErrInvalidDimension) {
		t.Fatalf("Expected ErrInvalidDimension failure, got %+v", report.Outcomes[0])
	}
}

func TestCoordinator_Run_SkipExistingLeavesFileUntouched(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := t.TempDir()
	writePNG(t, filepath.Join(inDir, "photo.png"), 30, 30)

	corrupt := []byte("existing bytes that are not an image")
	existing := filepath.Join(outDir, "photo.png")
	if err := os.WriteFile(existing, corrupt, 0644); err != nil {
		t.Fatal(err)
	}

	report, err := c.Run(context.Background(), models.Request{
		InputDir:  inDir,
		OutputDir: outDir,
		Width:     uintPtr(10),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s, ok := report.Outcomes[0].(models.Skipped)
	if !ok {
		t.Fatalf("Expected skipped outcome, got %+v", report.Outcomes[0])
	}
	if s.DestinationPath != existing || s.Reason != msgExists {
		t.Errorf("Unexpected skipped outcome: %+v", s)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, corrupt) {
		t.Error("Expected existing destination to be untouched")
	}
}

func TestCoordinator_Run_SkipDoesNotSniffSource(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := t.TempDir()
	// An unreadable source would fail if it were opened.
	src := filepath.Join(inDir, "locked.png")
	writePNG(t, src, 4, 4)
	if err := os.Chmod(src, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(src, 0644) })
	if err := os.WriteFile(filepath.Join(outDir, "locked.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := c.Run(context.Background(), models.Request{InputDir: inDir, OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Outcomes[0].Status() != models.StatusSkipped {
		t.Errorf("Expected skipped, got %+v", report.Outcomes[0])
	}
}

func TestCoordinator_Run_OverwriteReplacesExisting(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := t.TempDir()
	writePNG(t, filepath.Join(inDir, "photo.png"), 30, 30)
	if err := os.WriteFile(filepath.Join(outDir, "photo.png"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := c.Run(context.Background(), models.Request{
		InputDir:  inDir,
		OutputDir: outDir,
		Width:     uintPtr(10),
		Height:    uintPtr(15),
		Overwrite: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Outcomes[0].Status() != models.StatusSuccess {
		t.Fatalf("Expected success, got %+v", report.Outcomes[0])
	}
	if b := pngBounds(t, filepath.Join(outDir, "photo.png")); b.Dx() != 10 || b.Dy() != 15 {
		t.Errorf("Expected 10x15, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCoordinator_Run_Idempotent(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	outDir := t.TempDir()
	for i := 0; i < 5; i++ {
		writePNG(t, filepath.Join(inDir, fmt.Sprintf("p%d.png", i)), 20+i, 20)
	}
	req := models.Request{InputDir: inDir, OutputDir: outDir, Height: uintPtr(8), KeepAspectRatio: true}

	if _, err := c.Run(context.Background(), req); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	first := snapshot(t, outDir)

	report, err := c.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	for _, o := range report.Outcomes {
		if o.Status() != models.StatusSkipped {
			t.Errorf("Expected skipped on second run, got %s for %s", o.Status(), o.Source())
		}
	}

	second := snapshot(t, outDir)
	if len(first) != len(second) {
		t.Fatalf("Output file count changed: %d -> %d", len(first), len(second))
	}
	for name, data := range first {
		if !bytes.Equal(data, second[name]) {
			t.Errorf("Output %s changed between runs", name)
		}
	}
}

func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		out[e.Name()] = data
	}
	return out
}

func TestCoordinator_Run_OutcomeCount(t *testing.T) {
	for _, n := range []int{0, 1, 500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var mu sync.Mutex
			seen := make(map[string]int)
			c := newTestCoordinator(t, ObserverFunc(func(_ string, o models.Outcome) {
				mu.Lock()
				seen[o.Source()]++
				mu.Unlock()
			}))

			inDir := t.TempDir()
			outDir := t.TempDir()
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("img%04d.png", i)
				if i%2 == 0 {
					// Mix in cheap non-image files to keep the run fast.
					name = fmt.Sprintf("doc%04d.txt", i)
					if err := os.WriteFile(filepath.Join(inDir, name), []byte("x"), 0644); err != nil {
						t.Fatal(err)
					}
					continue
				}
				writePNG(t, filepath.Join(inDir, name), 2, 2)
			}

			report, err := c.Run(context.Background(), models.Request{InputDir: inDir, OutputDir: outDir})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if len(report.Outcomes) != n {
				t.Fatalf("Expected %d outcomes, got %d", n, len(report.Outcomes))
			}
			if len(seen) != n {
				t.Errorf("Expected %d distinct observed sources, got %d", n, len(seen))
			}
			for src, count := range seen {
				if count != 1 {
					t.Errorf("Source %s observed %d times", src, count)
				}
			}
			for i := 1; i < len(report.Outcomes); i++ {
				if report.Outcomes[i-1].Source() > report.Outcomes[i].Source() {
					t.Fatalf("Outcomes not sorted at %d", i)
				}
			}
		})
	}
}

func TestCoordinator_Run_CancelledContextStillCompletes(t *testing.T) {
	c := newTestCoordinator(t, nil)

	inDir := t.TempDir()
	for i := 0; i < 10; i++ {
		writePNG(t, filepath.Join(inDir, fmt.Sprintf("p%d.png", i)), 4, 4)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := c.Run(ctx, models.Request{InputDir: inDir, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Outcomes) != 10 {
		t.Errorf("Expected 10 outcomes, got %d", len(report.Outcomes))
	}
}

func TestCoordinator_Run_UsesBatchIDFromContext(t *testing.T) {
	var got string
	c := newTestCoordinator(t, ObserverFunc(func(id string, _ models.Outcome) { got = id }))

	inDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(inDir, "a.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	report, err := c.Run(WithBatchID(context.Background(), "batch-42"), models.Request{InputDir: inDir, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.BatchID != "batch-42" || got != "batch-42" {
		t.Errorf("Expected batch-42, got report %q observer %q", report.BatchID, got)
	}
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs := NewLogObserver(zap.New(core))

	obs.Observe("b1", models.Success{SourcePath: "/in/a.png", DestinationPath: "/out/a.png"})
	obs.Observe("b1", models.Skipped{SourcePath: "/in/b.png"})
	obs.Observe("b1", models.Unsupported{SourcePath: "/in/c.txt"})
	obs.Observe("b1", models.Failed{SourcePath: "/in/d.png", Err: errors.New("boom")})

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("Expected 4 log entries, got %d", len(entries))
	}

	wantMessages := []string{"Resized", "Skipped", "Unsupported format", "Failed"}
	for i, want := range wantMessages {
		if entries[i].Message != want {
			t.Errorf("Entry %d: expected %q, got %q", i, want, entries[i].Message)
		}
	}

	ctx := entries[0].ContextMap()
	if ctx["source"] != "/in/a.png" || ctx["destination"] != "/out/a.png" || ctx["batch_id"] != "b1" {
		t.Errorf("Unexpected fields on success entry: %v", ctx)
	}
}
