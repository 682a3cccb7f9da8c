package pdfops

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-shipdocs/internal/config"
	"go-shipdocs/internal/pdftest"
)

func overlayConfig(targetPage int, sigPath string) config.OverlayConfig {
	return config.OverlayConfig{
		TargetPage: targetPage,
		Fields: []config.FieldSpec{
			{Name: config.FieldMVField, X: 125, Y: 469, FontSize: 12},
			{Name: config.FieldContainerNumber, X: 125, Y: 442, FontSize: 12},
			{Name: config.FieldTodaysDate, X: 448, Y: 85, FontSize: 12},
		},
		Signature: config.SignatureSpec{ImagePath: sigPath, X: 340, Y: 108, Width: 120, Height: 40},
	}
}

func testValues() map[string]string {
	return map[string]string{
		config.FieldMVField:         "Test Ship 01.02.2025",
		config.FieldContainerNumber: "ABCD1234567",
		config.FieldTodaysDate:      "15/06/2025",
	}
}

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "three.pdf")
	pdftest.WritePDF(t, path, "one", "two", "three")

	n, err := PageCount(path)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 3 {
		t.Errorf("got %d pages, want 3", n)
	}
}

func TestRenderOverlays(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	pdftest.WritePDF(t, in, "page one")

	t.Run("text fields without signature", func(t *testing.T) {
		out := filepath.Join(dir, "out1.pdf")
		res, err := RenderOverlays(in, out, overlayConfig(1, ""), testValues())
		if err != nil {
			t.Fatalf("RenderOverlays: %v", err)
		}
		if res.OverlaysAdded != 3 {
			t.Errorf("OverlaysAdded = %d, want 3", res.OverlaysAdded)
		}
		if res.SignatureAdded {
			t.Error("no signature configured, but SignatureAdded set")
		}
		if n, _ := PageCount(out); n != 1 {
			t.Errorf("output page count = %d, want 1", n)
		}
	})

	t.Run("with signature image", func(t *testing.T) {
		sig := filepath.Join(dir, "sig.png")
		pdftest.WritePNG(t, sig, 240, 80)

		out := filepath.Join(dir, "out2.pdf")
		res, err := RenderOverlays(in, out, overlayConfig(1, sig), testValues())
		if err != nil {
			t.Fatalf("RenderOverlays: %v", err)
		}
		if res.OverlaysAdded != 4 {
			t.Errorf("OverlaysAdded = %d, want 3 fields + 1 signature", res.OverlaysAdded)
		}
		if !res.SignatureAdded {
			t.Error("expected SignatureAdded")
		}
	})

	t.Run("missing signature file is skipped silently", func(t *testing.T) {
		out := filepath.Join(dir, "out3.pdf")
		res, err := RenderOverlays(in, out, overlayConfig(1, filepath.Join(dir, "nope.png")), testValues())
		if err != nil {
			t.Fatalf("RenderOverlays: %v", err)
		}
		if res.OverlaysAdded != 3 {
			t.Errorf("OverlaysAdded = %d, want 3", res.OverlaysAdded)
		}
	})

	t.Run("unsupported signature format fails the file", func(t *testing.T) {
		sig := filepath.Join(dir, "sig.gif")
		if err := os.WriteFile(sig, []byte("GIF89a"), 0644); err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(dir, "out4.pdf")
		_, err := RenderOverlays(in, out, overlayConfig(1, sig), testValues())
		if !errors.Is(err, ErrUnsupportedImage) {
			t.Fatalf("err = %v, want ErrUnsupportedImage", err)
		}
		var ufe *UnsupportedImageFormatError
		if !errors.As(err, &ufe) {
			t.Fatal("expected *UnsupportedImageFormatError")
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Error("expected no output file after failure")
		}
	})

	t.Run("too few pages", func(t *testing.T) {
		out := filepath.Join(dir, "out5.pdf")
		_, err := RenderOverlays(in, out, overlayConfig(9, ""), testValues())
		if !errors.Is(err, ErrPageCount) {
			t.Fatalf("err = %v, want ErrPageCount", err)
		}
		var pce *PageCountError
		if !errors.As(err, &pce) {
			t.Fatal("expected *PageCountError")
		}
		if pce.PageCount != 1 || pce.TargetPage != 9 {
			t.Errorf("unexpected error detail: %+v", pce)
		}
	})

	t.Run("unknown field names are skipped", func(t *testing.T) {
		cfg := overlayConfig(1, "")
		cfg.Fields = append(cfg.Fields, config.FieldSpec{Name: "mysteryField", X: 10, Y: 10, FontSize: 8})
		out := filepath.Join(dir, "out6.pdf")
		res, err := RenderOverlays(in, out, cfg, testValues())
		if err != nil {
			t.Fatalf("RenderOverlays: %v", err)
		}
		if res.OverlaysAdded != 3 {
			t.Errorf("OverlaysAdded = %d, want 3 (unknown skipped)", res.OverlaysAdded)
		}
	})
}

func TestRenderOverlaysStablePlacement(t *testing.T) {
	// Re-running the same overlay run must apply the same overlays again:
	// same count, same page count, non-empty output both times.
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	pdftest.WritePDF(t, in, "alpha", "beta")

	cfg := overlayConfig(2, "")
	out1 := filepath.Join(dir, "a.pdf")
	out2 := filepath.Join(dir, "b.pdf")

	r1, err := RenderOverlays(in, out1, cfg, testValues())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := RenderOverlays(in, out2, cfg, testValues())
	if err != nil {
		t.Fatal(err)
	}
	if r1.OverlaysAdded != r2.OverlaysAdded {
		t.Errorf("overlay count varies across runs: %d vs %d", r1.OverlaysAdded, r2.OverlaysAdded)
	}
	n1, _ := PageCount(out1)
	n2, _ := PageCount(out2)
	if n1 != n2 || n1 != 2 {
		t.Errorf("page counts differ: %d vs %d", n1, n2)
	}
}

func TestMergeAndCollect(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	pdftest.WritePDF(t, a, "first doc page 1", "first doc page 2")
	pdftest.WritePDF(t, b, "second doc page 1")

	merged := filepath.Join(dir, "merged.pdf")
	if err := MergeFiles([]string{a, b}, merged); err != nil {
		t.Fatalf("MergeFiles: %v", err)
	}
	if n, _ := PageCount(merged); n != 3 {
		t.Errorf("merged page count = %d, want 3", n)
	}

	single := filepath.Join(dir, "single.pdf")
	if err := CollectPages(a, single, []int{2}); err != nil {
		t.Fatalf("CollectPages: %v", err)
	}
	if n, _ := PageCount(single); n != 1 {
		t.Errorf("collected page count = %d, want 1", n)
	}

	if err := CollectPages(a, single, nil); err == nil {
		t.Error("expected error for empty page selection")
	}
}

func TestPageTexts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	pdftest.WritePDF(t, path, "Reference 123/456/789", "", "Bill of Lading 987-654-321")

	texts, err := PageTexts(path)
	if err != nil {
		t.Fatalf("PageTexts: %v", err)
	}
	if len(texts) != 3 {
		t.Fatalf("got %d pages, want 3", len(texts))
	}
	if !strings.Contains(texts[0], "123/456/789") {
		t.Errorf("page 1 text = %q", texts[0])
	}
	if texts[1] != "" {
		t.Errorf("blank page text = %q", texts[1])
	}
	if !strings.Contains(texts[2], "987-654-321") {
		t.Errorf("page 3 text = %q", texts[2])
	}
}

func TestDocumentText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	pdftest.WritePDF(t, path, "Container/Trailer: ABCD1234567", "Arriving per Test Ship (IMO123) on 01/02/2025")

	text, err := DocumentText(path)
	if err != nil {
		t.Fatalf("DocumentText: %v", err)
	}
	for _, want := range []string{"ABCD1234567", "Test Ship"} {
		if !strings.Contains(text, want) {
			t.Errorf("document text missing %q: %q", want, text)
		}
	}
}
