package pdfops

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	log "github.com/sirupsen/logrus"

	"go-shipdocs/internal/config"
)

// OverlayResult reports what RenderOverlays drew onto the target page.
type OverlayResult struct {
	OverlaysAdded  int
	SignatureAdded bool
}

// RenderOverlays stamps the configured text fields and, when available, the
// signature image onto the target page of inputPath and writes the result to
// outputPath.
//
// Field specs whose Name has no value in values are skipped with a warning.
// A missing signature image is skipped with a log entry; a signature image
// with an unsupported extension fails the file. A document with fewer pages
// than cfg.TargetPage fails with *PageCountError.
func RenderOverlays(inputPath, outputPath string, cfg config.OverlayConfig, values map[string]string) (OverlayResult, error) {
	var res OverlayResult

	pageCount, err := PageCount(inputPath)
	if err != nil {
		return res, err
	}
	if pageCount < cfg.TargetPage {
		return res, &PageCountError{Path: inputPath, PageCount: pageCount, TargetPage: cfg.TargetPage}
	}

	// Stamp onto a copy so the source stays untouched.
	if err := CopyFile(inputPath, outputPath); err != nil {
		return res, fmt.Errorf("failed to copy PDF: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pages := []string{fmt.Sprintf("%d", cfg.TargetPage)}

	for _, field := range cfg.Fields {
		text, ok := values[field.Name]
		if !ok {
			log.WithField("field", field.Name).Warn("unknown overlay field, skipping")
			continue
		}

		desc := fmt.Sprintf("font:Helvetica, points:%d, scale:1 abs, pos:bl, off:%.2f %.2f, rot:0, op:1, fillc:#000000",
			field.FontSize, field.X, field.Y)
		wm, err := pdfapi.TextWatermark(text, desc, true, false, types.POINTS)
		if err != nil {
			os.Remove(outputPath)
			return res, fmt.Errorf("failed to build text overlay %q: %w", field.Name, err)
		}
		if err := pdfapi.AddWatermarksFile(outputPath, "", pages, wm, conf); err != nil {
			os.Remove(outputPath)
			return res, fmt.Errorf("failed to apply text overlay %q: %w", field.Name, err)
		}
		res.OverlaysAdded++
	}

	added, err := stampSignature(outputPath, pages, cfg.Signature, conf)
	if err != nil {
		os.Remove(outputPath)
		return OverlayResult{}, err
	}
	if added {
		res.OverlaysAdded++
		res.SignatureAdded = true
	}

	return res, nil
}

// stampSignature applies the signature image onto the selected pages of path
// in place. Returns false without error when no image is configured or the
// file does not exist.
func stampSignature(path string, pages []string, sig config.SignatureSpec, conf *model.Configuration) (bool, error) {
	if sig.ImagePath == "" {
		return false, nil
	}
	if _, err := os.Stat(sig.ImagePath); err != nil {
		log.WithField("signature", sig.ImagePath).Info("signature image not found, skipping")
		return false, nil
	}

	switch strings.ToLower(filepath.Ext(sig.ImagePath)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return false, &UnsupportedImageFormatError{Path: sig.ImagePath}
	}

	scale, err := signatureScale(sig)
	if err != nil {
		return false, fmt.Errorf("failed to read signature image %s: %w", sig.ImagePath, err)
	}

	// pos:full with manual offsets gives absolute placement in points.
	desc := fmt.Sprintf("scale:%.4f, pos:full, rot:0, op:1", scale)
	wm, err := pdfcpu.ParseImageWatermarkDetails(sig.ImagePath, desc, true, types.POINTS)
	if err != nil {
		return false, fmt.Errorf("failed to parse signature watermark: %w", err)
	}
	wm.Dx = sig.X
	wm.Dy = sig.Y

	if err := pdfapi.AddWatermarksFile(path, "", pages, wm, conf); err != nil {
		return false, fmt.Errorf("failed to apply signature: %w", err)
	}
	return true, nil
}

// signatureScale derives the stamp scale factor from the image's natural
// pixel size so the rendered width matches sig.Width points.
func signatureScale(sig config.SignatureSpec) (float64, error) {
	if sig.Width <= 0 {
		return 1.0, nil
	}
	f, err := os.Open(sig.ImagePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	imgCfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, err
	}
	if imgCfg.Width <= 0 {
		return 1.0, nil
	}
	return sig.Width / float64(imgCfg.Width), nil
}
