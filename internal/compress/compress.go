// Package compress squeezes oversized PDFs under a size budget by trying a
// fixed sequence of strategies: ghostscript at screen then ebook quality,
// ImageMagick at low then medium density, and finally pdfcpu's structural
// optimizer. The first strategy whose output fits wins; when none does the
// original bytes pass through unchanged as an accepted degraded outcome.
package compress

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go-shipdocs/internal/pdfops"
)

// AttemptTimeout bounds each external tool invocation. A hung process counts
// as a failed attempt, not a stalled batch.
const AttemptTimeout = 30 * time.Second

const bytesPerMB = 1024 * 1024

// Result describes one compression outcome for one file.
type Result struct {
	Success        bool
	OriginalSizeMB float64
	FinalSizeMB    float64
	Method         string
	Ratio          float64
}

// strategy is one attempt at shrinking a PDF. Attempts are independent: a
// strategy writes its candidate to outputPath and the pipeline discards it
// if it misses the budget.
type strategy interface {
	Name() string
	Attempt(ctx context.Context, inputPath, outputPath string) error
}

// Pipeline runs the strategy table against a size budget.
type Pipeline struct {
	TargetSizeMB float64
	strategies   []strategy
}

// NewPipeline returns a pipeline with the standard strategy order.
func NewPipeline(targetSizeMB float64) *Pipeline {
	return &Pipeline{
		TargetSizeMB: targetSizeMB,
		strategies: []strategy{
			&ghostscript{name: "ghostscript-screen", preset: "/screen"},
			&ghostscript{name: "ghostscript-ebook", preset: "/ebook"},
			&imagemagick{name: "imagemagick-low", density: 72, quality: 40},
			&imagemagick{name: "imagemagick-medium", density: 110, quality: 60},
			&pdfcpuOptimize{},
		},
	}
}

// Compress writes a copy of inputPath to outputPath that is under the size
// budget when any strategy manages it. A file already under budget is copied
// through with Method "none". When every strategy fails the original is
// copied through with Method "fallback" and Success false; callers must
// treat that as degraded output, not as an error.
func (p *Pipeline) Compress(ctx context.Context, inputPath, outputPath string) (Result, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat %s: %w", inputPath, err)
	}
	originalSize := info.Size()
	targetBytes := int64(p.TargetSizeMB * bytesPerMB)

	res := Result{
		OriginalSizeMB: toMB(originalSize),
		FinalSizeMB:    toMB(originalSize),
		Ratio:          1.0,
	}

	if originalSize <= targetBytes {
		if err := pdfops.CopyFile(inputPath, outputPath); err != nil {
			return Result{}, err
		}
		res.Success = true
		res.Method = "none"
		return res, nil
	}

	for _, s := range p.strategies {
		size, err := p.runAttempt(ctx, s, inputPath, outputPath)
		if err != nil {
			log.WithFields(log.Fields{
				"strategy": s.Name(),
				"file":     filepath.Base(inputPath),
			}).WithError(err).Debug("compression attempt failed")
			continue
		}
		if size > targetBytes || size > originalSize {
			// Missed the budget (or grew); discard and move on.
			os.Remove(outputPath)
			continue
		}
		res.Success = true
		res.Method = s.Name()
		res.FinalSizeMB = toMB(size)
		res.Ratio = float64(originalSize) / float64(size)
		log.WithFields(log.Fields{
			"file":       filepath.Base(inputPath),
			"method":     res.Method,
			"originalMB": res.OriginalSizeMB,
			"finalMB":    res.FinalSizeMB,
		}).Info("compressed under target")
		return res, nil
	}

	// All strategies exhausted: pass the original through.
	if err := pdfops.CopyFile(inputPath, outputPath); err != nil {
		return Result{}, err
	}
	res.Method = "fallback"
	log.WithFields(log.Fields{
		"file":     filepath.Base(inputPath),
		"sizeMB":   res.OriginalSizeMB,
		"targetMB": p.TargetSizeMB,
	}).Warn("no compression strategy met the size budget, keeping original")
	return res, nil
}

// runAttempt executes one strategy with the attempt timeout and returns the
// candidate's size.
func (p *Pipeline) runAttempt(ctx context.Context, s strategy, inputPath, outputPath string) (int64, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, AttemptTimeout)
	defer cancel()

	if err := s.Attempt(attemptCtx, inputPath, outputPath); err != nil {
		os.Remove(outputPath)
		return 0, err
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, fmt.Errorf("strategy %s produced no output: %w", s.Name(), err)
	}
	return info.Size(), nil
}

func toMB(size int64) float64 {
	mb := float64(size) / bytesPerMB
	return float64(int(mb*100+0.5)) / 100
}

// Tool availability is probed once per process and cached.
var (
	probeOnce sync.Once
	gsPath    string
	magickCmd []string
)

func probeTools() {
	probeOnce.Do(func() {
		if path, err := exec.LookPath("gs"); err == nil {
			gsPath = path
		}
		// ImageMagick 7 ships "magick", older installs "convert".
		if path, err := exec.LookPath("magick"); err == nil {
			magickCmd = []string{path}
		} else if path, err := exec.LookPath("convert"); err == nil {
			magickCmd = []string{path}
		}
		log.WithFields(log.Fields{
			"ghostscript": gsPath != "",
			"imagemagick": len(magickCmd) > 0,
		}).Info("probed compression tools")
	})
}

// ghostscript rasterizes through pdfwrite with a quality preset.
type ghostscript struct {
	name   string
	preset string
}

func (g *ghostscript) Name() string { return g.name }

func (g *ghostscript) Attempt(ctx context.Context, inputPath, outputPath string) error {
	probeTools()
	if gsPath == "" {
		return fmt.Errorf("ghostscript not installed")
	}
	cmd := exec.CommandContext(ctx, gsPath,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS="+g.preset,
		"-dNOPAUSE", "-dQUIET", "-dBATCH",
		"-sOutputFile="+outputPath,
		inputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("gs %s failed: %v, output: %s", g.preset, err, out)
	}
	return nil
}

// imagemagick re-renders the document at a reduced density and JPEG quality.
type imagemagick struct {
	name    string
	density int
	quality int
}

func (m *imagemagick) Name() string { return m.name }

func (m *imagemagick) Attempt(ctx context.Context, inputPath, outputPath string) error {
	probeTools()
	if len(magickCmd) == 0 {
		return fmt.Errorf("imagemagick not installed")
	}
	args := []string{
		"-density", fmt.Sprintf("%d", m.density),
		inputPath,
		"-quality", fmt.Sprintf("%d", m.quality),
		"-compress", "jpeg",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, magickCmd[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("imagemagick failed: %v, output: %s", err, out)
	}
	return nil
}

// pdfcpuOptimize is the in-process structural pass: garbage collection and
// stream recompression without touching image resolution.
type pdfcpuOptimize struct{}

func (o *pdfcpuOptimize) Name() string { return "pdfcpu-optimize" }

func (o *pdfcpuOptimize) Attempt(ctx context.Context, inputPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return pdfops.Optimize(inputPath, outputPath)
}
