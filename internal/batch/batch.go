// Package batch drives overlay rendering and compression across a directory
// of PDFs.
//
// Shipment data is extracted once, from the first file in lexicographic
// order, and applied to every document in the run. Individual file failures
// are recorded and the batch carries on; only a missing input set or an
// unreadable first document aborts the whole run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"go-shipdocs/internal/compress"
	"go-shipdocs/internal/config"
	"go-shipdocs/internal/pdfops"
	"go-shipdocs/internal/shipment"
)

// CompletedMarker tags output filenames so a later run never reprocesses
// them as inputs.
const CompletedMarker = "_complete"

// Batch-fatal errors.
var (
	ErrNoInputFiles    = errors.New("batch: no candidate PDF files found")
	ErrShipmentExtract = errors.New("batch: failed to extract shipment data from first document")
)

// FileOutcome is the per-file audit record.
type FileOutcome struct {
	InputPath     string
	OutputPath    string
	OverlaysAdded int
	Compression   compress.Result
	Err           error
}

// Result summarizes one batch run.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
	Files     []FileOutcome
	Shipment  shipment.Data
}

// Compressor is the compression pipeline contract, substitutable in tests.
type Compressor interface {
	Compress(ctx context.Context, inputPath, outputPath string) (compress.Result, error)
}

// Processor runs batches under one configuration.
type Processor struct {
	Config     config.Config
	Compressor Compressor
}

// NewProcessor wires the standard compression pipeline to cfg.
func NewProcessor(cfg config.Config) *Processor {
	return &Processor{
		Config:     cfg,
		Compressor: compress.NewPipeline(cfg.TargetSizeMB),
	}
}

// ProcessBatch overlays and compresses every candidate PDF in inputDir,
// writing "<basename>_complete.pdf" files into outputDir. Cancellation is
// cooperative: the context is checked before each file, never mid-file.
func (p *Processor) ProcessBatch(ctx context.Context, inputDir, outputDir string) (*Result, error) {
	files, err := discover(inputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, inputDir)
	}

	data, err := shipment.ExtractFromFile(files[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrShipmentExtract, files[0], err)
	}
	log.WithFields(log.Fields{
		"container": data.ContainerNumber,
		"vessel":    data.ShipName,
		"arrival":   data.ArrivalDate,
	}).Info("extracted shipment data")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res := &Result{Shipment: data}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			log.WithField("remaining", len(files)-res.Processed).Warn("batch cancelled")
			break
		}
		outcome := p.processFile(ctx, file, outputDir, data)
		res.Processed++
		if outcome.Err != nil {
			res.Failed++
			log.WithField("file", filepath.Base(file)).WithError(outcome.Err).Error("file failed")
		} else {
			res.Succeeded++
		}
		res.Files = append(res.Files, outcome)
	}

	// Report order is the sorted input order, independent of any future
	// parallelism.
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].InputPath < res.Files[j].InputPath })
	return res, nil
}

// processFile renders overlays and compresses one document. Failures are
// captured in the outcome, isolating them from the rest of the batch.
func (p *Processor) processFile(ctx context.Context, inputPath, outputDir string, data shipment.Data) FileOutcome {
	outcome := FileOutcome{InputPath: inputPath}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+CompletedMarker+".pdf")
	outcome.OutputPath = outputPath

	overlaid := outputPath + ".overlay.tmp"
	defer os.Remove(overlaid)

	ov, err := pdfops.RenderOverlays(inputPath, overlaid, p.Config.Overlay, data.Values())
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.OverlaysAdded = ov.OverlaysAdded

	cres, err := p.Compressor.Compress(ctx, overlaid, outputPath)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Compression = cres
	return outcome
}

// discover lists candidate PDFs in dir, lexicographically sorted, skipping
// anything already carrying the completed marker.
func discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if strings.Contains(strings.ToLower(name), CompletedMarker) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
