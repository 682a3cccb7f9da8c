// Package pdfops wraps the pdfcpu operations go-shipdocs needs: page counts,
// merging, page collection, overlay stamping and plain-text extraction.
//
// All functions operate on files. Callers are expected to work inside a
// job-scoped directory (see internal/job) so that concurrent runs never
// touch each other's intermediates.
package pdfops

import (
	"fmt"
	"io"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := pdfapi.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count of %s: %w", path, err)
	}
	return n, nil
}

// MergeFiles merges the given PDFs, in order, into a single output file.
func MergeFiles(files []string, outputPath string) error {
	config := model.NewDefaultConfiguration()
	if err := pdfapi.MergeCreateFile(files, outputPath, false, config); err != nil {
		return fmt.Errorf("failed to merge %d files into %s: %w", len(files), outputPath, err)
	}
	return nil
}

// CollectPages writes the selected 1-based pages of inputPath, in the given
// order, to outputPath.
func CollectPages(inputPath, outputPath string, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages selected from %s", inputPath)
	}
	selected := make([]string, len(pages))
	for i, p := range pages {
		selected[i] = fmt.Sprintf("%d", p)
	}
	config := model.NewDefaultConfiguration()
	if err := pdfapi.CollectFile(inputPath, outputPath, selected, config); err != nil {
		return fmt.Errorf("failed to collect pages from %s: %w", inputPath, err)
	}
	return nil
}

// Optimize rewrites the PDF with pdfcpu's structural optimizer: unused
// objects dropped and streams recompressed.
func Optimize(inputPath, outputPath string) error {
	config := model.NewDefaultConfiguration()
	if err := pdfapi.OptimizeFile(inputPath, outputPath, config); err != nil {
		return fmt.Errorf("failed to optimize %s: %w", inputPath, err)
	}
	return nil
}

// CopyFile copies a file from src to dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
