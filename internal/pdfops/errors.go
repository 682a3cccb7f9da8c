package pdfops

import (
	"errors"
	"fmt"
)

// Sentinel errors for overlay failure conditions.
var (
	ErrPageCount        = errors.New("pdfops: document has fewer pages than the target page")
	ErrUnsupportedImage = errors.New("pdfops: unsupported signature image format")
)

// PageCountError reports a document too short for the configured target page.
// It is fatal to the affected file only, never to the surrounding batch.
type PageCountError struct {
	Path       string
	PageCount  int
	TargetPage int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("pdfops: %s has %d pages, overlay target is page %d", e.Path, e.PageCount, e.TargetPage)
}

func (e *PageCountError) Unwrap() error { return ErrPageCount }

// UnsupportedImageFormatError reports a signature image with an extension
// other than .png, .jpg or .jpeg.
type UnsupportedImageFormatError struct {
	Path string
}

func (e *UnsupportedImageFormatError) Error() string {
	return fmt.Sprintf("pdfops: signature image %s is not PNG or JPEG", e.Path)
}

func (e *UnsupportedImageFormatError) Unwrap() error { return ErrUnsupportedImage }
