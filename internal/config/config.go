// Package config holds the overlay and processing configuration for go-shipdocs.
//
// Configuration values are plain immutable structs: build one with Default(),
// optionally layer environment overrides on top with FromEnv(), and pass the
// result by value into each batch or merge run. Nothing in this package is
// mutated after construction, so concurrent jobs can share a single config.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Field names recognized by the overlay renderer. A FieldSpec whose Name is
// not one of these is skipped with a warning.
const (
	FieldMVField         = "mvField"
	FieldContainerNumber = "containerNumber"
	FieldTodaysDate      = "todaysDate"
)

// Naming formats for merged client bundles.
const (
	NamingNameRef = "name_ref"
	NamingRefName = "ref_name"
)

// DefaultPageOrder sequences advice pages, then bills of lading, then
// customer documents inside each merged bundle.
const DefaultPageOrder = "advice_bill_customer"

// FieldSpec positions one text overlay on the target page. Coordinates are
// PDF points with the origin at the bottom-left corner of the page.
type FieldSpec struct {
	Name        string
	X           float64
	Y           float64
	FontSize    int
	Description string
}

// SignatureSpec positions the signature image on the target page. Width and
// Height are the rendered size in points; the image keeps its natural aspect
// ratio scaled to Width.
type SignatureSpec struct {
	ImagePath string
	X         float64
	Y         float64
	Width     float64
	Height    float64
}

// OverlayConfig is everything the overlay renderer needs for one document.
type OverlayConfig struct {
	TargetPage int // 1-based
	Fields     []FieldSpec
	Signature  SignatureSpec
}

// Settings drives merge naming, page ordering and the optional keyword scan.
type Settings struct {
	NamingFormat string
	PageOrder    string
	Keywords     []string
}

// Config is the top-level configuration for a processing run.
type Config struct {
	Overlay      OverlayConfig
	Settings     Settings
	TargetSizeMB float64
	OutputDir    string
}

// Default returns the stock configuration: overlays on page 9, the three
// shipping fields at their form coordinates, and a 1.1 MB size budget.
func Default() Config {
	return Config{
		Overlay: OverlayConfig{
			TargetPage: 9,
			Fields: []FieldSpec{
				{Name: FieldMVField, X: 125, Y: 469, FontSize: 12, Description: "Vessel name and arrival date"},
				{Name: FieldContainerNumber, X: 125, Y: 442, FontSize: 12, Description: "Container or trailer number"},
				{Name: FieldTodaysDate, X: 448, Y: 85, FontSize: 12, Description: "Date of signing"},
			},
			Signature: SignatureSpec{
				ImagePath: "signatures/default-signature.png",
				X:         340,
				Y:         108,
				Width:     120,
				Height:    40,
			},
		},
		Settings: Settings{
			NamingFormat: NamingNameRef,
			PageOrder:    DefaultPageOrder,
			Keywords: []string{
				"transfer of residence",
				"ToR",
				"HMRC",
				"C88",
				"duty",
				"VAT",
			},
		},
		TargetSizeMB: 1.1,
		OutputDir:    "output",
	}
}

// FromEnv returns Default() with environment overrides applied. Unset or
// malformed variables leave the default in place.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("SHIPDOCS_TARGET_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Overlay.TargetPage = n
		}
	}
	if v := os.Getenv("SHIPDOCS_TARGET_SIZE_MB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.TargetSizeMB = f
		}
	}
	if v := os.Getenv("SHIPDOCS_SIGNATURE"); v != "" {
		cfg.Overlay.Signature.ImagePath = v
	}
	if v := os.Getenv("SHIPDOCS_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("SHIPDOCS_NAMING_FORMAT"); v == NamingNameRef || v == NamingRefName {
		cfg.Settings.NamingFormat = v
	}
	if v := os.Getenv("SHIPDOCS_PAGE_ORDER"); v != "" {
		cfg.Settings.PageOrder = v
	}
	if v := os.Getenv("SHIPDOCS_KEYWORDS"); v != "" {
		var kws []string
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		cfg.Settings.Keywords = kws
	}

	return cfg
}
