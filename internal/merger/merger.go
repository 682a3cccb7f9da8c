// Package merger groups shipping-document pages by client reference and
// emits one merged PDF per client.
//
// Customer documents carry their reference in the filename. Advice-of-arrival
// and bills-of-lading cover many clients per document, so those are matched
// page by page: a page belongs to every manifest reference whose "/" or "-"
// rendering appears in its extracted text. That match is deliberately a
// best-effort substring heuristic.
package merger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"go-shipdocs/internal/config"
	"go-shipdocs/internal/job"
	"go-shipdocs/internal/manifest"
	"go-shipdocs/internal/pdfops"
	"go-shipdocs/internal/shipment"
)

// Inputs is one merge job's source material.
type Inputs struct {
	Manifest      *manifest.Manifest
	AdviceFiles   []string
	BillFiles     []string
	CustomerFiles []string
	Settings      config.Settings
}

// KeywordHit records a configured keyword found in a merged bundle.
type KeywordHit struct {
	Keyword string
	Page    int
}

// ClientOutcome is the per-client audit record.
type ClientOutcome struct {
	Reference     string
	Name          string
	OutputPath    string
	Pages         int
	OverlaysAdded int
	Keywords      []KeywordHit
	Err           error
}

// Result summarizes one merge job.
type Result struct {
	Clients        []ClientOutcome
	MergedClients  int
	ProcessedFiles int
	Shipment       shipment.Data
}

// group collects the page parts assembled for one client, per category.
type group struct {
	parts map[DocCategory][]string
}

func newGroup() *group {
	return &group{parts: make(map[DocCategory][]string)}
}

func (g *group) add(cat DocCategory, path string) {
	g.parts[cat] = append(g.parts[cat], path)
}

// Merger performs manifest-driven merges under one configuration.
type Merger struct {
	Config config.Config
	Jobs   *job.Manager
}

// New returns a Merger using the given job manager for scratch space.
func New(cfg config.Config, jobs *job.Manager) *Merger {
	return &Merger{Config: cfg, Jobs: jobs}
}

// Merge classifies and groups all input pages by client reference, writes
// one merged PDF per client into outputDir, applies the standard overlays to
// each bundle, and runs the keyword scan. Per-client failures are recorded;
// the job only fails outright when it cannot obtain scratch space or the
// output directory.
func (m *Merger) Merge(ctx context.Context, in Inputs, outputDir string) (*Result, error) {
	j, err := m.Jobs.New()
	if err != nil {
		return nil, err
	}
	defer m.Jobs.Release(j.ID)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	groups := make(map[string]*group)
	get := func(ref string) *group {
		if g, ok := groups[ref]; ok {
			return g
		}
		g := newGroup()
		groups[ref] = g
		return g
	}

	refs := in.Manifest.References()

	// Multi-client documents: assign pages by content.
	for i, file := range in.AdviceFiles {
		if err := m.splitByReference(j, file, fmt.Sprintf("advice_%d", i), CategoryAdvice, refs, get); err != nil {
			log.WithField("file", filepath.Base(file)).WithError(err).Error("skipping advice document")
		}
	}
	for i, file := range in.BillFiles {
		if err := m.splitByReference(j, file, fmt.Sprintf("bill_%d", i), CategoryBill, refs, get); err != nil {
			log.WithField("file", filepath.Base(file)).WithError(err).Error("skipping bill of lading")
		}
	}

	// Customer documents: reference comes from the filename, the whole file
	// joins the group.
	for _, file := range in.CustomerFiles {
		ref := RefFromFilename(file)
		if ref == "" {
			log.WithField("file", filepath.Base(file)).Warn("no client reference in customer filename, skipping")
			continue
		}
		get(manifest.NormalizeRef(ref)).add(CategoryCustomer, file)
	}

	res := &Result{
		ProcessedFiles: len(in.AdviceFiles) + len(in.BillFiles) + len(in.CustomerFiles),
	}

	order := pageOrder(in.Settings.PageOrder)
	sortedRefs := make([]string, 0, len(groups))
	for ref := range groups {
		sortedRefs = append(sortedRefs, ref)
	}
	sort.Strings(sortedRefs)

	// Assemble each client's bundle in the job directory first; shipment
	// data for the overlays comes from the first assembled bundle.
	type bundle struct {
		ref, name, path string
	}
	var bundles []bundle
	for i, ref := range sortedRefs {
		if err := ctx.Err(); err != nil {
			log.Warn("merge cancelled")
			break
		}
		g := groups[ref]
		var parts []string
		for _, cat := range order {
			parts = append(parts, g.parts[cat]...)
		}
		if len(parts) == 0 {
			continue
		}

		name, _ := in.Manifest.Lookup(ref)
		merged := j.Path(fmt.Sprintf("merged_%d.pdf", i))
		if err := assemble(parts, merged); err != nil {
			res.Clients = append(res.Clients, ClientOutcome{Reference: ref, Name: name, Err: err})
			continue
		}
		bundles = append(bundles, bundle{ref: ref, name: name, path: merged})
	}

	var data shipment.Data
	if len(bundles) > 0 {
		data, err = shipment.ExtractFromFile(bundles[0].path)
		if err != nil {
			log.WithError(err).Warn("could not extract shipment data from first bundle, using defaults")
			data = shipment.Extract("")
		}
		res.Shipment = data
	}

	for _, b := range bundles {
		outcome := ClientOutcome{Reference: b.ref, Name: b.name}
		outPath := filepath.Join(outputDir, outputFilename(in.Settings.NamingFormat, b.ref, b.name))
		outcome.OutputPath = outPath

		ov, err := pdfops.RenderOverlays(b.path, outPath, m.Config.Overlay, data.Values())
		if err != nil {
			// Overlay failure downgrades to an unstamped bundle; the merge
			// itself still counts.
			log.WithField("client", b.ref).WithError(err).Warn("overlay failed, writing bundle without overlays")
			if err := pdfops.CopyFile(b.path, outPath); err != nil {
				outcome.Err = err
				res.Clients = append(res.Clients, outcome)
				continue
			}
		} else {
			outcome.OverlaysAdded = ov.OverlaysAdded
		}

		if n, err := pdfops.PageCount(outPath); err == nil {
			outcome.Pages = n
		}
		outcome.Keywords = scanKeywords(outPath, in.Settings.Keywords)

		res.MergedClients++
		res.Clients = append(res.Clients, outcome)
	}

	log.WithFields(log.Fields{
		"clients": res.MergedClients,
		"files":   res.ProcessedFiles,
	}).Info("merge complete")
	return res, nil
}

// splitByReference extracts each page of a multi-client document that
// matches a known reference into its own single-page part inside the job
// directory and files it under every reference it matches.
func (m *Merger) splitByReference(j *job.Job, file, prefix string, cat DocCategory, refs []string, get func(string) *group) error {
	texts, err := pdfops.PageTexts(file)
	if err != nil {
		return err
	}

	for page, text := range texts {
		if text == "" {
			continue
		}
		var matched []string
		for _, ref := range refs {
			if pageMatches(text, ref) {
				matched = append(matched, ref)
			}
		}
		if len(matched) == 0 {
			continue
		}

		part := j.Path(fmt.Sprintf("%s_p%d.pdf", prefix, page+1))
		if err := pdfops.CollectPages(file, part, []int{page + 1}); err != nil {
			log.WithFields(log.Fields{
				"file": filepath.Base(file),
				"page": page + 1,
			}).WithError(err).Warn("failed to extract page, skipping")
			continue
		}
		for _, ref := range matched {
			get(ref).add(cat, part)
		}
	}
	return nil
}

// pageMatches reports whether the page text contains the reference in either
// separator form. Best-effort heuristic by design.
func pageMatches(text, ref string) bool {
	return strings.Contains(text, ref) ||
		strings.Contains(text, strings.ReplaceAll(ref, "/", "-"))
}

// assemble merges the ordered parts into one PDF. A single part is copied
// straight through.
func assemble(parts []string, outputPath string) error {
	if len(parts) == 1 {
		return pdfops.CopyFile(parts[0], outputPath)
	}
	return pdfops.MergeFiles(parts, outputPath)
}

// pageOrder maps a settings string like "advice_bill_customer" onto the
// category sequence. Unknown tokens are ignored; an order that names nothing
// falls back to the default.
func pageOrder(setting string) []DocCategory {
	var order []DocCategory
	for _, token := range strings.Split(setting, "_") {
		switch token {
		case "advice":
			order = append(order, CategoryAdvice)
		case "bill":
			order = append(order, CategoryBill)
		case "customer":
			order = append(order, CategoryCustomer)
		}
	}
	if len(order) == 0 {
		return []DocCategory{CategoryAdvice, CategoryBill, CategoryCustomer}
	}
	return order
}

// scanKeywords searches every page of the merged bundle for the configured
// keywords, case-insensitively. Scan failures only cost the analysis, never
// the merge.
func scanKeywords(path string, keywords []string) []KeywordHit {
	if len(keywords) == 0 {
		return nil
	}
	texts, err := pdfops.PageTexts(path)
	if err != nil {
		log.WithField("file", filepath.Base(path)).WithError(err).Warn("keyword scan failed")
		return nil
	}

	var hits []KeywordHit
	for page, text := range texts {
		lower := strings.ToLower(text)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits = append(hits, KeywordHit{Keyword: kw, Page: page + 1})
			}
		}
	}
	return hits
}
