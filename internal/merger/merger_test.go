package merger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-shipdocs/internal/config"
	"go-shipdocs/internal/job"
	"go-shipdocs/internal/manifest"
	"go-shipdocs/internal/pdfops"
	"go-shipdocs/internal/pdftest"
)

func loadTestManifest(t *testing.T, rows ...string) *manifest.Manifest {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.csv")
	content := "Reference,Name\n" + strings.Join(rows, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testMerger(t *testing.T) *Merger {
	t.Helper()
	cfg := config.Default()
	cfg.Overlay.TargetPage = 1
	cfg.Overlay.Signature.ImagePath = ""
	return New(cfg, job.NewManager(t.TempDir()))
}

// Scenario: one manifest client, a multi-client advice document, a bill of
// lading, and a customer document whose filename uses the dash form of the
// same reference. Everything must land in one bundle.
func TestMergeGroupsAcrossSeparatorForms(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	advice := filepath.Join(dir, "Advice_of_Arrival.pdf")
	pdftest.WritePDF(t, advice,
		"Advice of Arrival Consignee 123/456/789 Container/Trailer: ABCD1234567 Arriving per Test Ship (IMO123) on 01/02/2025",
		"Advice page for some other consignee 999/888/777",
	)
	bill := filepath.Join(dir, "Bill_of_Lading_1.pdf")
	pdftest.WritePDF(t, bill, "Bill of Lading for 123-456-789")

	customer := filepath.Join(dir, "invoice_123-456-789.pdf")
	pdftest.WritePDF(t, customer, "Customer invoice page")

	m := testMerger(t)
	res, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "123/456/789,Acme Co"),
		AdviceFiles:   []string{advice},
		BillFiles:     []string{bill},
		CustomerFiles: []string{customer},
		Settings:      m.Config.Settings,
	}, outDir)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if res.MergedClients != 1 {
		t.Fatalf("MergedClients = %d, want 1", res.MergedClients)
	}
	if res.ProcessedFiles != 3 {
		t.Errorf("ProcessedFiles = %d, want 3", res.ProcessedFiles)
	}

	c := res.Clients[0]
	if c.Reference != "123/456/789" || c.Name != "Acme Co" {
		t.Errorf("client = %q/%q", c.Reference, c.Name)
	}
	if filepath.Base(c.OutputPath) != "Acme_Co_123-456-789.pdf" {
		t.Errorf("output name = %q", filepath.Base(c.OutputPath))
	}
	// advice page 1 + bill page + customer page; the second advice page
	// belongs to an unknown reference and must not leak in.
	if c.Pages != 3 {
		t.Errorf("pages = %d, want 3", c.Pages)
	}
	if c.OverlaysAdded != 3 {
		t.Errorf("overlays = %d, want 3", c.OverlaysAdded)
	}
	if _, err := os.Stat(c.OutputPath); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestMergePageOrder(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	advice := filepath.Join(dir, "advice.pdf")
	pdftest.WritePDF(t, advice, "advice ref 111/222/333")
	bill := filepath.Join(dir, "bill.pdf")
	pdftest.WritePDF(t, bill, "bill ref 111/222/333")
	customer := filepath.Join(dir, "doc_111-222-333.pdf")
	pdftest.WritePDF(t, customer, "customer pages")

	m := testMerger(t)
	settings := m.Config.Settings
	settings.PageOrder = "customer_bill_advice"
	settings.Keywords = nil

	res, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "111/222/333,Ordered Client"),
		AdviceFiles:   []string{advice},
		BillFiles:     []string{bill},
		CustomerFiles: []string{customer},
		Settings:      settings,
	}, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if res.MergedClients != 1 {
		t.Fatalf("MergedClients = %d", res.MergedClients)
	}

	texts, err := pdfops.PageTexts(res.Clients[0].OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(texts) != 3 {
		t.Fatalf("pages = %d, want 3", len(texts))
	}
	if !strings.Contains(texts[0], "customer") {
		t.Errorf("first page should be the customer doc, got %q", texts[0])
	}
	if !strings.Contains(texts[1], "bill") {
		t.Errorf("second page should be the bill, got %q", texts[1])
	}
	if !strings.Contains(texts[2], "advice") {
		t.Errorf("third page should be the advice, got %q", texts[2])
	}
}

func TestMergeManifestOnlyReferenceYieldsNoGroup(t *testing.T) {
	dir := t.TempDir()
	customer := filepath.Join(dir, "doc_555-666-777.pdf")
	pdftest.WritePDF(t, customer, "customer doc")

	m := testMerger(t)
	res, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "555/666/777,Present Client", "888/999/000,Absent Client"),
		CustomerFiles: []string{customer},
		Settings:      m.Config.Settings,
	}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if res.MergedClients != 1 {
		t.Fatalf("MergedClients = %d, want 1 (absent manifest entry is not an error)", res.MergedClients)
	}
}

func TestMergeUnknownCustomerReferenceNotInManifest(t *testing.T) {
	// A customer document whose reference has no manifest entry still gets
	// a bundle, named by the raw reference.
	dir := t.TempDir()
	customer := filepath.Join(dir, "doc_314-159-265.pdf")
	pdftest.WritePDF(t, customer, "orphan customer doc")

	m := testMerger(t)
	res, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "111/222/333,Someone Else"),
		CustomerFiles: []string{customer},
		Settings:      m.Config.Settings,
	}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if res.MergedClients != 1 {
		t.Fatalf("MergedClients = %d, want 1", res.MergedClients)
	}
	if got := filepath.Base(res.Clients[0].OutputPath); got != "314-159-265.pdf" {
		t.Errorf("output name = %q, want raw reference", got)
	}
}

func TestMergeKeywordScan(t *testing.T) {
	dir := t.TempDir()
	customer := filepath.Join(dir, "doc_123-456-789.pdf")
	pdftest.WritePDF(t, customer,
		"Transfer of Residence application attached",
		"Plain page",
		"HMRC correspondence enclosed",
	)

	m := testMerger(t)
	settings := m.Config.Settings
	settings.Keywords = []string{"transfer of residence", "HMRC"}

	res, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "123/456/789,Acme Co"),
		CustomerFiles: []string{customer},
		Settings:      settings,
	}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	hits := res.Clients[0].Keywords
	if len(hits) != 2 {
		t.Fatalf("keyword hits = %v, want 2", hits)
	}
	byKeyword := map[string]int{}
	for _, h := range hits {
		byKeyword[h.Keyword] = h.Page
	}
	if byKeyword["transfer of residence"] != 1 {
		t.Errorf("transfer of residence found on page %d, want 1", byKeyword["transfer of residence"])
	}
	if byKeyword["HMRC"] != 3 {
		t.Errorf("HMRC found on page %d, want 3", byKeyword["HMRC"])
	}
}

func TestMergeOverlayFailureDowngrades(t *testing.T) {
	// Bundles shorter than the target page still get written, unstamped.
	dir := t.TempDir()
	customer := filepath.Join(dir, "doc_123-456-789.pdf")
	pdftest.WritePDF(t, customer, "single page")

	cfg := config.Default()
	cfg.Overlay.TargetPage = 9
	cfg.Overlay.Signature.ImagePath = ""
	m := New(cfg, job.NewManager(t.TempDir()))

	res, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "123/456/789,Acme Co"),
		CustomerFiles: []string{customer},
		Settings:      cfg.Settings,
	}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := res.Clients[0]
	if c.Err != nil {
		t.Fatalf("short bundle must not fail the client: %v", c.Err)
	}
	if c.OverlaysAdded != 0 {
		t.Errorf("overlays = %d, want 0", c.OverlaysAdded)
	}
	if _, err := os.Stat(c.OutputPath); err != nil {
		t.Errorf("bundle missing: %v", err)
	}
}

func TestMergeCleansJobDirectory(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	customer := filepath.Join(dir, "doc_123-456-789.pdf")
	pdftest.WritePDF(t, customer, "page")

	cfg := config.Default()
	cfg.Overlay.TargetPage = 1
	cfg.Overlay.Signature.ImagePath = ""
	m := New(cfg, job.NewManager(root))

	_, err := m.Merge(context.Background(), Inputs{
		Manifest:      loadTestManifest(t, "123/456/789,Acme Co"),
		CustomerFiles: []string{customer},
		Settings:      cfg.Settings,
	}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("job scratch space not cleaned up: %v", entries)
	}
}
