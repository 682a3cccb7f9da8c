// Command shipdocs processes shipping document PDFs from the command line.
//
// Subcommands:
//
//	process  -in DIR -out DIR [-sig FILE] [-page N] [-target-mb F]
//	         Overlay shipment data and the signature onto every PDF in a
//	         directory, compressing oversized results.
//	merge    -in DIR -out DIR [-manifest FILE] [-naming F] [-order O]
//	         Group shipping documents by client reference and write one
//	         merged, overlaid PDF per client.
//	manifest -in FILE -out FILE.csv
//	         Load a manifest spreadsheet and re-export it as CSV.
//
// Environment overrides (see internal/config) are loaded from .env when
// present.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"

	"go-shipdocs/internal/batch"
	"go-shipdocs/internal/config"
	"go-shipdocs/internal/job"
	"go-shipdocs/internal/manifest"
	"go-shipdocs/internal/merger"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(ctx, os.Args[2:])
	case "merge":
		err = runMerge(ctx, os.Args[2:])
	case "manifest":
		err = runManifest(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: shipdocs <process|merge|manifest> [flags]")
}

func runProcess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	inDir := fs.String("in", "", "input directory of PDFs")
	outDir := fs.String("out", "", "output directory")
	sig := fs.String("sig", "", "signature image path (overrides config)")
	page := fs.Int("page", 0, "target page for overlays (overrides config)")
	targetMB := fs.Float64("target-mb", 0, "size budget in MB (overrides config)")
	fs.Parse(args)

	if *inDir == "" || *outDir == "" {
		fs.Usage()
		return fmt.Errorf("process: -in and -out are required")
	}

	cfg := config.FromEnv()
	if *sig != "" {
		cfg.Overlay.Signature.ImagePath = *sig
	}
	if *page > 0 {
		cfg.Overlay.TargetPage = *page
	}
	if *targetMB > 0 {
		cfg.TargetSizeMB = *targetMB
	}

	res, err := batch.NewProcessor(cfg).ProcessBatch(ctx, *inDir, *outDir)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d files: %d succeeded, %d failed\n", res.Processed, res.Succeeded, res.Failed)
	fmt.Printf("Shipment: container %s, vessel %s, arrival %s\n",
		res.Shipment.ContainerNumber, res.Shipment.ShipName, res.Shipment.ArrivalDate)
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Printf("  FAIL %s: %v\n", filepath.Base(f.InputPath), f.Err)
			continue
		}
		fmt.Printf("  OK   %s -> %s (%d overlays, %.2fMB via %s)\n",
			filepath.Base(f.InputPath), filepath.Base(f.OutputPath),
			f.OverlaysAdded, f.Compression.FinalSizeMB, f.Compression.Method)
	}
	return nil
}

func runMerge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	inDir := fs.String("in", "", "input directory of shipping documents")
	outDir := fs.String("out", "", "output directory")
	manifestPath := fs.String("manifest", "", "manifest spreadsheet (.xlsx/.xls/.csv); defaults to one found in -in")
	naming := fs.String("naming", "", "output naming: name_ref or ref_name")
	order := fs.String("order", "", "page order, e.g. advice_bill_customer")
	fs.Parse(args)

	if *inDir == "" || *outDir == "" {
		fs.Usage()
		return fmt.Errorf("merge: -in and -out are required")
	}

	cfg := config.FromEnv()
	if *naming != "" {
		cfg.Settings.NamingFormat = *naming
	}
	if *order != "" {
		cfg.Settings.PageOrder = *order
	}

	in, mPath, err := classifyDir(*inDir)
	if err != nil {
		return err
	}
	if *manifestPath != "" {
		mPath = *manifestPath
	}
	if mPath == "" {
		return fmt.Errorf("merge: no manifest given and none found in %s", *inDir)
	}

	mf, err := manifest.Load(mPath)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"manifest": mPath, "entries": mf.Len()}).Info("loaded manifest")

	in.Manifest = mf
	in.Settings = cfg.Settings

	jobs := job.NewManager("")
	res, err := merger.New(cfg, jobs).Merge(ctx, in, *outDir)
	if err != nil {
		return err
	}

	fmt.Printf("Merged %d clients from %d files\n", res.MergedClients, res.ProcessedFiles)
	for _, c := range res.Clients {
		if c.Err != nil {
			fmt.Printf("  FAIL %s: %v\n", c.Reference, c.Err)
			continue
		}
		fmt.Printf("  OK   %s -> %s (%d pages, %d overlays", c.Reference, filepath.Base(c.OutputPath), c.Pages, c.OverlaysAdded)
		if len(c.Keywords) > 0 {
			var terms []string
			for _, hit := range c.Keywords {
				terms = append(terms, fmt.Sprintf("%s@p%d", hit.Keyword, hit.Page))
			}
			fmt.Printf(", keywords: %s", strings.Join(terms, " "))
		}
		fmt.Println(")")
	}
	return nil
}

// classifyDir routes the directory's files into merger inputs by filename
// heuristics and reports the first spreadsheet found.
func classifyDir(dir string) (merger.Inputs, string, error) {
	var in merger.Inputs
	var manifestPath string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return in, "", fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch merger.ClassifyFile(entry.Name()) {
		case merger.CategoryAdvice:
			in.AdviceFiles = append(in.AdviceFiles, path)
		case merger.CategoryBill:
			in.BillFiles = append(in.BillFiles, path)
		case merger.CategoryCustomer:
			in.CustomerFiles = append(in.CustomerFiles, path)
		case merger.CategoryEDI:
			if manifestPath == "" {
				manifestPath = path
			}
		default:
			log.WithField("file", entry.Name()).Debug("unclassified file ignored")
		}
	}
	return in, manifestPath, nil
}

func runManifest(args []string) error {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inPath := fs.String("in", "", "manifest spreadsheet (.xlsx/.xls/.csv)")
	outPath := fs.String("out", "", "CSV export path")
	fs.Parse(args)

	if *inPath == "" || *outPath == "" {
		fs.Usage()
		return fmt.Errorf("manifest: -in and -out are required")
	}

	mf, err := manifest.Load(*inPath)
	if err != nil {
		return err
	}
	if err := mf.ExportCSV(*outPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d manifest entries to %s\n", mf.Len(), *outPath)
	return nil
}
