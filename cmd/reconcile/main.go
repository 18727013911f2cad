// Command reconcile compares two estimate files from the command line
// and prints the analysis as JSON, markdown, or HTML.
//
// Inputs are either the extraction service's JSON payloads (a bare
// array of line items per file) or HTML estimate exports (.html).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/ingest"
	"estimate_recon/pkg/core/pipeline"
	"estimate_recon/pkg/core/report"
	"estimate_recon/pkg/models"
)

func main() {
	godotenv.Load()

	originalPath := flag.String("original", "", "path to the original estimate (json or html)")
	supplementPath := flag.String("supplement", "", "path to the supplement estimate (json or html)")
	claimID := flag.String("claim", "", "claim identifier for the report")
	configPath := flag.String("config", "", "optional engine config file (yaml or hjson)")
	format := flag.String("format", "markdown", "output format: json, markdown, or html")
	outPath := flag.String("out", "", "write the report to a file instead of stdout")
	flag.Parse()

	if *originalPath == "" || *supplementPath == "" {
		fmt.Fprintln(os.Stderr, "both -original and -supplement are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	original, err := loadEstimate(*originalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load original: %v\n", err)
		os.Exit(1)
	}
	supplement, err := loadEstimate(*supplementPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load supplement: %v\n", err)
		os.Exit(1)
	}

	engine, err := pipeline.NewComparisonEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine error: %v\n", err)
		os.Exit(1)
	}

	analysis, err := engine.Compare(*claimID, original, supplement)
	if err != nil {
		fmt.Fprintf(os.Stderr, "comparison failed: %v\n", err)
		os.Exit(1)
	}

	var rendered string
	switch strings.ToLower(*format) {
	case "json":
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			os.Exit(1)
		}
		rendered = string(data) + "\n"
	case "html":
		html, err := report.HTML(analysis)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render error: %v\n", err)
			os.Exit(1)
		}
		rendered = html
	default:
		rendered = report.Markdown(analysis)
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "could not write %s: %v\n", *outPath, err)
			os.Exit(1)
		}
		return
	}
	fmt.Print(rendered)
}

// loadEstimate reads one estimate file, dispatching on extension.
func loadEstimate(path string) ([]models.RawLineItem, error) {
	if filepath.Ext(path) == ".html" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.ImportHTMLTable(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	items, err := ingest.ParseItemList(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return ingest.ToRawLineItems(items), nil
}
