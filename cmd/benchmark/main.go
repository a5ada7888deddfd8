package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/desiderantes/stew/config"
	"github.com/desiderantes/stew/internal/adapter/extractor"
	"github.com/desiderantes/stew/internal/adapter/fs"
	"github.com/desiderantes/stew/internal/usecase"
)

func main() {
	root := flag.String("dir", ".", "Source tree to scan")
	runs := flag.Int("n", 5, "Number of passes")
	workers := flag.Int("workers", 0, "Parallel workers (0 = CPUs)")
	keywords := flag.String("k", "", "Extra keywords, comma separated (name or name=shape)")
	flag.Parse()

	if *runs <= 0 {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./src -n 5")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	specs := append([]string(nil), cfg.Extract.Keywords...)
	if *keywords != "" {
		specs = append(specs, strings.Split(*keywords, ",")...)
	}
	kw, err := extractor.ParseKeywords(specs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing keywords: %v\n", err)
		os.Exit(1)
	}

	ex := extractor.New(extractor.Options{Keywords: kw, DefaultDomain: cfg.Extract.DefaultDomain})
	walker := fs.NewWalker(cfg.Extract.Includes, cfg.Extract.Excludes)

	files, err := walker.Walk(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error walking %s: %v\n", *root, err)
		os.Exit(1)
	}
	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}

	fmt.Println("EXTRACTION BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Tree:     %s\n", *root)
	fmt.Printf("Files:    %d (%.2f MB)\n", len(files), float64(totalBytes)/(1<<20))
	fmt.Printf("Keywords: %d\n", len(kw))
	fmt.Println()

	uc := usecase.NewExtractUseCase(walker, walker, ex, nil, *workers, zerolog.Nop())

	var best time.Duration
	var records, diagnostics int
	for i := 0; i < *runs; i++ {
		start := time.Now()
		result, err := uc.Extract(context.Background(), *root, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Extraction error: %v\n", err)
			os.Exit(1)
		}
		elapsed := time.Since(start)
		if best == 0 || elapsed < best {
			best = elapsed
		}
		records, diagnostics = result.Records, result.Diagnostics
		fmt.Printf("  pass %d: %8s  %d records\n", i+1, elapsed.Round(time.Microsecond), result.Records)
	}

	secs := best.Seconds()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("RESULTS (best of %d):\n", *runs)
	fmt.Printf("  Records:     %d\n", records)
	fmt.Printf("  Diagnostics: %d\n", diagnostics)
	if secs > 0 {
		fmt.Printf("  Files/s:     %.0f\n", float64(len(files))/secs)
		fmt.Printf("  MB/s:        %.2f\n", float64(totalBytes)/(1<<20)/secs)
	}
}
