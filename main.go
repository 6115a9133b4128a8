package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alefaraci/GoTPF/tpf"
)

func main() {
	var input, output, configPath, mode, format string
	var watch, info, verbose bool

	flag.StringVar(&input, "i", "", "Input file (image or .tpf) or directory")
	flag.StringVar(&input, "input", "", "Input file (image or .tpf) or directory")
	flag.StringVar(&output, "o", "", "Output file or directory")
	flag.StringVar(&output, "output", "", "Output file or directory")
	flag.StringVar(&configPath, "config", "config.toml", "Path to config file (TOML)")
	flag.StringVar(&mode, "mode", "", "TPF encoding mode: dense, skip-background or runlength (overrides config)")
	flag.StringVar(&format, "format", "", "Directory mode: convert .tpf files to this extension instead of images to .tpf")
	flag.BoolVar(&watch, "watch", false, "Run as daemon, watching directories from config [watch] section")
	flag.BoolVar(&info, "info", false, "Print header, record count and skipped records of a .tpf file")
	flag.BoolVar(&verbose, "v", false, "Log every skipped record")
	flag.Parse()

	if verbose {
		tpf.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if mode != "" {
		cfg.Encode.Mode = mode
	}

	conv, err := newConverter(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if info {
		if input == "" {
			fmt.Fprintln(os.Stderr, "Usage: gotpf -info -i <file.tpf>")
			os.Exit(1)
		}
		if err := conv.printInfo(input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if watch {
		if cfg.Watch.Location == "" {
			fmt.Fprintln(os.Stderr, "Error: [watch] location must be set in config for --watch mode")
			os.Exit(1)
		}
		if len(cfg.Watch.InputDirs()) == 0 {
			fmt.Fprintln(os.Stderr, "Error: [watch] requires at least one directory in sources")
			os.Exit(1)
		}
		if err := runWatchMode(conv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "Usage: gotpf -i <input> -o <output> [-mode runlength] [-config config.toml]")
		fmt.Fprintln(os.Stderr, "       gotpf -i <dir> -o <dir> [-format png]")
		fmt.Fprintln(os.Stderr, "       gotpf -info -i <file.tpf>")
		fmt.Fprintln(os.Stderr, "       gotpf --watch [-config config.toml]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	stat, err := os.Stat(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: input path '%s' does not exist.\n", input)
		os.Exit(1)
	}

	if stat.IsDir() {
		err = processDirectory(conv, input, output, format)
	} else {
		err = processSingleFile(conv, input, output)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func processSingleFile(conv *converter, inputFile, outputFile string) error {
	if info, err := os.Stat(outputFile); err == nil && info.IsDir() {
		return fmt.Errorf("input is a file, but output '%s' is a directory; specify an output file path", outputFile)
	}

	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if isUpToDate(inputFile, outputFile) {
		fmt.Printf("'%s' is already up-to-date. Skipping.\n", outputFile)
		return nil
	}

	fmt.Println("Converting single file...")
	start := time.Now()

	if err := conv.convert(inputFile, outputFile); err != nil {
		return err
	}

	fmt.Printf("Successfully converted '%s' to '%s' in %.2fs\n", inputFile, outputFile, time.Since(start).Seconds())
	return nil
}

type convJob struct {
	input  string
	output string
}

// collectJobs walks inputDir for convertible files. With an empty format
// every source image becomes <rel>.tpf; otherwise every .tpf becomes
// <rel>.<format>.
func collectJobs(inputDir, outputDir, format string) (jobs []convJob, numSkipped int, err error) {
	err = filepath.WalkDir(inputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		var newExt string
		switch {
		case format == "" && isSourceImage(path):
			newExt = ".tpf"
		case format != "" && isTPF(path):
			newExt = "." + strings.TrimPrefix(format, ".")
		default:
			return nil
		}

		rel, _ := filepath.Rel(inputDir, path)
		out := filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+newExt)
		if isUpToDate(path, out) {
			numSkipped++
		} else {
			jobs = append(jobs, convJob{input: path, output: out})
		}
		return nil
	})
	return jobs, numSkipped, err
}

func processDirectory(conv *converter, inputDir, outputDir, format string) error {
	if info, err := os.Stat(outputDir); err == nil && !info.IsDir() {
		return fmt.Errorf("input is a directory, but output '%s' is a file; specify an output directory", outputDir)
	}
	if format != "" && !slices.Contains(exportExts, "."+strings.TrimPrefix(strings.ToLower(format), ".")) {
		return fmt.Errorf("unsupported format '%s'; use one of %s", format, strings.Join(exportExts, " "))
	}

	if format == "" {
		fmt.Printf("Scanning for images in '%s'...\n", inputDir)
	} else {
		fmt.Printf("Scanning for .tpf files in '%s'...\n", inputDir)
	}

	jobs, numSkipped, err := collectJobs(inputDir, outputDir, strings.ToLower(format))
	if err != nil {
		return err
	}

	if len(jobs) == 0 && numSkipped == 0 {
		fmt.Println("No convertible files found. Exiting.")
		return nil
	}

	if len(jobs) == 0 {
		fmt.Printf("All %d files are already up-to-date. Nothing to do.\n", numSkipped)
		return nil
	}

	fmt.Printf("Found %d modified files to convert (%d up-to-date, skipped).\n", len(jobs), numSkipped)
	start := time.Now()

	var (
		completed atomic.Int64
		wg        sync.WaitGroup
	)
	total := int64(len(jobs))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	errCh := make(chan string, len(jobs))

	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			if dir := filepath.Dir(j.output); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errCh <- fmt.Sprintf("failed to create directory '%s': %v", dir, err)
					return
				}
			}
			if err := conv.convert(j.input, j.output); err != nil {
				errCh <- fmt.Sprintf("failed to convert '%s': %v", j.input, err)
			}
			n := completed.Add(1)
			fmt.Printf("\r[%d/%d] Converted %s", n, total, filepath.Base(j.input))
		}()
	}
	wg.Wait()
	close(errCh)

	fmt.Println()
	for msg := range errCh {
		fmt.Fprintln(os.Stderr, msg)
	}

	fmt.Printf("Converted %d files in %.2fs\n", len(jobs), time.Since(start).Seconds())
	return nil
}

func isUpToDate(input, output string) bool {
	outInfo, err := os.Stat(output)
	if err != nil {
		return false
	}
	inInfo, err := os.Stat(input)
	if err != nil {
		return false
	}
	return !outInfo.ModTime().Before(inInfo.ModTime())
}
