package main

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/alefaraci/GoTPF/tpf"
)

// sourceExts are the raster formats accepted as input for image -> TPF.
var sourceExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// exportExts are the formats a TPF document can be converted to.
var exportExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".pdf", ".svg", ".tpf"}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func isSourceImage(path string) bool {
	return slices.Contains(sourceExts, ext(path))
}

func isTPF(path string) bool {
	return ext(path) == ".tpf"
}

// converter carries everything one conversion needs. Each CLI invocation
// or daemon owns one; nothing is shared through package state.
type converter struct {
	cfg *Config
	enc *tpf.Encoder
	dec *tpf.Decoder
}

func newConverter(cfg *Config) (*converter, error) {
	enc, err := cfg.Encoder()
	if err != nil {
		return nil, err
	}
	dec, err := cfg.Decoder()
	if err != nil {
		return nil, err
	}
	return &converter{cfg: cfg, enc: enc, dec: dec}, nil
}

// convert picks the direction from the file extensions.
func (c *converter) convert(inputFile, outputFile string) error {
	switch {
	case isSourceImage(inputFile) && isTPF(outputFile):
		return c.imageToTPF(inputFile, outputFile)
	case isTPF(inputFile) && slices.Contains(exportExts, ext(outputFile)):
		return c.exportTPF(inputFile, outputFile)
	case isTPF(inputFile):
		return fmt.Errorf("output file '%s' must have one of the extensions %s", outputFile, strings.Join(exportExts, " "))
	case isSourceImage(inputFile):
		return fmt.Errorf("output file '%s' must have a .tpf extension", outputFile)
	default:
		return fmt.Errorf("input file '%s' must be a .tpf file or one of %s", inputFile, strings.Join(sourceExts, " "))
	}
}

func (c *converter) imageToTPF(inputFile, outputFile string) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", inputFile, err)
	}
	raster, err := tpf.FromImage(img, c.enc.Background)
	if err != nil {
		return fmt.Errorf("converting %s image: %w", format, err)
	}

	return writeFile(outputFile, func(w io.Writer) error {
		return c.enc.Encode(w, raster)
	})
}

// readTPF decodes a TPF file. Skipped records are reported in the result,
// not as an error.
func (c *converter) readTPF(path string) (*tpf.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := c.dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return res, nil
}

func (c *converter) exportTPF(inputFile, outputFile string) error {
	res, err := c.readTPF(inputFile)
	if err != nil {
		return err
	}
	if n := len(res.Skipped); n > 0 {
		fmt.Fprintf(os.Stderr, "Warning: '%s': %d records skipped (run with -info for details)\n", inputFile, n)
	}
	r := res.Raster

	switch ext(outputFile) {
	case ".tpf":
		return writeFile(outputFile, func(w io.Writer) error {
			return c.enc.Encode(w, r)
		})
	case ".png":
		return writeFile(outputFile, func(w io.Writer) error {
			return png.Encode(w, r)
		})
	case ".jpg", ".jpeg":
		return writeFile(outputFile, func(w io.Writer) error {
			return jpeg.Encode(w, r, &jpeg.Options{Quality: c.cfg.Export.JPEGQuality})
		})
	case ".gif":
		return writeFile(outputFile, func(w io.Writer) error {
			return gif.Encode(w, r, nil)
		})
	case ".bmp":
		return writeFile(outputFile, func(w io.Writer) error {
			return bmp.Encode(w, r)
		})
	case ".tif", ".tiff":
		return writeFile(outputFile, func(w io.Writer) error {
			return tiff.Encode(w, r, &tiff.Options{Compression: tiff.Deflate})
		})
	case ".svg":
		return writeFile(outputFile, func(w io.Writer) error {
			return writeSVG(w, r, c.enc.Background, c.cfg.Export)
		})
	case ".pdf":
		return writePDF(outputFile, r)
	}
	return fmt.Errorf("unsupported output format '%s'", ext(outputFile))
}

// printInfo decodes a TPF file and lists every record it dropped.
func (c *converter) printInfo(inputFile string) error {
	res, err := c.readTPF(inputFile)
	if err != nil {
		return err
	}
	w, h := res.Raster.Size()
	version := "none"
	if res.Version != 0 {
		version = fmt.Sprint(res.Version)
	}
	fmt.Printf("%s: %dx%d, version %s, %d records, %d skipped\n", inputFile, w, h, version, res.Records, len(res.Skipped))
	for _, d := range res.Skipped {
		fmt.Printf("  %s\n", d)
	}
	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
