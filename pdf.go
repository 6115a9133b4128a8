package main

import (
	"errors"
	"fmt"
	"image/png"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/alefaraci/GoTPF/tpf"
)

// writePDF writes r as a single-page PDF. The raster goes through a
// temporary PNG because pdfcpu imports images from files.
func writePDF(outputPath string, r *tpf.Raster) error {
	tmp, err := os.CreateTemp("", "gotpf-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding page image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// ImportImagesFile appends pages when the output already exists.
	if err := os.Remove(outputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	imp := pdfcpu.DefaultImportConfig()
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile([]string{tmp.Name()}, outputPath, imp, conf); err != nil {
		return fmt.Errorf("importing page image into %s: %w", outputPath, err)
	}
	return nil
}
