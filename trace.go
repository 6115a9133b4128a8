package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"

	"github.com/dennwc/gotrace"

	"github.com/alefaraci/GoTPF/tpf"
)

type colorLayer struct {
	color tpf.Color
	paths []gotrace.Path
}

// traceColorLayers builds one bitmap mask per distinct non-background
// color, in first-seen order, and traces each into vector paths.
func traceColorLayers(r *tpf.Raster, bg tpf.Color, cfg ExportConfig) ([]colorLayer, error) {
	width, height := r.Size()

	masks := make(map[tpf.Color]*image.Gray)
	var order []tpf.Color
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c, _ := r.Pixel(x, y)
			if c == bg {
				continue
			}
			m, ok := masks[c]
			if !ok {
				if len(order) == cfg.MaxTraceColors {
					return nil, fmt.Errorf("more than %d colors to trace; raise export.max_trace_colors", cfg.MaxTraceColors)
				}
				m = image.NewGray(image.Rect(0, 0, width, height))
				for j := range m.Pix {
					m.Pix[j] = 0xFF
				}
				masks[c] = m
				order = append(order, c)
			}
			m.Pix[y*m.Stride+x] = 0x00
		}
	}

	params := gotrace.Defaults
	params.TurdSize = cfg.TurdSize

	var layers []colorLayer
	for _, c := range order {
		bm := gotrace.NewBitmapFromImage(masks[c], func(x, y int, cl color.Color) bool {
			v, _, _, _ := cl.RGBA()
			return v < 0x8000
		})
		paths, err := gotrace.Trace(bm, &params)
		if err != nil {
			return nil, fmt.Errorf("tracing color %s: %w", hexColor(c), err)
		}
		if len(paths) == 0 {
			continue
		}
		layers = append(layers, colorLayer{color: c, paths: paths})
	}
	return layers, nil
}

// writeSVG writes r as an SVG document: a background rectangle plus one
// even-odd filled path per traced color.
func writeSVG(w io.Writer, r *tpf.Raster, bg tpf.Color, cfg ExportConfig) error {
	layers, err := traceColorLayers(r, bg, cfg)
	if err != nil {
		return err
	}
	width, height := r.Size()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(bw, `<rect width="%d" height="%d" fill="%s"/>`+"\n", width, height, hexColor(bg))

	var buf []byte
	for _, l := range layers {
		buf = append(buf[:0], `<path fill="`...)
		buf = append(buf, hexColor(l.color)...)
		buf = append(buf, `" fill-rule="evenodd" d="`...)
		for _, p := range l.paths {
			buf = appendSVGSubpathTree(buf, p)
		}
		buf = append(buf, "\"/>\n"...)
		bw.Write(buf)
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// appendCoord appends a float rounded to 2 decimal places.
func appendCoord(buf []byte, f float64) []byte {
	rounded := math.Round(f*100) / 100
	return strconv.AppendFloat(buf, rounded, 'f', -1, 64)
}

func appendPoint(buf []byte, p gotrace.Point) []byte {
	buf = appendCoord(buf, p.X)
	buf = append(buf, ',')
	return appendCoord(buf, p.Y)
}

// appendSVGSubpath appends one closed traced path as SVG path commands.
// gotrace points are already in image space (y grows downwards).
func appendSVGSubpath(buf []byte, p gotrace.Path) []byte {
	c := p.Curve
	if len(c) == 0 {
		return buf
	}

	buf = append(buf, 'M')
	buf = appendPoint(buf, c[len(c)-1].Pnt[2])

	for _, seg := range c {
		switch seg.Type {
		case gotrace.TypeBezier:
			buf = append(buf, 'C')
			buf = appendPoint(buf, seg.Pnt[0])
			buf = append(buf, ' ')
			buf = appendPoint(buf, seg.Pnt[1])
			buf = append(buf, ' ')
			buf = appendPoint(buf, seg.Pnt[2])
		case gotrace.TypeCorner:
			buf = append(buf, 'L')
			buf = appendPoint(buf, seg.Pnt[1])
			buf = append(buf, 'L')
			buf = appendPoint(buf, seg.Pnt[2])
		}
	}

	return append(buf, 'Z')
}

// appendSVGSubpathTree appends a path and all its children (holes, islands)
// so the even-odd rule cuts out enclosed counters.
func appendSVGSubpathTree(buf []byte, p gotrace.Path) []byte {
	buf = appendSVGSubpath(buf, p)
	for _, child := range p.Childs {
		buf = appendSVGSubpathTree(buf, child)
	}
	return buf
}
