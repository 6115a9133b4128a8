package tpf

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Result is a decoded document.
type Result struct {
	Raster  *Raster
	Version int // 0 if the header had no version token
	Records int // well-formed records, including partially clipped runs
	Skipped []Diagnostic
}

// Decoder reads TPF documents.
type Decoder struct {
	// Fill is the color of cells no record writes. nil means White.
	Fill *Color
}

func (d *Decoder) fill() Color {
	if d.Fill == nil {
		return White
	}
	return *d.Fill
}

// Decode reads a whole document from r. A bad header fails with a
// *FormatError and no result; bad records are dropped and listed in
// Result.Skipped.
func (d *Decoder) Decode(r io.Reader) (*Result, error) {
	lr := lineReader{r: bufio.NewReader(r)}

	h, err := lr.header()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Raster:  NewRaster(h.Width, h.Height, d.fill()),
		Version: h.Version,
	}
	log := Logger()

	for {
		line, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rec, kind, ok := parseRecord(line)
		if !ok {
			diag := Diagnostic{Line: lr.n, Kind: kind, Text: line}
			if kind == InvalidChannelValue {
				diag.Dropped = rec.N
			}
			res.skip(log, diag)
			continue
		}
		res.Records++
		if dropped := rec.apply(res.Raster); dropped > 0 {
			res.skip(log, Diagnostic{Line: lr.n, Kind: OutOfBoundsCoordinate, Text: line, Dropped: dropped})
		}
	}
	return res, nil
}

func (res *Result) skip(log *slog.Logger, d Diagnostic) {
	res.Skipped = append(res.Skipped, d)
	log.Debug("tpf: record skipped",
		slog.Int("line", d.Line),
		slog.String("kind", d.Kind.String()),
		slog.Int("dropped", d.Dropped),
		slog.String("text", d.Text))
}

// lineReader yields newline-terminated lines and counts them.
type lineReader struct {
	r *bufio.Reader
	n int
}

func (lr *lineReader) next() (string, error) {
	line, err := lr.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	lr.n++
	return line, nil
}

func (lr *lineReader) header() (Header, error) {
	line, err := lr.next()
	if errors.Is(err, io.EOF) {
		return Header{}, &FormatError{Kind: MalformedHeader, Reason: "empty document"}
	}
	if err != nil {
		return Header{}, err
	}
	return parseHeader(strings.TrimSpace(line))
}

// Decode reads a document from r, filling unwritten cells with White.
func Decode(r io.Reader) (*Result, error) {
	var d Decoder
	return d.Decode(r)
}

// DecodeString decodes a document held in memory.
func DecodeString(text string) (*Result, error) {
	return Decode(strings.NewReader(text))
}

// DecodeConfig reads only the header line.
func DecodeConfig(r io.Reader) (Header, error) {
	lr := lineReader{r: bufio.NewReader(r)}
	return lr.header()
}
