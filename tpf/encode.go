package tpf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Mode selects how pixel records are emitted.
type Mode int

const (
	// Dense writes one record per pixel.
	Dense Mode = iota
	// DenseSkipBackground writes one record per pixel whose color differs
	// from Encoder.Background.
	DenseSkipBackground
	// RunLength collapses same-colored horizontal neighbours into run
	// records. Runs never cross a row.
	RunLength
)

func (m Mode) String() string {
	switch m {
	case Dense:
		return "dense"
	case DenseSkipBackground:
		return "skip-background"
	case RunLength:
		return "runlength"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dense":
		return Dense, nil
	case "skip-background":
		return DenseSkipBackground, nil
	case "runlength", "rle":
		return RunLength, nil
	}
	return 0, fmt.Errorf("tpf: unknown encoding mode %q", s)
}

// Encoder writes rasters as TPF documents. The zero value writes dense,
// unversioned documents.
type Encoder struct {
	Mode Mode
	// Background is omitted in DenseSkipBackground mode.
	Background Color
	// Version is written as the header's version token; 0 leaves it out.
	Version int
}

// Encode writes r to w. The raster is never modified.
func (e *Encoder) Encode(w io.Writer, r *Raster) error {
	if e.Version != 0 && !supportedVersion(e.Version) {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, e.Version)
	}
	switch e.Mode {
	case Dense, DenseSkipBackground, RunLength:
	default:
		return fmt.Errorf("tpf: unknown encoding mode %d", int(e.Mode))
	}

	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)

	buf = appendHeader(buf, Header{Version: e.Version, Width: r.width, Height: r.height})
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return err
	}

	var werr error
	e.records(r, func(rec Record) {
		if werr != nil {
			return
		}
		buf = appendRecord(buf[:0], rec)
		buf = append(buf, '\n')
		_, werr = bw.Write(buf)
	})
	if werr != nil {
		return werr
	}
	return bw.Flush()
}

// records calls emit for each record in row-major order.
func (e *Encoder) records(r *Raster, emit func(Record)) {
	switch e.Mode {
	case Dense, DenseSkipBackground:
		skip := e.Mode == DenseSkipBackground
		for y := 0; y < r.height; y++ {
			for x := 0; x < r.width; x++ {
				i := (y*r.width + x) * 3
				c := Color{r.pix[i], r.pix[i+1], r.pix[i+2]}
				if skip && c == e.Background {
					continue
				}
				emit(Record{X: x, Y: y, N: 1, Color: c})
			}
		}
	case RunLength:
		for y := 0; y < r.height; y++ {
			row := r.pix[y*r.width*3 : (y+1)*r.width*3]
			start := 0
			for start < r.width {
				c := Color{row[start*3], row[start*3+1], row[start*3+2]}
				end := start + 1
				for end < r.width && row[end*3] == c.R && row[end*3+1] == c.G && row[end*3+2] == c.B {
					end++
				}
				emit(Record{X: start, Y: y, N: end - start, Color: c})
				start = end
			}
		}
	}
}

// Encode writes r to w in the given mode with no version token. In
// DenseSkipBackground mode the background is White.
func Encode(w io.Writer, r *Raster, mode Mode) error {
	e := Encoder{Mode: mode, Background: White}
	return e.Encode(w, r)
}

// EncodeString returns the document for r. It only fails for an invalid
// mode, in which case it returns "".
func EncodeString(r *Raster, mode Mode) string {
	var sb strings.Builder
	if err := Encode(&sb, r, mode); err != nil {
		return ""
	}
	return sb.String()
}
