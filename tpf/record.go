package tpf

import (
	"strconv"
	"strings"
)

// Record is one pixel line. N is the run length; a Single record has N == 1
// and is written without the third coordinate.
type Record struct {
	X, Y  int
	N     int
	Color Color
}

// recordSep separates the coordinate group from the color group.
const recordSep = ") ("

func appendRecord(buf []byte, rec Record) []byte {
	buf = append(buf, '(')
	buf = strconv.AppendInt(buf, int64(rec.X), 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, int64(rec.Y), 10)
	if rec.N > 1 {
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(rec.N), 10)
	}
	buf = append(buf, recordSep...)
	buf = strconv.AppendUint(buf, uint64(rec.Color.R), 10)
	buf = append(buf, ',')
	buf = strconv.AppendUint(buf, uint64(rec.Color.G), 10)
	buf = append(buf, ',')
	buf = strconv.AppendUint(buf, uint64(rec.Color.B), 10)
	buf = append(buf, ')')
	return buf
}

// parseRecord parses a trimmed, non-blank record line. On failure it
// returns MalformedRecord, or InvalidChannelValue together with the
// record's coordinates.
func parseRecord(line string) (Record, Kind, bool) {
	coords, colors, found := strings.Cut(line, recordSep)
	if !found || strings.Contains(colors, recordSep) {
		return Record{}, MalformedRecord, false
	}
	coords, ok := strings.CutPrefix(coords, "(")
	if !ok {
		return Record{}, MalformedRecord, false
	}
	colors, ok = strings.CutSuffix(colors, ")")
	if !ok {
		return Record{}, MalformedRecord, false
	}

	var xyn [3]int
	cf := strings.Split(coords, ",")
	if len(cf) != 2 && len(cf) != 3 {
		return Record{}, MalformedRecord, false
	}
	for i, f := range cf {
		if xyn[i], ok = parseDecimal(f); !ok {
			return Record{}, MalformedRecord, false
		}
	}
	rec := Record{X: xyn[0], Y: xyn[1], N: 1}
	if len(cf) == 3 {
		if xyn[2] == 0 {
			return Record{}, MalformedRecord, false
		}
		rec.N = xyn[2]
	}

	var rgb [3]int
	vf := strings.Split(colors, ",")
	if len(vf) != 3 {
		return Record{}, MalformedRecord, false
	}
	outOfRange := false
	for i, f := range vf {
		v, wellFormed, inRange := parseChannel(f)
		if !wellFormed {
			return Record{}, MalformedRecord, false
		}
		outOfRange = outOfRange || !inRange
		rgb[i] = v
	}
	if outOfRange {
		return rec, InvalidChannelValue, false
	}
	rec.Color = Color{uint8(rgb[0]), uint8(rgb[1]), uint8(rgb[2])}
	return rec, 0, true
}

// parseChannel reads one color component. A signed or oversized integer is
// well formed but out of range; anything else non-decimal is malformed.
func parseChannel(f string) (v int, wellFormed, inRange bool) {
	digits := strings.TrimPrefix(f, "-")
	if digits == "" {
		return 0, false, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false, false
		}
	}
	if len(digits) != len(f) {
		return 0, true, false
	}
	v, ok := parseDecimal(digits)
	if !ok || v > 255 {
		return 0, true, false
	}
	return v, true, true
}

// apply writes rec into r, clipping at the raster edge, and returns how
// many of its pixels fell outside.
func (rec Record) apply(r *Raster) (dropped int) {
	if rec.Y >= r.height || rec.X >= r.width {
		return rec.N
	}
	n := rec.N
	if n > r.width-rec.X {
		n = r.width - rec.X
	}
	r.setRun(rec.X, rec.Y, n, rec.Color)
	return rec.N - n
}
