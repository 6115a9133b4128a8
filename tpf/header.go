package tpf

import (
	"strconv"
	"strings"
)

// Version1 is the only version token this package reads and writes.
const Version1 = 1

// MaxPixels bounds width*height of a decoded raster.
const MaxPixels = 1 << 28

// Header is the first line of a document. Version is 0 when the line
// carries no version token.
type Header struct {
	Version int
	Width   int
	Height  int
}

func supportedVersion(v int) bool {
	return v == Version1
}

// appendHeader appends "WxH" with the optional version prefix, without
// the trailing newline.
func appendHeader(buf []byte, h Header) []byte {
	if h.Version != 0 {
		buf = strconv.AppendInt(buf, int64(h.Version), 10)
		buf = append(buf, ' ')
	}
	buf = strconv.AppendInt(buf, int64(h.Width), 10)
	buf = append(buf, 'x')
	buf = strconv.AppendInt(buf, int64(h.Height), 10)
	return buf
}

// parseHeader decodes a header line. Every failure is a *FormatError.
func parseHeader(line string) (Header, error) {
	fields := strings.Fields(line)

	var h Header
	var dims string
	switch len(fields) {
	case 1:
		dims = fields[0]
	case 2:
		v, ok := parseDecimal(fields[0])
		if !ok || v == 0 {
			return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "bad version token"}
		}
		if !supportedVersion(v) {
			return Header{}, &FormatError{Kind: UnsupportedVersion, Header: line, Reason: "version " + fields[0]}
		}
		h.Version = v
		dims = fields[1]
	case 0:
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "empty header"}
	default:
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "too many fields"}
	}

	w, hgt, found := strings.Cut(dims, "x")
	if !found || strings.Contains(hgt, "x") {
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "expected WIDTHxHEIGHT"}
	}
	width, ok := parseDecimal(w)
	if !ok {
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "bad width"}
	}
	height, ok := parseDecimal(hgt)
	if !ok {
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "bad height"}
	}
	if width == 0 || height == 0 {
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "dimensions must be positive"}
	}
	if width > MaxPixels/height {
		return Header{}, &FormatError{Kind: MalformedHeader, Header: line, Reason: "dimensions too large"}
	}
	h.Width = width
	h.Height = height
	return h, nil
}

// parseDecimal accepts unsigned base-10 integers only: no sign, no
// whitespace, no prefix.
func parseDecimal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
