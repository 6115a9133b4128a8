package tpf

import (
	"errors"
	"fmt"
)

// Kind classifies what went wrong while decoding a document.
type Kind int

const (
	// MalformedHeader and UnsupportedVersion are fatal.
	MalformedHeader Kind = iota + 1
	UnsupportedVersion

	// The remaining kinds only drop the offending record or pixels.
	MalformedRecord
	OutOfBoundsCoordinate
	InvalidChannelValue
)

func (k Kind) String() string {
	switch k {
	case MalformedHeader:
		return "malformed header"
	case UnsupportedVersion:
		return "unsupported version"
	case MalformedRecord:
		return "malformed record"
	case OutOfBoundsCoordinate:
		return "out of bounds coordinate"
	case InvalidChannelValue:
		return "invalid channel value"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	ErrMalformedHeader    = errors.New("tpf: malformed header")
	ErrUnsupportedVersion = errors.New("tpf: unsupported version")
	ErrOutOfBounds        = errors.New("tpf: coordinate out of bounds")
)

// FormatError is returned when the header line cannot be decoded. No raster
// accompanies it.
type FormatError struct {
	Kind   Kind
	Header string // offending header text
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("tpf: %s %q", e.Kind, e.Header)
	}
	return fmt.Sprintf("tpf: %s %q: %s", e.Kind, e.Header, e.Reason)
}

// Is matches ErrMalformedHeader for every header failure and
// ErrUnsupportedVersion only for version failures.
func (e *FormatError) Is(target error) bool {
	switch target {
	case ErrMalformedHeader:
		return e.Kind == MalformedHeader || e.Kind == UnsupportedVersion
	case ErrUnsupportedVersion:
		return e.Kind == UnsupportedVersion
	}
	return false
}

// Diagnostic describes a record line that was dropped, fully or in part.
type Diagnostic struct {
	Line    int // 1-based, the header is line 1
	Kind    Kind
	Text    string
	Dropped int // pixels not written
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s (%d pixels dropped): %q", d.Line, d.Kind, d.Dropped, d.Text)
}
