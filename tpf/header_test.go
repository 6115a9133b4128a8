package tpf

import (
	"errors"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		line string
		want Header
	}{
		{"4x4", Header{Width: 4, Height: 4}},
		{"1 800x400", Header{Version: 1, Width: 800, Height: 400}},
		{"  2x1  ", Header{Width: 2, Height: 1}},
		{"1\t3x7", Header{Version: 1, Width: 3, Height: 7}},
	}
	for _, tt := range tests {
		got, err := parseHeader(tt.line)
		if err != nil {
			t.Errorf("parseHeader(%q): %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseHeader(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseHeaderRejects(t *testing.T) {
	tests := []struct {
		line string
		kind Kind
	}{
		{"", MalformedHeader},
		{"abc", MalformedHeader},
		{"4", MalformedHeader},
		{"4x", MalformedHeader},
		{"x4", MalformedHeader},
		{"4x4x4", MalformedHeader},
		{"0x4", MalformedHeader},
		{"4x0", MalformedHeader},
		{"-4x4", MalformedHeader},
		{"+4x4", MalformedHeader},
		{"4 x 4", MalformedHeader},
		{"v1 4x4", MalformedHeader},
		{"0 4x4", MalformedHeader},
		{"100000x100000", MalformedHeader},
		{"2 4x4", UnsupportedVersion},
		{"17 4x4", UnsupportedVersion},
	}
	for _, tt := range tests {
		_, err := parseHeader(tt.line)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("parseHeader(%q) err = %v, want *FormatError", tt.line, err)
			continue
		}
		if fe.Kind != tt.kind {
			t.Errorf("parseHeader(%q) kind = %v, want %v", tt.line, fe.Kind, tt.kind)
		}
		if fe.Header != tt.line {
			t.Errorf("parseHeader(%q) Header = %q", tt.line, fe.Header)
		}
		if !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("parseHeader(%q): errors.Is(ErrMalformedHeader) = false", tt.line)
		}
		if got := errors.Is(err, ErrUnsupportedVersion); got != (tt.kind == UnsupportedVersion) {
			t.Errorf("parseHeader(%q): errors.Is(ErrUnsupportedVersion) = %v", tt.line, got)
		}
	}
}

func TestAppendHeader(t *testing.T) {
	tests := []struct {
		h    Header
		want string
	}{
		{Header{Width: 2, Height: 1}, "2x1"},
		{Header{Version: 1, Width: 640, Height: 480}, "1 640x480"},
	}
	for _, tt := range tests {
		if got := string(appendHeader(nil, tt.h)); got != tt.want {
			t.Errorf("appendHeader(%+v) = %q, want %q", tt.h, got, tt.want)
		}
		back, err := parseHeader(tt.want)
		if err != nil || back != tt.h {
			t.Errorf("parseHeader(%q) = %+v, %v", tt.want, back, err)
		}
	}
}
