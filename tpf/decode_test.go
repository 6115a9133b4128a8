package tpf

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestDecodeScenario(t *testing.T) {
	res, err := DecodeString("2x2\n(0,0) (255,0,0)\n(1,1) (0,255,0)\n")
	if err != nil {
		t.Fatal(err)
	}
	if w, h := res.Raster.Size(); w != 2 || h != 2 {
		t.Fatalf("Size() = %d, %d", w, h)
	}
	want := map[[2]int]Color{
		{0, 0}: {255, 0, 0},
		{1, 0}: White,
		{0, 1}: White,
		{1, 1}: {0, 255, 0},
	}
	for p, c := range want {
		if got, _ := res.Raster.Pixel(p[0], p[1]); got != c {
			t.Errorf("Pixel(%d, %d) = %v, want %v", p[0], p[1], got, c)
		}
	}
	if res.Version != 0 || res.Records != 2 || len(res.Skipped) != 0 {
		t.Errorf("result = version %d, records %d, skipped %v", res.Version, res.Records, res.Skipped)
	}
}

func TestDecodeFill(t *testing.T) {
	d := Decoder{Fill: &Black}
	res, err := d.Decode(strings.NewReader("1 2x1\n(1,0) (5,5,5)\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := res.Raster.Pixel(0, 0); got != Black {
		t.Errorf("unwritten cell = %v, want Black", got)
	}
	if res.Version != 1 {
		t.Errorf("Version = %d, want 1", res.Version)
	}
}

func TestDecodeToleratesGarbage(t *testing.T) {
	res, err := DecodeString("2x2\ngarbage\n(1,0) (7,8,9)\n")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := res.Raster.Pixel(1, 0); got != (Color{7, 8, 9}) {
		t.Errorf("Pixel(1, 0) = %v", got)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("Skipped = %v, want one entry", res.Skipped)
	}
	d := res.Skipped[0]
	if d.Line != 2 || d.Kind != MalformedRecord || d.Text != "garbage" {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestDecodeSkippedRecords(t *testing.T) {
	tests := []struct {
		line    string
		kind    Kind
		dropped int
	}{
		{"(0,0)(1,2,3)", MalformedRecord, 0},
		{"(0,0)  (1,2,3)", MalformedRecord, 0},
		{"0,0) (1,2,3)", MalformedRecord, 0},
		{"(0,0) (1,2,3", MalformedRecord, 0},
		{"(0) (1,2,3)", MalformedRecord, 0},
		{"(0,0,1,1) (1,2,3)", MalformedRecord, 0},
		{"(0,0,0) (1,2,3)", MalformedRecord, 0},
		{"(0,a) (1,2,3)", MalformedRecord, 0},
		{"(-1,0) (1,2,3)", MalformedRecord, 0},
		{"(0,0) (1,2)", MalformedRecord, 0},
		{"(0,0) (1,2,3,4)", MalformedRecord, 0},
		{"(0,0) (1,+2,3)", MalformedRecord, 0},
		{"(0,0) (1,2,3) (4,5,6)", MalformedRecord, 0},
		{"(0,0) (256,0,0)", InvalidChannelValue, 1},
		{"(0,0,3) (0,0,999)", InvalidChannelValue, 3},
		{"(0,0) (-1,0,0)", InvalidChannelValue, 1},
		{"(0,0,2) (0,-255,0)", InvalidChannelValue, 2},
		{"(0,0) (0,0,99999999999999999999)", InvalidChannelValue, 1},
		{"(0,0) (0,-,0)", MalformedRecord, 0},
		{"(0,0) (0,--1,0)", MalformedRecord, 0},
		{"(5,5) (0,0,0)", OutOfBoundsCoordinate, 1},
		{"(0,4,2) (0,0,0)", OutOfBoundsCoordinate, 2},
	}
	for _, tt := range tests {
		res, err := DecodeString("4x4\n" + tt.line + "\n")
		if err != nil {
			t.Fatalf("%q: %v", tt.line, err)
		}
		if !res.Raster.Equal(NewRaster(4, 4, White)) {
			t.Errorf("%q modified the raster", tt.line)
		}
		if len(res.Skipped) != 1 {
			t.Errorf("%q: Skipped = %v", tt.line, res.Skipped)
			continue
		}
		d := res.Skipped[0]
		if d.Kind != tt.kind || d.Dropped != tt.dropped || d.Line != 2 {
			t.Errorf("%q: diagnostic = %+v, want kind %v dropped %d", tt.line, d, tt.kind, tt.dropped)
		}
	}
}

func TestDecodeClipsRuns(t *testing.T) {
	res, err := DecodeString("4x2\n(2,0,5) (1,1,1)\n")
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 4; x++ {
		want := White
		if x >= 2 {
			want = Color{1, 1, 1}
		}
		if got, _ := res.Raster.Pixel(x, 0); got != want {
			t.Errorf("Pixel(%d, 0) = %v, want %v", x, got, want)
		}
		if got, _ := res.Raster.Pixel(x, 1); got != White {
			t.Errorf("run wrapped into row 1 at x=%d", x)
		}
	}
	if res.Records != 1 || len(res.Skipped) != 1 || res.Skipped[0].Dropped != 3 {
		t.Errorf("records %d, skipped %v", res.Records, res.Skipped)
	}
}

func TestDecodeToleratesWhitespace(t *testing.T) {
	res, err := DecodeString("1 2x1  \r\n\n(0,0) (1,2,3)\r\n   \n(1,0) (4,5,6)")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 0 || res.Records != 2 {
		t.Fatalf("records %d, skipped %v", res.Records, res.Skipped)
	}
	if got, _ := res.Raster.Pixel(1, 0); got != (Color{4, 5, 6}) {
		t.Errorf("Pixel(1, 0) = %v", got)
	}
}

func TestDecodeLaterRecordsWin(t *testing.T) {
	res, err := DecodeString("3x1\n(0,0,3) (1,1,1)\n(1,0) (2,2,2)\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []Color{{1, 1, 1}, {2, 2, 2}, {1, 1, 1}}
	for x, c := range want {
		if got, _ := res.Raster.Pixel(x, 0); got != c {
			t.Errorf("Pixel(%d, 0) = %v, want %v", x, got, c)
		}
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{"", ErrMalformedHeader},
		{"abc\n(0,0) (1,1,1)\n", ErrMalformedHeader},
		{"\n2x2\n", ErrMalformedHeader},
		{"2 2x2\n", ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		res, err := DecodeString(tt.text)
		if !errors.Is(err, tt.want) {
			t.Errorf("DecodeString(%q) err = %v, want %v", tt.text, err, tt.want)
		}
		if res != nil {
			t.Errorf("DecodeString(%q) returned a result with a fatal error", tt.text)
		}
	}
}

func TestDecodeConfig(t *testing.T) {
	h, err := DecodeConfig(strings.NewReader("1 30x20\nnot read\n"))
	if err != nil {
		t.Fatal(err)
	}
	if h != (Header{Version: 1, Width: 30, Height: 20}) {
		t.Errorf("DecodeConfig = %+v", h)
	}
}

func TestDecodeLogsSkippedRecords(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	if _, err := DecodeString("1x1\n(9,9) (0,0,0)\n"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "record skipped") || !strings.Contains(out, "line=2") {
		t.Errorf("log output = %q", out)
	}
}
