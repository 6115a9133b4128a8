package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alefaraci/GoTPF/tpf"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	enc, err := cfg.Encoder()
	if err != nil {
		t.Fatal(err)
	}
	if enc.Mode != tpf.RunLength || enc.Background != tpf.White || enc.Version != tpf.Version1 {
		t.Errorf("default encoder = %+v", enc)
	}
	dec, err := cfg.Decoder()
	if err != nil {
		t.Fatal(err)
	}
	if dec.Fill == nil || *dec.Fill != tpf.White {
		t.Errorf("default fill = %v", dec.Fill)
	}
	if cfg.Watch.PollDuration() != 5*time.Second {
		t.Errorf("PollDuration() = %v", cfg.Watch.PollDuration())
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[encode]
mode = "skip-background"
background = "#102030"
version = 0

[decode]
fill = "000000"

[export]
jpeg_quality = 75

[watch]
sources = ["/a", "", "/b"]
location = "/out"
poll_interval = 2
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, _ := cfg.Encoder()
	want := tpf.Encoder{Mode: tpf.DenseSkipBackground, Background: tpf.Color{R: 0x10, G: 0x20, B: 0x30}}
	if *enc != want {
		t.Errorf("encoder = %+v, want %+v", *enc, want)
	}
	dec, _ := cfg.Decoder()
	if *dec.Fill != tpf.Black {
		t.Errorf("fill = %v", *dec.Fill)
	}
	if cfg.Export.JPEGQuality != 75 || cfg.Export.MaxTraceColors != 64 {
		t.Errorf("export = %+v", cfg.Export)
	}
	if dirs := cfg.Watch.InputDirs(); len(dirs) != 2 || dirs[0] != "/a" || dirs[1] != "/b" {
		t.Errorf("InputDirs() = %v", dirs)
	}
	if cfg.Watch.PollDuration() != 2*time.Second {
		t.Errorf("PollDuration() = %v", cfg.Watch.PollDuration())
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []string{
		"[encode]\nmode = \"zip\"\n",
		"[encode]\nbackground = \"#12345\"\n",
		"[encode]\nversion = 2\n",
		"[decode]\nfill = \"#GGGGGG\"\n",
		"[export]\njpeg_quality = 0\n",
		"[export]\nmax_trace_colors = 0\n",
		"[export]\nturd_size = -1\n",
		"not toml at all = = =",
	}
	for _, body := range tests {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Errorf("LoadConfig(%q) succeeded", body)
		}
	}
}

func TestHexColor(t *testing.T) {
	c, err := parseHexColor("#0a0B0c")
	if err != nil {
		t.Fatal(err)
	}
	if c != (tpf.Color{R: 10, G: 11, B: 12}) {
		t.Errorf("parseHexColor = %v", c)
	}
	if got := hexColor(c); got != "#0A0B0C" {
		t.Errorf("hexColor = %q", got)
	}
}
