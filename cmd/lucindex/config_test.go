package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grob/lucindex"
)

func TestLoadConfig_missingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Index.Path != "data" {
		t.Errorf("** got %+v, wanted defaults", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lucindex.yaml")
	err := os.WriteFile(path, []byte(`
index:
  path: /tmp/idx
  analyzer: de
  idle_timeout: 50ms
  default_limit: 10
fields:
  - name: id
    kind: int
    stored: true
  - name: body
    kind: text
    parsed: true
  - name: born
    kind: date
    stored: true
    resolution: day
    location: UTC
logger:
  level: debug
  json: true
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Path != "/tmp/idx" || cfg.HTTP.Addr != ":8080" {
		t.Errorf("** got %+v", cfg)
	}

	opt, err := cfg.options(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	if opt.IdleTimeout != 50*time.Millisecond || opt.DefaultLimit != 10 {
		t.Errorf("** got %+v", opt)
	}
	if len(opt.Fields) != 3 {
		t.Fatalf("** got %d fields, wanted 3", len(opt.Fields))
	}
	if f := opt.Fields[1]; f.Kind() != lucindex.KindText || !f.Parsed() {
		t.Errorf("** body = %v", f)
	}
	if f := opt.Fields[2]; f.Kind() != lucindex.KindDate || f.Resolution() != lucindex.ResolutionDay {
		t.Errorf("** born = %v", f)
	}

	if _, err := cfg.Logger.handler(); err != nil {
		t.Error(err)
	}
}

func TestConfig_invalid(t *testing.T) {
	cfg := defaultConfig()
	cfg.Fields = []FieldConfig{{Name: "x", Kind: "blob"}}
	if _, err := cfg.options(nil); err == nil {
		t.Error("** unknown kind accepted")
	}
	cfg = defaultConfig()
	cfg.Index.IdleTimeout = "soon"
	if _, err := cfg.options(nil); err == nil {
		t.Error("** bad idle timeout accepted")
	}
	cfg.Logger.Level = "loud"
	if _, err := cfg.Logger.handler(); err == nil {
		t.Error("** bad level accepted")
	}
}
