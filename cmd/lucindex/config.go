package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/grob/lucindex"
	"github.com/grob/lucindex/engine"
)

type Config struct {
	Index  IndexConfig   `yaml:"index"`
	Fields []FieldConfig `yaml:"fields"`
	HTTP   HTTPConfig    `yaml:"http"`
	Logger LoggerConfig  `yaml:"logger"`
}

type IndexConfig struct {
	// Path is the index directory; empty means an in-memory index.
	Path         string `yaml:"path"`
	Version      string `yaml:"version"`
	ForceCreate  bool   `yaml:"force_create"`
	Analyzer     string `yaml:"analyzer"`
	IdleTimeout  string `yaml:"idle_timeout"`
	DefaultLimit int    `yaml:"default_limit"`
	Compression  bool   `yaml:"compression"`
}

type FieldConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Stored     bool   `yaml:"stored"`
	Parsed     bool   `yaml:"parsed"`
	Resolution string `yaml:"resolution"`
	Location   string `yaml:"location"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func defaultConfig() Config {
	return Config{
		Index:  IndexConfig{Path: "data", IdleTimeout: lucindex.DefaultIdleTimeout.String()},
		HTTP:   HTTPConfig{Addr: ":8080"},
		Logger: LoggerConfig{Level: "info"},
	}
}

// loadConfig reads the YAML config at path over the defaults. A missing
// file yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("config file not found, using defaults", "path", path)
		return cfg, nil
	} else if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) options(logger *slog.Logger) (lucindex.Options, error) {
	opt := lucindex.Options{
		Analyzer:     engine.LanguageAnalyzer(c.Index.Analyzer),
		Version:      c.Index.Version,
		ForceCreate:  c.Index.ForceCreate,
		DefaultLimit: c.Index.DefaultLimit,
		Compression:  c.Index.Compression,
		Logger:       logger,
	}
	if c.Index.IdleTimeout != "" {
		d, err := time.ParseDuration(c.Index.IdleTimeout)
		if err != nil {
			return opt, fmt.Errorf("index.idle_timeout: %w", err)
		}
		opt.IdleTimeout = d
	}
	for i, fc := range c.Fields {
		f, err := fc.field()
		if err != nil {
			return opt, fmt.Errorf("fields[%d]: %w", i, err)
		}
		opt.Fields = append(opt.Fields, f)
	}
	return opt, nil
}

func (fc *FieldConfig) field() (*lucindex.Field, error) {
	kind, err := lucindex.ParseKind(fc.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case lucindex.KindText:
		if fc.Parsed {
			return lucindex.ParsedTextField(fc.Name, fc.Stored), nil
		}
		return lucindex.TextField(fc.Name, fc.Stored), nil
	case lucindex.KindString:
		return lucindex.StringField(fc.Name, fc.Stored), nil
	case lucindex.KindInt:
		return lucindex.IntField(fc.Name, fc.Stored), nil
	case lucindex.KindLong:
		return lucindex.LongField(fc.Name, fc.Stored), nil
	case lucindex.KindDouble:
		return lucindex.DoubleField(fc.Name, fc.Stored), nil
	case lucindex.KindDate:
		res, err := lucindex.ParseResolution(fc.Resolution)
		if err != nil {
			return nil, err
		}
		f := lucindex.DateField(fc.Name, fc.Stored, res)
		if fc.Location != "" {
			loc, err := time.LoadLocation(fc.Location)
			if err != nil {
				return nil, err
			}
			f = f.In(loc)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported kind %v", kind)
}

func (c *LoggerConfig) handler() (slog.Handler, error) {
	var level slog.Level
	if s := strings.TrimSpace(c.Level); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("logger.level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.JSON {
		return slog.NewJSONHandler(os.Stderr, opts), nil
	}
	return slog.NewTextHandler(os.Stderr, opts), nil
}
