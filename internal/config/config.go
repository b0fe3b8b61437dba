// Package config loads hull.yaml.
//
// The file is checked against an embedded CUE schema before it is decoded,
// so typos and out-of-range values are reported with their path instead of
// being silently ignored. Every key is optional; Default supplies the rest.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hull/internal/archive"
	"github.com/roach88/hull/internal/replay"
)

//go:embed schema.cue
var schemaSource string

// Config is the decoded configuration file.
type Config struct {
	Database string        `yaml:"database"`
	Log      LogConfig     `yaml:"log"`
	Replay   ReplayConfig  `yaml:"replay"`
	Sweep    SweepConfig   `yaml:"sweep"`
	Hooks    HooksConfig   `yaml:"hooks"`
	Archive  ArchiveConfig `yaml:"archive"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReplayConfig tunes rewinds.
type ReplayConfig struct {
	OnDecodeError string `yaml:"on_decode_error"`
	BatchSize     int    `yaml:"batch_size"`
}

// SweepConfig tunes the idle-worker sweep run by the daemon.
type SweepConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Interval  Duration `yaml:"interval"`
	IdleAfter Duration `yaml:"idle_after"`
}

// HooksConfig maps notification topics to commands.
type HooksConfig struct {
	GroupReassigned []string `yaml:"group_reassigned"`
	EmergencyBlow   []string `yaml:"emergency_blow"`
	Rewound         []string `yaml:"rewound"`
	Buffer          int      `yaml:"buffer"`
	Timeout         Duration `yaml:"timeout"`
}

// ArchiveConfig says where ledger archives go. S3 wins over Dir when both are set.
type ArchiveConfig struct {
	Dir string            `yaml:"dir"`
	S3  *archive.S3Config `yaml:"s3"`
}

// MetricsConfig sets the daemon's Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: "hull.db",
		Log:      LogConfig{Level: "info", Format: "text"},
		Replay:   ReplayConfig{OnDecodeError: "abort", BatchSize: 500},
		Sweep: SweepConfig{
			Enabled:   true,
			Interval:  Duration(30 * time.Second),
			IdleAfter: Duration(5 * time.Minute),
		},
		Hooks: HooksConfig{Buffer: 64, Timeout: Duration(10 * time.Second)},
	}
}

// Load reads and validates the file at path. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates data against the schema and decodes it over Default.
func Parse(data []byte) (Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := checkSchema(doc); err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func checkSchema(doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// Validate checks the rules the schema cannot express.
func (c Config) Validate() error {
	if _, err := replay.ParsePolicy(c.Replay.OnDecodeError); err != nil {
		return err
	}
	if c.Sweep.Enabled && (c.Sweep.Interval <= 0 || c.Sweep.IdleAfter <= 0) {
		return fmt.Errorf("sweep: interval and idle_after must be positive")
	}
	return nil
}

// ReplayOptions returns the replay options the file selects.
func (c Config) ReplayOptions() replay.Options {
	policy, _ := replay.ParsePolicy(c.Replay.OnDecodeError)
	return replay.Options{OnDecodeError: policy, PageSize: c.Replay.BatchSize}
}

// Handler builds the slog handler LogConfig selects, writing to w.
func (l LogConfig) Handler(w io.Writer) (slog.Handler, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("log format %q (want text or json)", l.Format)
	}
}
