package main

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/wire"
)

const (
	encodingHex    = "hex"
	encodingBase64 = "base64"
	encodingRaw    = "raw"
)

// Config is the tool configuration. Values come from the defaults, then the
// TOML file, then command line flags.
type Config struct {
	ProtoPaths      []string `toml:"proto_paths"`
	PreserveUnknown bool     `toml:"preserve_unknown"`
	MaxDepth        int      `toml:"max_depth"`
	StrictUTF8      bool     `toml:"strict_utf8"`
	OutputEncoding  string   `toml:"output_encoding"`
	LogLevel        string   `toml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		MaxDepth:       wire.DefaultMaxDepth,
		OutputEncoding: encodingHex,
		LogLevel:       zerolog.LevelWarnValue,
	}
}

// LoadConfig reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load protocodec config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load protocodec config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("proto_paths") {
		cfg.ProtoPaths = raw.ProtoPaths
	}
	if meta.IsDefined("preserve_unknown") {
		cfg.PreserveUnknown = raw.PreserveUnknown
	}
	if meta.IsDefined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("strict_utf8") {
		cfg.StrictUTF8 = raw.StrictUTF8
	}
	if meta.IsDefined("output_encoding") {
		cfg.OutputEncoding = raw.OutputEncoding
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = raw.LogLevel
	}
	return cfg, nil
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	if len(c.ProtoPaths) == 0 {
		return errors.New("at least one proto path is required")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	switch c.OutputEncoding {
	case encodingHex, encodingBase64, encodingRaw:
	default:
		return fmt.Errorf("output_encoding must be hex, base64 or raw, got %q", c.OutputEncoding)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// WireConfig returns the codec settings of c with any PROTOCODEC_*
// environment toggles applied on top.
func (c Config) WireConfig() wire.Config {
	return wire.ConfigFromEnv(wire.Config{
		PreserveUnknownFields: c.PreserveUnknown,
		MaxDepth:              c.MaxDepth,
		StrictUTF8:            c.StrictUTF8,
	})
}
