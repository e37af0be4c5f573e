package wire

import (
	"os"
	"strconv"
)

// DefaultMaxDepth bounds message nesting during decode.
const DefaultMaxDepth = 100

// Config controls optional codec behaviors. It is passed to each call; the
// zero value is usable and equals DefaultConfig except for MaxDepth, which
// falls back to DefaultMaxDepth when unset.
type Config struct {
	// PreserveUnknownFields: when true, decoded messages keep the raw bytes of
	// fields the schema does not know, and encoding writes them back after the
	// known fields. When false, unknown fields are skipped and dropped.
	PreserveUnknownFields bool

	// MaxDepth limits submessage nesting. Zero means DefaultMaxDepth.
	MaxDepth int

	// StrictUTF8: when true, string fields holding invalid UTF-8 fail to
	// decode and encode with ErrInvalidUTF8.
	StrictUTF8 bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth}
}

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// ConfigFromEnv overlays PROTOCODEC_* environment toggles on base.
func ConfigFromEnv(base Config) Config {
	if v, ok := envBool("PROTOCODEC_PRESERVE_UNKNOWN"); ok {
		base.PreserveUnknownFields = v
	}
	if v, ok := envBool("PROTOCODEC_STRICT_UTF8"); ok {
		base.StrictUTF8 = v
	}
	if v := os.Getenv("PROTOCODEC_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			base.MaxDepth = n
		}
	}
	return base
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
