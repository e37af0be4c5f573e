package protocodec

import (
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/wire"
)

type options struct {
	config   wire.Config
	logger   zerolog.Logger
	registry []registry.Option
}

// Option configures a Protocodec.
type Option func(*options)

// WithConfig sets the codec configuration used by Encode and Decode.
func WithConfig(cfg wire.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the logger for schema loading.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProtoDirectories adds directories that .proto imports resolve against.
func WithProtoDirectories(dirs ...string) Option {
	return func(o *options) {
		o.registry = append(o.registry, registry.WithProtoDirectories(dirs...))
	}
}

// WithRequireZeroFirstEnum rejects proto3 enums whose first value is not zero.
func WithRequireZeroFirstEnum(require bool) Option {
	return func(o *options) {
		o.registry = append(o.registry, registry.WithRequireZeroFirstEnum(require))
	}
}
