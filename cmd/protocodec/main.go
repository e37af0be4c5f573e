// Command protocodec encodes, decodes and verifies protobuf messages against
// .proto schemas loaded at runtime.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec"
)

const appName = "protocodec"

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	kingpin.MustParse(app.Parse(os.Args[1:]))
}

// cli holds the global flags and the streams the commands use.
type cli struct {
	configPath  string
	protoPaths  []string
	logLevel    string
	logLevelSet bool

	in     io.Reader
	out    io.Writer
	logOut io.Writer
}

func newApp(in io.Reader, out, logOut io.Writer) *kingpin.Application {
	c := &cli{in: in, out: out, logOut: logOut}

	app := kingpin.New(appName, "Encode, decode and verify protobuf messages against .proto schemas.")
	app.UsageWriter(out)
	app.ErrorWriter(logOut)
	app.Flag("config", "TOML configuration file.").Short('c').StringVar(&c.configPath)
	app.Flag("proto-path", "A .proto file or directory to load; repeatable. Replaces proto_paths from the config file.").
		Short('I').StringsVar(&c.protoPaths)
	app.Flag("log-level", "Log level: debug, info, warn or error.").IsSetByUser(&c.logLevelSet).StringVar(&c.logLevel)

	addEncodeCommand(app, c)
	addDecodeCommand(app, c)
	addVerifyCommand(app, c)
	addListCommand(app, c)
	return app
}

func addEncodeCommand(app *kingpin.Application, c *cli) {
	var (
		typeName, input, encoding string
		encodingSet               bool
	)
	cmd := app.Command("encode", "Encode a JSON message to protobuf bytes.")
	cmd.Arg("type", "Fully-qualified message type.").Required().StringVar(&typeName)
	cmd.Flag("input", "JSON input file, - for stdin.").Short('i').Default("-").StringVar(&input)
	cmd.Flag("output-encoding", "Encoding of the written bytes: hex, base64 or raw.").
		IsSetByUser(&encodingSet).EnumVar(&encoding, encodingHex, encodingBase64, encodingRaw)

	cmd.Action(func(_ *kingpin.ParseContext) error {
		codec, cfg, err := c.setup()
		if err != nil {
			return err
		}
		if encodingSet {
			cfg.OutputEncoding = encoding
		}
		data, err := c.read(input)
		if err != nil {
			return err
		}
		m, err := codec.UnmarshalJSON(data, typeName)
		if err != nil {
			return fmt.Errorf("encode %s: %w", typeName, err)
		}
		b, err := codec.Encode(m)
		if err != nil {
			return fmt.Errorf("encode %s: %w", typeName, err)
		}
		return c.writeBytes(b, cfg.OutputEncoding)
	})
}

func addDecodeCommand(app *kingpin.Application, c *cli) {
	var (
		typeName, input, encoding string
		encodingSet               bool
	)
	cmd := app.Command("decode", "Decode protobuf bytes to JSON.")
	cmd.Arg("type", "Fully-qualified message type.").Required().StringVar(&typeName)
	cmd.Flag("input", "Encoded input file, - for stdin.").Short('i').Default("-").StringVar(&input)
	cmd.Flag("input-encoding", "Encoding of the read bytes: hex, base64 or raw. Defaults to output_encoding.").
		IsSetByUser(&encodingSet).EnumVar(&encoding, encodingHex, encodingBase64, encodingRaw)

	cmd.Action(func(_ *kingpin.ParseContext) error {
		codec, cfg, err := c.setup()
		if err != nil {
			return err
		}
		if !encodingSet {
			encoding = cfg.OutputEncoding
		}
		data, err := c.read(input)
		if err != nil {
			return err
		}
		b, err := decodeInput(data, encoding)
		if err != nil {
			return err
		}
		m, err := codec.Decode(b, typeName)
		if err != nil {
			return fmt.Errorf("decode %s: %w", typeName, err)
		}
		js, err := codec.MarshalJSON(m)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, string(js))
		return err
	})
}

func addVerifyCommand(app *kingpin.Application, c *cli) {
	var typeName, input string
	cmd := app.Command("verify", "Check a JSON message against a type without encoding it.")
	cmd.Arg("type", "Fully-qualified message type.").Required().StringVar(&typeName)
	cmd.Flag("input", "JSON input file, - for stdin.").Short('i').Default("-").StringVar(&input)

	cmd.Action(func(_ *kingpin.ParseContext) error {
		codec, _, err := c.setup()
		if err != nil {
			return err
		}
		data, err := c.read(input)
		if err != nil {
			return err
		}
		if err := codec.VerifyJSON(data, typeName); err != nil {
			return fmt.Errorf("%s: %w", typeName, err)
		}
		_, err = fmt.Fprintln(c.out, "ok")
		return err
	})
}

func addListCommand(app *kingpin.Application, c *cli) {
	var kind string
	cmd := app.Command("list", "List the registered types.")
	cmd.Flag("kind", "What to list: messages, enums, services or all.").
		Default("all").EnumVar(&kind, "messages", "enums", "services", "all")

	cmd.Action(func(_ *kingpin.ParseContext) error {
		codec, _, err := c.setup()
		if err != nil {
			return err
		}
		groups := []struct {
			kind  string
			names []string
		}{
			{"message", codec.ListMessages()},
			{"enum", codec.ListEnums()},
			{"service", codec.ListServices()},
		}
		for _, g := range groups {
			if kind != "all" && kind != g.kind+"s" {
				continue
			}
			for _, name := range g.names {
				if _, err := fmt.Fprintf(c.out, "%s %s\n", g.kind, name); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// setup merges the config file and flags, then loads every proto path into
// a new codec.
func (c *cli) setup() (*protocodec.Protocodec, Config, error) {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return nil, Config{}, err
	}
	if len(c.protoPaths) > 0 {
		cfg.ProtoPaths = c.protoPaths
	}
	if c.logLevelSet {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, Config{}, fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(c.logOut, cfg.LogLevel)
	codec := protocodec.New(
		protocodec.WithConfig(cfg.WireConfig()),
		protocodec.WithLogger(logger),
		protocodec.WithProtoDirectories(importDirs(cfg.ProtoPaths)...),
	)
	for _, p := range cfg.ProtoPaths {
		if err := codec.LoadSchema(p); err != nil {
			return nil, Config{}, fmt.Errorf("load %s: %w", p, err)
		}
	}
	logger.Debug().Strs("proto_paths", cfg.ProtoPaths).Int("messages", len(codec.ListMessages())).Msg("schemas loaded")
	return codec, cfg, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", appName).Logger()
}

// importDirs returns the directories imports resolve against: each directory
// path itself and the parent of each file path.
func importDirs(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var dirs []string
	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (c *cli) read(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func (c *cli) writeBytes(b []byte, encoding string) error {
	var err error
	switch encoding {
	case encodingRaw:
		_, err = c.out.Write(b)
	case encodingBase64:
		_, err = fmt.Fprintln(c.out, base64.StdEncoding.EncodeToString(b))
	default:
		_, err = fmt.Fprintln(c.out, hex.EncodeToString(b))
	}
	return err
}

func decodeInput(data []byte, encoding string) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch encoding {
	case encodingRaw:
		return data, nil
	case encodingBase64:
		b, err = base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	default:
		b, err = hex.DecodeString(strings.TrimSpace(string(data)))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s input: %w", encoding, err)
	}
	return b, nil
}
