// Package config assembles the connector configuration from three layers:
// an optional YAML file, AJC_* environment variables, and command-line
// arguments, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mhabrnal/abrt-java-connector/internal/extrainfo"
)

// Destination names accepted in the report-to list.
const (
	DestLog    = "log"
	DestSyslog = "syslog"
	DestOTLP   = "otlp"
	DestSQLite = "sqlite"
)

// Config holds the assembled connector configuration.
type Config struct {
	// SocketPath is the unix socket the agent connects to; empty means the
	// event stream is read from stdin.
	SocketPath string `env:"AJC_SOCKET" yaml:"socket"`
	// Output is the report log destination: a path, or "-" for stderr.
	Output string `env:"AJC_OUTPUT" yaml:"output"`
	// ReportTo selects the enabled destinations.
	ReportTo []string `env:"AJC_REPORT_TO" yaml:"report_to"`
	// DatabasePath is the sqlite problem store location.
	DatabasePath string `env:"AJC_DATABASE" yaml:"database"`
	// CaughtTypes lists fault types reported even when caught.
	CaughtTypes []string `env:"AJC_CAUGHT_TYPES" envSeparator:":" yaml:"caught_types"`
	// DedupCapacity is the per-thread dedup window size.
	DedupCapacity int `env:"AJC_DEDUP_CAPACITY" yaml:"dedup_capacity"`
	// PID is the observed process; zero means the connector's own.
	PID int `env:"AJC_PID" yaml:"pid"`
	// Verbose enables debug logging.
	Verbose bool `env:"AJC_VERBOSE" yaml:"verbose"`
	// ExtraAttributes configures the additional-info expressions. File only.
	ExtraAttributes []extrainfo.Attribute `yaml:"extra_attributes"`
}

func defaults() *Config {
	return &Config{
		Output:   "-",
		ReportTo: []string{DestLog},
	}
}

// Load assembles the configuration for the given argv. The optional config
// file is located from --config or AJC_CONFIG before the other layers apply.
func Load(args []string) (*Config, error) {
	cfg := defaults()

	path := configFilePath(args)
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := applyArgs(cfg, args); err != nil {
		return nil, err
	}

	return cfg, validate(cfg)
}

// configFilePath pre-scans argv for --config, falling back to AJC_CONFIG.
func configFilePath(args []string) string {
	for i := 1; i < len(args)-1; i++ {
		if args[i] == "--config" {
			return args[i+1]
		}
	}
	return os.Getenv("AJC_CONFIG")
}

// applyArgs parses command-line arguments into cfg.
func applyArgs(cfg *Config, args []string) error {
	if len(args) == 0 {
		return nil
	}
	programName := args[0]

	for i := 1; i < len(args); i++ {
		arg := args[i]

		if arg == "--verbose" {
			cfg.Verbose = true
			continue
		}

		// Every remaining flag takes a value.
		if i+1 >= len(args) {
			return fmt.Errorf("%s requires a value", arg)
		}
		i++
		v := args[i]

		switch arg {
		case "--config":
			// Already consumed by configFilePath.
		case "--socket":
			cfg.SocketPath = v
		case "--output":
			cfg.Output = v
		case "--report-to":
			cfg.ReportTo = splitList(v, ",")
		case "--db":
			cfg.DatabasePath = v
		case "--caught":
			cfg.CaughtTypes = splitList(v, ":")
		case "--dedup-capacity":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("--dedup-capacity must be a number: %w", err)
			}
			cfg.DedupCapacity = n
		case "--pid":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("--pid must be a number: %w", err)
			}
			cfg.PID = n
		default:
			return fmt.Errorf("Usage: %s [--config <file>] [--socket <path>] [--output <file|->] "+
				"[--report-to log,syslog,otlp,sqlite] [--db <file>] [--caught <Type:Type>] "+
				"[--dedup-capacity <n>] [--pid <n>] [--verbose]", programName)
		}
	}
	return nil
}

func validate(cfg *Config) error {
	for _, dest := range cfg.ReportTo {
		switch dest {
		case DestLog, DestSyslog, DestOTLP, DestSQLite:
		default:
			return fmt.Errorf("unknown report destination %q", dest)
		}
	}
	if contains(cfg.ReportTo, DestSQLite) && cfg.DatabasePath == "" {
		return fmt.Errorf("sqlite destination requires --db")
	}
	if cfg.DedupCapacity < 0 {
		return fmt.Errorf("dedup capacity must not be negative")
	}
	return nil
}

// Reports reports whether a destination is enabled.
func (c *Config) Reports(dest string) bool {
	return contains(c.ReportTo, dest)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
