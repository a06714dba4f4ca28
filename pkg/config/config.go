package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	opts "github.com/goliatone/go-langopts"
	"github.com/goliatone/go-langopts/pkg/activity"
)

// Prefix is prepended to every environment variable name.
const Prefix = "LANGOPTS_"

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

var (
	ErrLoadingEnvFile   = errors.New("failed to load env file")
	ErrParsingConfig    = errors.New("failed to parse config")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Config is the environment configuration of a settings host.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	// Evaluator selects the engine for Options.Evaluate and expression
	// filters: expr, cel or js.
	Evaluator       string `env:"EVALUATOR" envDefault:"expr"`
	ActivityEnabled bool   `env:"ACTIVITY_ENABLED" envDefault:"false"`
	ActivityChannel string `env:"ACTIVITY_CHANNEL" envDefault:"options"`
	// ActivityVerbs restricts emitted verbs; empty emits all of them.
	ActivityVerbs []string `env:"ACTIVITY_VERBS" envSeparator:","`
	Flags         []string `env:"FLAGS" envSeparator:","`
	LanguagesFile string   `env:"LANGUAGES_FILE"`
	Domain        string   `env:"DOMAIN" envDefault:"language_settings"`
}

// Load reads files into the process environment, then parses LANGOPTS_*
// variables. Without files an optional .env in the working directory is
// read.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, errors.Join(ErrLoadingEnvFile, err)
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromMap parses vars, keyed without the prefix, ignoring the process
// environment.
func FromMap(vars map[string]string) (Config, error) {
	environment := make(map[string]string, len(vars))
	for key, value := range vars {
		environment[Prefix+key] = value
	}
	return parse(env.Options{Prefix: Prefix, Environment: environment})
}

func parse(options env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, options); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("%w %q: must be %q or %q", ErrInvalidLogFormat, c.LogFormat, FormatJSON, FormatText)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w %q: %v", ErrInvalidLogLevel, c.LogLevel, err)
	}
	return level, nil
}

// Logger builds a slog logger writing to w, stderr when w is nil.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	handlerOptions := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, handlerOptions)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, handlerOptions)), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidLogFormat, c.LogFormat)
	}
}

// NewEvaluator builds the configured evaluator sharing cache and functions.
func (c Config) NewEvaluator(cache opts.ProgramCache, functions *opts.FunctionRegistry) (opts.Evaluator, error) {
	return opts.EvaluatorByName(strings.ToLower(c.Evaluator), cache, functions)
}

// Activity returns the emitter configuration.
func (c Config) Activity() activity.Config {
	return activity.Config{Enabled: c.ActivityEnabled, Channel: c.ActivityChannel, Verbs: c.ActivityVerbs}
}
