// Package config loads runtime configuration. Precedence, lowest to
// highest: built-in defaults, an optional YAML config file, FLASHDECK_*
// environment variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// Listen is the address the local UI server binds to.
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	// DB is the path of the sqlite database file.
	DB string `koanf:"db" validate:"required"`
	// StudyTick is how often accumulated study time is flushed.
	StudyTick time.Duration `koanf:"study-tick" validate:"required,min=1s"`
	// FeedbackDelay is how long answer feedback stays on screen before
	// the quiz advances.
	FeedbackDelay time.Duration `koanf:"feedback-delay" validate:"required,min=100ms,max=30s"`
	// SyncOnStart runs a deck-source sync pass at startup.
	SyncOnStart bool `koanf:"sync-on-start"`
	// ReposDir is where git deck sources are checked out.
	ReposDir string `koanf:"repos-dir" validate:"required"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"listen":         "127.0.0.1:8484",
		"db":             "flashdeck.db",
		"study-tick":     time.Minute,
		"feedback-delay": 2 * time.Second,
		"sync-on-start":  false,
		"repos-dir":      "repos",
	}
}

// Flags defines the command-line flag set. The caller parses it before
// handing it to Load.
func Flags() *flag.FlagSet {
	f := flag.NewFlagSet("flashdeck", flag.ExitOnError)
	f.String("listen", "", "address for the local UI server")
	f.String("db", "", "path to the sqlite database file")
	f.String("config", "", "path to an optional YAML config file")
	f.Duration("study-tick", 0, "study time flush interval")
	f.Duration("feedback-delay", 0, "answer feedback display time")
	f.Bool("sync-on-start", false, "sync deck sources at startup")
	f.String("repos-dir", "", "checkout directory for git deck sources")
	f.String("add-source", "", "register a deck source (path or git URL) and exit")
	return f
}

// Load resolves configuration from defaults, the optional config file,
// the environment, and parsed flags, then validates the result.
func Load(f *flag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "FLASHDECK_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, "FLASHDECK_")
			key = strings.ReplaceAll(strings.ToLower(key), "_", "-")
			return key, value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	// Existing keys mean flag defaults never clobber file/env values;
	// only flags the user actually set take precedence.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed reports the config file path passed on the command line,
// if any. Exposed for startup logging.
func ConfigFileUsed(f *flag.FlagSet) string {
	path, _ := f.GetString("config")
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
