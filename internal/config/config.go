// Package config layers subcut settings: built-in defaults, an optional TOML
// file, then SUBCUT_* environment variables. Command-line flags are applied on
// top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/subcut/internal/language"
	"github.com/forPelevin/subcut/internal/models"
)

const (
	EngineWhisperCPP = "whispercpp"
	EngineOpenAI     = "openai"

	FormatSRT = "srt"
	FormatASS = "ass"

	EnvPrefix = "SUBCUT_"
)

type Config struct {
	Model        string `toml:"model" env:"MODEL"`
	ModelDir     string `toml:"model_dir" env:"MODEL_DIR"`
	ModelBaseURL string `toml:"model_base_url" env:"MODEL_BASE_URL"`

	Engine    string `toml:"engine" env:"ENGINE"`
	Language  string `toml:"language" env:"LANGUAGE"`
	Translate bool   `toml:"translate" env:"TRANSLATE"`
	SDH       bool   `toml:"sdh" env:"SDH"`
	SubFormat string `toml:"sub_format" env:"SUB_FORMAT"`
	NoMerge   bool   `toml:"no_merge" env:"NO_MERGE"`

	LeadSeconds float64 `toml:"lead_seconds" env:"LEAD_SECONDS"`
	EndSeconds  float64 `toml:"end_seconds" env:"END_SECONDS"`
	Strict      bool    `toml:"strict" env:"STRICT"`
	KeepTemp    bool    `toml:"keep_temp" env:"KEEP_TEMP"`

	Repair     bool   `toml:"repair" env:"REPAIR"`
	RepairTool string `toml:"repair_tool" env:"REPAIR_TOOL"`

	FFmpegPath string `toml:"ffmpeg" env:"FFMPEG"`
	WhisperBin string `toml:"whisper_bin" env:"WHISPER_BIN"`

	OpenAIAPIKey       string   `toml:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string   `toml:"openai_base_url" env:"OPENAI_BASE_URL"`
	OpenAIAllowedHosts []string `toml:"openai_allowed_hosts" env:"OPENAI_ALLOWED_HOSTS" envSeparator:","`
	OpenAIModel        string   `toml:"openai_model" env:"OPENAI_MODEL"`

	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `toml:"log_file" env:"LOG_FILE"`
}

func Default() Config {
	return Config{
		Model:      string(models.Base),
		ModelDir:   defaultModelDir(),
		Engine:     EngineWhisperCPP,
		SubFormat:  FormatSRT,
		Repair:     true,
		FFmpegPath: "ffmpeg",
		WhisperBin: "whisper-cli",
		LogLevel:   "info",
	}
}

func defaultModelDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "subcut", "models")
	}
	return filepath.Join(".cache", "models")
}

// DefaultPath is where Load looks when no file is named.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "subcut", "config.toml")
}

// Load builds the configuration from defaults, the TOML file at path (or
// DefaultPath when empty) and the environment. A named file must exist; the
// default one is optional. It returns the file actually read, if any.
func Load(path string) (Config, string, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	used := ""
	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
				return Config{}, "", fmt.Errorf("parse config %s: %w", path, err)
			}
			used = path
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, "", fmt.Errorf("open config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, "", fmt.Errorf("config env: %w", err)
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, used, nil
}

// Validate checks values that do not depend on the filesystem.
func (c Config) Validate() error {
	var errs []error
	if _, err := models.ParseTier(c.Model); err != nil && c.Engine != EngineOpenAI {
		errs = append(errs, err)
	}
	switch c.Engine {
	case EngineWhisperCPP, EngineOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q (want %s or %s)", c.Engine, EngineWhisperCPP, EngineOpenAI))
	}
	switch strings.ToLower(c.SubFormat) {
	case FormatSRT, FormatASS:
	default:
		errs = append(errs, fmt.Errorf("unknown subtitle format %q (want srt or ass)", c.SubFormat))
	}
	if c.LeadSeconds < 0 {
		errs = append(errs, fmt.Errorf("lead seconds must be >= 0"))
	}
	if c.EndSeconds < 0 {
		errs = append(errs, fmt.Errorf("end seconds must be >= 0"))
	}
	if _, err := language.Resolve(c.Language); err != nil {
		errs = append(errs, err)
	}
	if c.Engine == EngineOpenAI && c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("openai engine needs SUBCUT_OPENAI_API_KEY or OPENAI_API_KEY"))
	}
	return errors.Join(errs...)
}
