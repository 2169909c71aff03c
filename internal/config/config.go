package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/yungbote/senseboard-backend/internal/pkg/envutil"
)

// Config is the runtime configuration for a SenseBoard server instance.
// Values are read from an optional TOML file and may be overridden by
// environment variables; the environment always wins.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
	AI            AIConfig            `toml:"ai"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Capture       CaptureConfig       `toml:"capture"`
	Bus           BusConfig           `toml:"bus"`
	Store         StoreConfig         `toml:"store"`
}

type ServerConfig struct {
	Port         int `toml:"port"`
	PortScanSpan int `toml:"port_scan_span"`
}

type LoggingConfig struct {
	Mode  string `toml:"mode"`
	Level string `toml:"level"`
}

type AIConfig struct {
	Provider                 string         `toml:"provider"`
	OpenAIModel              string         `toml:"openai_model"`
	CodexModel               string         `toml:"codex_model"`
	AnthropicModel           string         `toml:"anthropic_model"`
	OpenAITranscriptionModel string         `toml:"openai_transcription_model"`
	OpenAIAPIKey             string         `toml:"openai_api_key"`
	AnthropicAPIKey          string         `toml:"anthropic_api_key"`
	Review                   AIReviewConfig `toml:"review"`
}

type AIReviewConfig struct {
	MaxRevisions        int     `toml:"max_revisions"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

type TranscriptionConfig struct {
	Provider string `toml:"provider"`
}

type CaptureConfig struct {
	TranscriptionChunks CaptureChunksConfig `toml:"transcription_chunks"`
}

type CaptureChunksConfig struct {
	Enabled   bool   `toml:"enabled"`
	Directory string `toml:"directory"`
}

// BusConfig configures the optional cross-instance snapshot bus. An empty
// RedisAddr disables it.
type BusConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

type StoreConfig struct {
	PersonalizationPath string `toml:"personalization_path"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: 8787, PortScanSpan: 10},
		Logging: LoggingConfig{Mode: "development", Level: "info"},
		AI: AIConfig{
			Provider:                 "auto",
			OpenAIModel:              "gpt-4.1-mini",
			CodexModel:               "gpt-5-codex",
			AnthropicModel:           "claude-sonnet-4-5",
			OpenAITranscriptionModel: "whisper-1",
			Review: AIReviewConfig{
				MaxRevisions:        20,
				ConfidenceThreshold: 0.98,
			},
		},
		Transcription: TranscriptionConfig{Provider: "stub"},
		Capture: CaptureConfig{
			TranscriptionChunks: CaptureChunksConfig{Directory: "./captures"},
		},
		Store: StoreConfig{PersonalizationPath: "senseboard.db"},
	}
}

// Load reads the config file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envutil.Int("SENSEBOARD_SERVER_PORT", c.Server.Port)
	c.Server.PortScanSpan = envutil.Int("SENSEBOARD_SERVER_PORT_SCAN_SPAN", c.Server.PortScanSpan)

	c.Logging.Mode = envutil.String("SENSEBOARD_LOG_MODE", c.Logging.Mode)
	c.Logging.Level = envutil.String("SENSEBOARD_LOG_LEVEL", c.Logging.Level)

	c.AI.Provider = envutil.String("SENSEBOARD_AI_PROVIDER", c.AI.Provider)
	c.AI.OpenAIModel = envutil.String("SENSEBOARD_AI_OPENAI_MODEL", c.AI.OpenAIModel)
	c.AI.CodexModel = envutil.String("SENSEBOARD_AI_CODEX_MODEL", c.AI.CodexModel)
	c.AI.AnthropicModel = envutil.String("SENSEBOARD_AI_ANTHROPIC_MODEL", c.AI.AnthropicModel)
	c.AI.OpenAITranscriptionModel = envutil.String("SENSEBOARD_AI_OPENAI_TRANSCRIPTION_MODEL", c.AI.OpenAITranscriptionModel)
	c.AI.OpenAIAPIKey = envutil.String("SENSEBOARD_AI_OPENAI_API_KEY", envutil.String("OPENAI_API_KEY", c.AI.OpenAIAPIKey))
	c.AI.AnthropicAPIKey = envutil.String("SENSEBOARD_AI_ANTHROPIC_API_KEY", envutil.String("ANTHROPIC_API_KEY", c.AI.AnthropicAPIKey))
	c.AI.Review.MaxRevisions = envutil.Int("SENSEBOARD_AI_REVIEW_MAX_REVISIONS", c.AI.Review.MaxRevisions)
	c.AI.Review.ConfidenceThreshold = envutil.Float("SENSEBOARD_AI_REVIEW_CONFIDENCE_THRESHOLD", c.AI.Review.ConfidenceThreshold)

	c.Transcription.Provider = envutil.String("SENSEBOARD_TRANSCRIPTION_PROVIDER", c.Transcription.Provider)

	c.Capture.TranscriptionChunks.Enabled = envutil.Bool("SENSEBOARD_CAPTURE_TRANSCRIPTION_CHUNKS", c.Capture.TranscriptionChunks.Enabled)
	c.Capture.TranscriptionChunks.Directory = envutil.String("SENSEBOARD_CAPTURE_DIRECTORY", c.Capture.TranscriptionChunks.Directory)

	c.Bus.RedisAddr = envutil.String("SENSEBOARD_REDIS_ADDR", c.Bus.RedisAddr)
	c.Bus.RedisPassword = envutil.String("SENSEBOARD_REDIS_PASSWORD", c.Bus.RedisPassword)
	c.Bus.RedisDB = envutil.Int("SENSEBOARD_REDIS_DB", c.Bus.RedisDB)

	c.Store.PersonalizationPath = envutil.String("SENSEBOARD_PERSONALIZATION_PATH", c.Store.PersonalizationPath)
}

func (c *Config) normalize() error {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case "deterministic", "openai", "codex_cli", "anthropic", "auto":
	case "":
		c.AI.Provider = "auto"
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}

	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	switch c.Transcription.Provider {
	case "stub", "openai", "gcp":
	case "":
		c.Transcription.Provider = "stub"
	default:
		return fmt.Errorf("unknown transcription.provider %q", c.Transcription.Provider)
	}

	if c.AI.Review.MaxRevisions < 1 {
		c.AI.Review.MaxRevisions = 1
	}
	// Thresholds on a 0-10 scale are normalized down to 0-1.
	if c.AI.Review.ConfidenceThreshold > 1 && c.AI.Review.ConfidenceThreshold <= 10 {
		c.AI.Review.ConfidenceThreshold /= 10
	}
	if c.AI.Review.ConfidenceThreshold < 0 || c.AI.Review.ConfidenceThreshold > 1 {
		return fmt.Errorf("ai.review.confidence_threshold %v out of range", c.AI.Review.ConfidenceThreshold)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.PortScanSpan < 1 {
		c.Server.PortScanSpan = 1
	}
	return nil
}
