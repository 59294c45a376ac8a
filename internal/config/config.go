// Package config resolves settings from defaults, an optional TOML file and
// environment variables, in that order. Command-line flags are applied last
// by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "autocut"

type Config struct {
	OutDir string

	Log          Log
	Media        Media
	ASR          ASR
	ElevenLabs   ElevenLabs
	Whisper      Whisper
	OpenRouter   OpenRouter
	Segmentation Segmentation

	// SpeakerLabels maps diarized speaker ids to display names.
	SpeakerLabels map[string]string
}

type Log struct {
	Level  string
	Format string
}

type Media struct {
	FFmpegPath          string
	FFprobePath         string
	CommandTimeout      time.Duration
	IntermediateEncoder string
}

type ASR struct {
	// Backend is elevenlabs or whispercpp.
	Backend string
}

type ElevenLabs struct {
	APIKey               string
	BaseURL              string
	AllowedHosts         []string
	ModelID              string
	Diarize              bool
	NumSpeakers          int
	LanguageCode         string
	DiarizationThreshold *float64
}

type Whisper struct {
	Bin   string
	Model string
}

type OpenRouter struct {
	APIKey       string
	Model        string
	BaseURL      string
	AllowedHosts []string
}

type Segmentation struct {
	MaxGap      float64
	MaxDuration float64
	MaxTokens   int
}

type fileConfig struct {
	OutDir string `toml:"out_dir"`
	Log    struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Media struct {
		FFmpegPath          string `toml:"ffmpeg_path"`
		FFprobePath         string `toml:"ffprobe_path"`
		CommandTimeout      string `toml:"command_timeout"`
		IntermediateEncoder string `toml:"intermediate_encoder"`
	} `toml:"media"`
	ASR struct {
		Backend string `toml:"backend"`
	} `toml:"asr"`
	ElevenLabs struct {
		APIKey               string   `toml:"api_key"`
		BaseURL              string   `toml:"base_url"`
		AllowedHosts         []string `toml:"allowed_hosts"`
		ModelID              string   `toml:"model_id"`
		Diarize              *bool    `toml:"diarize"`
		NumSpeakers          int      `toml:"num_speakers"`
		LanguageCode         string   `toml:"language_code"`
		DiarizationThreshold *float64 `toml:"diarization_threshold"`
	} `toml:"elevenlabs"`
	Whisper struct {
		Bin   string `toml:"bin"`
		Model string `toml:"model"`
	} `toml:"whisper"`
	OpenRouter struct {
		APIKey       string   `toml:"api_key"`
		Model        string   `toml:"model"`
		BaseURL      string   `toml:"base_url"`
		AllowedHosts []string `toml:"allowed_hosts"`
	} `toml:"openrouter"`
	Segmentation struct {
		MaxGap      *float64 `toml:"max_gap"`
		MaxDuration float64  `toml:"max_duration"`
		MaxTokens   int      `toml:"max_tokens"`
	} `toml:"segmentation"`
	SpeakerLabels map[string]string `toml:"speaker_labels"`
}

func Default() Config {
	return Config{
		OutDir: "out",
		Log:    Log{Level: "info", Format: "console"},
		Media: Media{
			FFmpegPath:          "ffmpeg",
			FFprobePath:         "ffprobe",
			IntermediateEncoder: "prores_ks",
		},
		ASR:          ASR{Backend: "elevenlabs"},
		ElevenLabs:   ElevenLabs{ModelID: "scribe_v1", Diarize: true},
		Whisper:      Whisper{Bin: "whisper-cli"},
		Segmentation: Segmentation{MaxGap: 0.6},
	}
}

// Load reads path, or the default location when path is empty. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := applyFile(&cfg, path); err != nil {
				return Config{}, err
			}
		} else if explicit {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/autocut/config.toml, falling back to ~/.config.
func DefaultPath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, appName)
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", appName)
	} else {
		return ""
	}
	return filepath.Join(configDir, "config.toml")
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("parse %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	setString(&cfg.OutDir, expandTilde(fc.OutDir))
	setString(&cfg.Log.Level, fc.Log.Level)
	setString(&cfg.Log.Format, fc.Log.Format)

	setString(&cfg.Media.FFmpegPath, expandTilde(fc.Media.FFmpegPath))
	setString(&cfg.Media.FFprobePath, expandTilde(fc.Media.FFprobePath))
	setString(&cfg.Media.IntermediateEncoder, fc.Media.IntermediateEncoder)
	if fc.Media.CommandTimeout != "" {
		d, err := time.ParseDuration(fc.Media.CommandTimeout)
		if err != nil {
			return fmt.Errorf("parse %s: media.command_timeout: %w", path, err)
		}
		cfg.Media.CommandTimeout = d
	}

	setString(&cfg.ASR.Backend, fc.ASR.Backend)

	el := fc.ElevenLabs
	setString(&cfg.ElevenLabs.APIKey, el.APIKey)
	setString(&cfg.ElevenLabs.BaseURL, el.BaseURL)
	setString(&cfg.ElevenLabs.ModelID, el.ModelID)
	setString(&cfg.ElevenLabs.LanguageCode, el.LanguageCode)
	if len(el.AllowedHosts) > 0 {
		cfg.ElevenLabs.AllowedHosts = el.AllowedHosts
	}
	if el.Diarize != nil {
		cfg.ElevenLabs.Diarize = *el.Diarize
	}
	if el.NumSpeakers > 0 {
		cfg.ElevenLabs.NumSpeakers = el.NumSpeakers
	}
	if el.DiarizationThreshold != nil {
		cfg.ElevenLabs.DiarizationThreshold = el.DiarizationThreshold
	}

	setString(&cfg.Whisper.Bin, expandTilde(fc.Whisper.Bin))
	setString(&cfg.Whisper.Model, expandTilde(fc.Whisper.Model))

	setString(&cfg.OpenRouter.APIKey, fc.OpenRouter.APIKey)
	setString(&cfg.OpenRouter.Model, fc.OpenRouter.Model)
	setString(&cfg.OpenRouter.BaseURL, fc.OpenRouter.BaseURL)
	if len(fc.OpenRouter.AllowedHosts) > 0 {
		cfg.OpenRouter.AllowedHosts = fc.OpenRouter.AllowedHosts
	}

	if fc.Segmentation.MaxGap != nil {
		cfg.Segmentation.MaxGap = *fc.Segmentation.MaxGap
	}
	cfg.Segmentation.MaxDuration = fc.Segmentation.MaxDuration
	cfg.Segmentation.MaxTokens = fc.Segmentation.MaxTokens

	if len(fc.SpeakerLabels) > 0 {
		cfg.SpeakerLabels = fc.SpeakerLabels
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.ElevenLabs.APIKey, os.Getenv("ELEVENLABS_API_KEY"))
	setString(&cfg.ElevenLabs.BaseURL, os.Getenv("ELEVENLABS_BASE_URL"))
	setString(&cfg.ElevenLabs.ModelID, os.Getenv("ELEVENLABS_MODEL_ID"))
	if v := splitList(os.Getenv("ELEVENLABS_ALLOWED_HOSTS")); len(v) > 0 {
		cfg.ElevenLabs.AllowedHosts = v
	}

	setString(&cfg.OpenRouter.APIKey, os.Getenv("OPENROUTER_API_KEY"))
	setString(&cfg.OpenRouter.Model, os.Getenv("OPENROUTER_MODEL"))
	setString(&cfg.OpenRouter.BaseURL, os.Getenv("OPENROUTER_BASE_URL"))
	if v := splitList(os.Getenv("OPENROUTER_ALLOWED_HOSTS")); len(v) > 0 {
		cfg.OpenRouter.AllowedHosts = v
	}

	setString(&cfg.Log.Level, os.Getenv("AUTOCUT_LOG_LEVEL"))
	setString(&cfg.Log.Format, os.Getenv("AUTOCUT_LOG_FORMAT"))
	setString(&cfg.OutDir, expandTilde(os.Getenv("AUTOCUT_OUT_DIR")))
	setString(&cfg.ASR.Backend, os.Getenv("AUTOCUT_ASR_BACKEND"))
	setString(&cfg.Whisper.Model, expandTilde(os.Getenv("WHISPER_MODEL")))

	if v := strings.TrimSpace(os.Getenv("AUTOCUT_COMMAND_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTOCUT_COMMAND_TIMEOUT: %w", err)
		}
		cfg.Media.CommandTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("AUTOCUT_MAX_GAP")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUTOCUT_MAX_GAP: %w", err)
		}
		cfg.Segmentation.MaxGap = f
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.ASR.Backend {
	case "elevenlabs", "whispercpp":
	default:
		errs = append(errs, fmt.Errorf("asr backend must be elevenlabs or whispercpp, got %q", c.ASR.Backend))
	}
	if c.Segmentation.MaxGap < 0 {
		errs = append(errs, errors.New("segmentation max_gap must be >= 0"))
	}
	if c.Segmentation.MaxDuration < 0 {
		errs = append(errs, errors.New("segmentation max_duration must be >= 0"))
	}
	if c.Segmentation.MaxTokens < 0 {
		errs = append(errs, errors.New("segmentation max_tokens must be >= 0"))
	}
	if c.Media.CommandTimeout < 0 {
		errs = append(errs, errors.New("media command_timeout must be >= 0"))
	}
	if c.ElevenLabs.NumSpeakers < 0 {
		errs = append(errs, errors.New("elevenlabs num_speakers must be >= 0"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
