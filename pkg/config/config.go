// Package config loads application settings from a YAML file, a .env file
// and SIGHT_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "SIGHT"
	configName = "sight"
)

const (
	AnalysisNavigator = "navigator"
	AnalysisGemini    = "gemini"
	AnalysisBedrock   = "bedrock"
	AnalysisAnthropic = "anthropic"
	AnalysisOffline   = "offline"

	SpeechDevice       = "device"
	SpeechUnrealSpeech = "unrealspeech"
)

type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Music         MusicConfig         `mapstructure:"music"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Orchestrator  OrchestratorConfig  `mapstructure:"orchestrator"`
	Vision        VisionConfig        `mapstructure:"vision"`
	Accessibility AccessibilityConfig `mapstructure:"accessibility"`
	Capture       CaptureConfig       `mapstructure:"capture"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AnalysisConfig struct {
	// Provider is navigator, gemini, bedrock, anthropic or offline.
	Provider  string        `mapstructure:"provider"`
	BaseURL   string        `mapstructure:"baseURL"`
	APIKey    string        `mapstructure:"apiKey"`
	Model     string        `mapstructure:"model"`
	Region    string        `mapstructure:"region"`
	MaxTokens int           `mapstructure:"maxTokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SpeechConfig struct {
	// Provider is device or unrealspeech.
	Provider      string        `mapstructure:"provider"`
	Engine        string        `mapstructure:"engine"`
	Voice         string        `mapstructure:"voice"`
	BaseURL       string        `mapstructure:"baseURL"`
	APIKey        string        `mapstructure:"apiKey"`
	PlayerCommand string        `mapstructure:"playerCommand"`
	Timeout       time.Duration `mapstructure:"timeout"`

	// Bitrate, Speed and Pitch tune the unrealspeech voice.
	Bitrate string  `mapstructure:"bitrate"`
	Speed   float64 `mapstructure:"speed"`
	Pitch   float64 `mapstructure:"pitch"`
}

type MusicConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"baseURL"`
	APIKey       string        `mapstructure:"apiKey"`
	CallbackURL  string        `mapstructure:"callbackURL"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	MaxAttempts  int           `mapstructure:"maxAttempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OrchestratorConfig struct {
	QuickLookup       bool `mapstructure:"quickLookup"`
	StrictCredentials bool `mapstructure:"strictCredentials"`
}

type VisionConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"apiKey"`
	Model     string        `mapstructure:"model"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
	FramePath string        `mapstructure:"framePath"`
}

type AccessibilityConfig struct {
	SettingsPath string `mapstructure:"settingsPath"`
	ScreenReader bool   `mapstructure:"screenReader"`
}

type CaptureConfig struct {
	MaxDimension int `mapstructure:"maxDimension"`
	Quality      int `mapstructure:"quality"`
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"analysis.provider":  AnalysisNavigator,
	"analysis.baseURL":   "",
	"analysis.apiKey":    "",
	"analysis.model":     "",
	"analysis.region":    "",
	"analysis.maxTokens": 0,
	"analysis.timeout":   90 * time.Second,

	"speech.provider":      SpeechDevice,
	"speech.engine":        "",
	"speech.voice":         "",
	"speech.baseURL":       "",
	"speech.apiKey":        "",
	"speech.playerCommand": "",
	"speech.timeout":       30 * time.Second,
	"speech.bitrate":       "192k",
	"speech.speed":         0.0,
	"speech.pitch":         1.0,

	"music.enabled":      false,
	"music.baseURL":      "",
	"music.apiKey":       "",
	"music.callbackURL":  "",
	"music.pollInterval": 2 * time.Second,
	"music.maxAttempts":  60,
	"music.timeout":      30 * time.Second,

	"backend.url":     "http://localhost:8000",
	"backend.token":   "",
	"backend.timeout": 30 * time.Second,

	"orchestrator.quickLookup":       false,
	"orchestrator.strictCredentials": false,

	"vision.url":       "",
	"vision.apiKey":    "",
	"vision.model":     "",
	"vision.cooldown":  5 * time.Second,
	"vision.framePath": "",

	"accessibility.settingsPath": "",
	"accessibility.screenReader": false,

	"capture.maxDimension": 1600,
	"capture.quality":      80,
}

// Load reads the optional .env file, then the YAML config at path (or
// sight.yaml in the working directory when path is empty). Missing files are
// not an error; SIGHT_* variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, utils.WrapIfNotNil(err, ".env")
	}

	v := viper.New()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(configName)
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, utils.WrapIfNotNil(err, "read config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, utils.WrapIfNotNil(err, "decode config")
	}
	cfg.Analysis.Provider = strings.ToLower(strings.TrimSpace(cfg.Analysis.Provider))
	cfg.Speech.Provider = strings.ToLower(strings.TrimSpace(cfg.Speech.Provider))
	return cfg, nil
}

// ProviderOptions turns the analysis section into client options. Empty values
// are left to the provider's own env fallbacks and defaults.
func (c AnalysisConfig) ProviderOptions() []model.ProviderOption {
	opts := make([]model.ProviderOption, 0, 6)
	if c.BaseURL != "" {
		opts = append(opts, model.WithURL(c.BaseURL))
	}
	if c.APIKey != "" {
		opts = append(opts, model.WithAuthToken(c.APIKey))
	}
	if c.Model != "" {
		opts = append(opts, model.WithModel(c.Model))
	}
	if c.Region != "" {
		opts = append(opts, model.WithRegion(c.Region))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.MaxTokens))
	}
	if c.Timeout > 0 {
		opts = append(opts, model.WithHTTPTimeout(c.Timeout))
	}
	return opts
}

func (c SpeechConfig) ProviderOptions() []model.ProviderOption {
	return endpointOptions(c.BaseURL, c.APIKey, c.Timeout)
}

func (c MusicConfig) ProviderOptions() []model.ProviderOption {
	return endpointOptions(c.BaseURL, c.APIKey, c.Timeout)
}

func (c BackendConfig) ProviderOptions() []model.ProviderOption {
	return endpointOptions(c.URL, c.Token, c.Timeout)
}

func endpointOptions(url string, token string, timeout time.Duration) []model.ProviderOption {
	opts := make([]model.ProviderOption, 0, 3)
	if url != "" {
		opts = append(opts, model.WithURL(url))
	}
	if token != "" {
		opts = append(opts, model.WithAuthToken(token))
	}
	if timeout > 0 {
		opts = append(opts, model.WithHTTPTimeout(timeout))
	}
	return opts
}
