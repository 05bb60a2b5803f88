package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.T().Chdir(s.dir)
}

func (s *ConfigSuite) TestDefaultsWithoutFiles() {
	cfg, err := Load("")
	s.Require().NoError(err)

	s.Equal("info", cfg.Log.Level)
	s.Equal(AnalysisNavigator, cfg.Analysis.Provider)
	s.Equal(90*time.Second, cfg.Analysis.Timeout)
	s.Equal(SpeechDevice, cfg.Speech.Provider)
	s.Equal("192k", cfg.Speech.Bitrate)
	s.InDelta(1.0, cfg.Speech.Pitch, 0.0001)
	s.False(cfg.Music.Enabled)
	s.Equal(2*time.Second, cfg.Music.PollInterval)
	s.Equal(60, cfg.Music.MaxAttempts)
	s.Equal("http://localhost:8000", cfg.Backend.URL)
	s.Equal(5*time.Second, cfg.Vision.Cooldown)
	s.Equal(1600, cfg.Capture.MaxDimension)
	s.Equal(80, cfg.Capture.Quality)
}

func (s *ConfigSuite) TestMissingExplicitFileIsTolerated() {
	cfg, err := Load(filepath.Join(s.dir, "absent.yaml"))
	s.Require().NoError(err)
	s.Equal("text", cfg.Log.Format)
}

func (s *ConfigSuite) TestYAMLFileAndEnvOverride() {
	path := filepath.Join(s.dir, "sight.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(`
analysis:
  provider: Gemini
  model: gemini-2.5-pro
  maxTokens: 800
music:
  enabled: true
  pollInterval: 500ms
orchestrator:
  quickLookup: true
`), 0o600))
	s.T().Setenv("SIGHT_BACKEND_URL", "https://history.example.com")
	s.T().Setenv("SIGHT_MUSIC_MAXATTEMPTS", "5")

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(AnalysisGemini, cfg.Analysis.Provider)
	s.Equal("gemini-2.5-pro", cfg.Analysis.Model)
	s.Equal(800, cfg.Analysis.MaxTokens)
	s.True(cfg.Music.Enabled)
	s.Equal(500*time.Millisecond, cfg.Music.PollInterval)
	s.Equal(5, cfg.Music.MaxAttempts)
	s.True(cfg.Orchestrator.QuickLookup)
	s.Equal("https://history.example.com", cfg.Backend.URL)
}

func (s *ConfigSuite) TestProviderNamesAreNormalized() {
	s.T().Setenv("SIGHT_ANALYSIS_PROVIDER", "  Anthropic ")

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(AnalysisAnthropic, cfg.Analysis.Provider)
}

func (s *ConfigSuite) TestDotEnvIsLoaded() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, ".env"), []byte("SIGHT_LOG_LEVEL=debug\n"), 0o600))
	s.T().Setenv("SIGHT_LOG_LEVEL", "")
	s.Require().NoError(os.Unsetenv("SIGHT_LOG_LEVEL"))

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal("debug", cfg.Log.Level)
}

func (s *ConfigSuite) TestMalformedYAMLFails() {
	path := filepath.Join(s.dir, "broken.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("analysis: [unclosed"), 0o600))
	_, err := Load(path)
	s.Error(err)
}

func (s *ConfigSuite) TestProviderOptions() {
	opts := AnalysisConfig{APIKey: "k", Model: "m", Region: "eu-west-1", MaxTokens: 10, Timeout: time.Second}.ProviderOptions()
	resolved := model.ResolveProviderOpts(opts...)
	s.Equal("k", resolved.AuthToken)
	s.Require().NotNil(resolved.Model)
	s.Equal("m", *resolved.Model)
	s.Equal("eu-west-1", resolved.Region)
	s.Require().NotNil(resolved.MaxTokens)
	s.Equal(10, *resolved.MaxTokens)
	s.Equal(time.Second, resolved.HTTPTimeout)

	s.Empty(BackendConfig{}.ProviderOptions())
	backend := model.ResolveProviderOpts(BackendConfig{URL: "http://x", Token: "t"}.ProviderOptions()...)
	s.Equal("http://x", backend.URL)
	s.Equal("t", backend.AuthToken)
}
