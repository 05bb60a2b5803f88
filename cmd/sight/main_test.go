package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/artbeyondsight/sight/pkg/accessibility"
	"github.com/artbeyondsight/sight/pkg/backend"
	"github.com/artbeyondsight/sight/pkg/backend/backendtest"
	"github.com/artbeyondsight/sight/pkg/mcp"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
)

type CLISuite struct {
	suite.Suite
	dir          string
	settingsPath string
	backend      *backendtest.Server
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.T().Chdir(s.dir)
	s.backend = backendtest.NewServer()
	s.settingsPath = filepath.Join(s.dir, "settings.json")

	s.T().Setenv("SIGHT_BACKEND_URL", s.backend.URL)
	s.T().Setenv("SIGHT_ANALYSIS_PROVIDER", "offline")
	s.T().Setenv("SIGHT_ACCESSIBILITY_SETTINGSPATH", s.settingsPath)
	s.T().Setenv("SIGHT_LOG_LEVEL", "error")
}

func (s *CLISuite) TearDownTest() {
	s.backend.Close()
}

func (s *CLISuite) run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewReader(nil))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (s *CLISuite) writeImage(name string) string {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: 90, B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, img))
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func (s *CLISuite) TestAnalyzeOfflineThenCached() {
	path := s.writeImage("capture.png")

	out, stderr, err := s.run("analyze", path, "--mode", "monuments", "--progress")
	s.Require().NoError(err, stderr)
	first := model.AnalysisResult{}
	s.Require().NoError(json.Unmarshal([]byte(out), &first))
	s.Equal("Historical Monument", first.Name)
	s.Equal(model.ModeMonuments, first.Mode)
	s.False(first.Cached)
	s.Contains(stderr, "[monuments] persisting")
	s.Equal(1, s.backend.Saves())

	out, _, err = s.run("analyze", path, "--mode", "monuments")
	s.Require().NoError(err)
	second := model.AnalysisResult{}
	s.Require().NoError(json.Unmarshal([]byte(out), &second))
	s.True(second.Cached)
	s.Equal(first.ID, second.ID)
	s.Equal(1, s.backend.Saves())
}

func (s *CLISuite) TestAnalyzeNameOverridesTitle() {
	out, _, err := s.run("analyze", s.writeImage("a.png"), "--name", "Water Lilies")
	s.Require().NoError(err)
	result := model.AnalysisResult{}
	s.Require().NoError(json.Unmarshal([]byte(out), &result))
	s.Equal("Water Lilies", result.Name)
	s.Equal(model.ModeMuseum, result.Mode)
}

func (s *CLISuite) TestAnalyzeErrors() {
	_, _, err := s.run("analyze", s.writeImage("a.png"), "--mode", "zoo")
	s.ErrorIs(err, model.ErrUnsupportedMode)

	_, _, err = s.run("analyze", filepath.Join(s.dir, "missing.png"))
	s.Error(err)

	s.backend.SetFailSaves(true)
	_, _, err = s.run("analyze", s.writeImage("b.png"), "--mode", "landscape")
	s.ErrorIs(err, model.ErrPersistence)
}

func (s *CLISuite) TestStrictCredentialsFailWithoutKey() {
	s.T().Setenv("SIGHT_ANALYSIS_PROVIDER", "gemini")
	s.T().Setenv("GEMINI_KEY", "")
	s.T().Setenv("SIGHT_ORCHESTRATOR_STRICTCREDENTIALS", "true")

	_, _, err := s.run("analyze", s.writeImage("a.png"))
	s.True(model.IsMissingCredential(err))
	s.Equal(0, s.backend.Saves())
}

func (s *CLISuite) TestMissingKeyFallsBackToCannedContent() {
	s.T().Setenv("SIGHT_ANALYSIS_PROVIDER", "gemini")
	s.T().Setenv("GEMINI_KEY", "")

	out, _, err := s.run("analyze", s.writeImage("a.png"), "--mode", "landscape")
	s.Require().NoError(err)
	result := model.AnalysisResult{}
	s.Require().NoError(json.Unmarshal([]byte(out), &result))
	s.Equal("Natural Landscape", result.Name)
}

func (s *CLISuite) TestAnthropicWithoutKeyFallsBack() {
	s.T().Setenv("SIGHT_ANALYSIS_PROVIDER", "anthropic")
	s.T().Setenv("ANTHROPIC_API_KEY", "")

	out, _, err := s.run("analyze", s.writeImage("a.png"), "--mode", "monuments")
	s.Require().NoError(err)
	result := model.AnalysisResult{}
	s.Require().NoError(json.Unmarshal([]byte(out), &result))
	s.Equal("Historical Monument", result.Name)
}

func (s *CLISuite) TestUnknownProvider() {
	s.T().Setenv("SIGHT_ANALYSIS_PROVIDER", "crystal-ball")
	_, _, err := s.run("analyze", s.writeImage("a.png"))
	s.ErrorContains(err, "crystal-ball")
}

func (s *CLISuite) TestHistoryCommands() {
	id := s.backend.Seed(backend.Record{
		ImageName:    "The Night Watch",
		AnalysisType: "museum",
		Descriptions: []string{"Painted for the civic guard."},
		Metadata:     backend.Metadata{Creator: "Rembrandt", Year: "1642"},
	})
	s.backend.Seed(backend.Record{ImageName: "Eiffel Tower", AnalysisType: "monuments"})

	out, _, err := s.run("history", "list", "--mode", "museum")
	s.Require().NoError(err)
	listed := []backend.Record{}
	s.Require().NoError(json.Unmarshal([]byte(out), &listed))
	s.Require().Len(listed, 1)
	s.Equal("The Night Watch", listed[0].ImageName)

	out, _, err = s.run("history", "search", "eiffel")
	s.Require().NoError(err)
	found := []backend.Record{}
	s.Require().NoError(json.Unmarshal([]byte(out), &found))
	s.Require().Len(found, 1)

	out, _, err = s.run("history", "show", id)
	s.Require().NoError(err)
	shown := model.AnalysisResult{}
	s.Require().NoError(json.Unmarshal([]byte(out), &shown))
	s.Equal("Rembrandt", shown.Creator)
	s.Equal("Painted for the civic guard.", shown.HistoricalPrompt)
	s.True(shown.Cached)

	out, _, err = s.run("history", "delete", id)
	s.Require().NoError(err)
	s.Contains(out, "Deleted analysis "+id)

	_, _, err = s.run("history", "show", id)
	s.ErrorContains(err, "not found")
	_, _, err = s.run("history", "list", "--mode", "zoo")
	s.ErrorIs(err, model.ErrUnsupportedMode)
}

func (s *CLISuite) TestSettingsSetPersists() {
	out, _, err := s.run("settings", "show")
	s.Require().NoError(err)
	view := settingsView{}
	s.Require().NoError(json.Unmarshal([]byte(out), &view))
	s.Equal(accessibility.DefaultSettings(), view.Settings)
	s.Equal(s.settingsPath, view.StorePath)

	_, _, err = s.run("settings", "set", "--rate", "1.2", "--tts=false")
	s.Require().NoError(err)

	out, _, err = s.run("settings", "show")
	s.Require().NoError(err)
	view = settingsView{}
	s.Require().NoError(json.Unmarshal([]byte(out), &view))
	s.InDelta(1.2, view.Settings.Rate, 0.001)
	s.InDelta(accessibility.DefaultSettings().Pitch, view.Settings.Pitch, 0.001)
	s.False(view.Settings.TTSEnabled)
	s.FileExists(s.settingsPath)
}

func (s *CLISuite) TestSpeakWithTTSDisabledIsSilent() {
	_, _, err := s.run("settings", "set", "--tts=false")
	s.Require().NoError(err)
	_, _, err = s.run("speak", "hello", "there", "--rate", "0.9")
	s.NoError(err)

	_, _, err = s.run("speak", "   ")
	s.Error(err)
}

func (s *CLISuite) TestHealth() {
	out, _, err := s.run("health")
	s.Require().NoError(err)
	health := backend.Health{}
	s.Require().NoError(json.Unmarshal([]byte(out), &health))
	s.Equal("healthy", health.Status)
}

func (s *CLISuite) TestMCPListsTools() {
	out, _, err := s.run("mcp", "--list")
	s.Require().NoError(err)
	tools := []mcp.ToolSummary{}
	s.Require().NoError(json.Unmarshal([]byte(out), &tools))
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	s.Equal([]string{mcp.ToolAnalyzeImage, mcp.ToolDescribeSettings, mcp.ToolSearchHistory}, names)
}

func (s *CLISuite) TestWatchRequiresFramePath() {
	_, _, err := s.run("watch")
	s.ErrorContains(err, "frame path")
}
