package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type LoggerSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) TearDownTest() {
	SetLoggerFactory(nil)
}

func (s *LoggerSuite) TestFactoryCarriesContextFields() {
	var buf bytes.Buffer
	SetLoggerFactory(NewLogrusFactory("debug", "json", &buf))

	ctx := ContextWithFields(context.Background(), map[string]any{"capture_id": "abc"})
	ctx = ContextWithFields(ctx, map[string]any{"mode": "museum"})
	NewLogger(ctx).Infof("analysis_request model=%q", "m")

	var line map[string]any
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &line))
	s.Equal("abc", line["capture_id"])
	s.Equal("museum", line["mode"])
	s.Equal(`analysis_request model="m"`, line["msg"])
}

func (s *LoggerSuite) TestFactoryRespectsLevel() {
	var buf bytes.Buffer
	SetLoggerFactory(NewLogrusFactory("warn", "text", &buf))

	NewLogger(context.Background()).Info("hidden")
	s.Empty(buf.String())

	NewLogger(context.Background()).Warn("visible")
	s.Contains(buf.String(), "visible")
}

func (s *LoggerSuite) TestUnknownLevelDefaultsToInfo() {
	var buf bytes.Buffer
	SetLoggerFactory(NewLogrusFactory("chatty", "text", &buf))

	logger := NewLogger(context.Background())
	logger.Debug("hidden")
	s.Empty(buf.String())
	logger.WithFields(map[string]any{"stage": "persisting"}).Info("shown")
	s.Contains(buf.String(), "stage=persisting")
}
