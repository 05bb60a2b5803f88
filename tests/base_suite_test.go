package tests

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/artbeyondsight/sight/pkg/capture"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const envTestImage = "SIGHT_TEST_IMAGE"

type ExternalDependenciesSuite struct {
	suite.Suite
	settingsFile string
}

func (s *ExternalDependenciesSuite) SetupSuite() {
	settingsFromEnv := strings.TrimSpace(os.Getenv("SETTINGS_FILE"))
	settingsFile := settingsFromEnv
	if settingsFile == "" {
		homeDir, err := os.UserHomeDir()
		require.NoError(s.T(), err)
		settingsFile = filepath.Join(homeDir, ".env")
	}

	s.settingsFile = settingsFile

	_, err := os.Stat(settingsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && settingsFromEnv == "" {
			// If defaulting to $HOME/.env and it doesn't exist, continue.
			return
		}
		require.NoError(s.T(), err)
		return
	}

	err = godotenv.Overload(settingsFile)
	require.NoError(s.T(), err)
}

func (s *ExternalDependenciesSuite) SettingsFile() string {
	return s.settingsFile
}

// photoPath returns the photo named by SIGHT_TEST_IMAGE and skips the
// calling test when it is not configured.
func (s *ExternalDependenciesSuite) photoPath() string {
	path := strings.TrimSpace(os.Getenv(envTestImage))
	if path == "" {
		s.T().Skipf("%s is not set; skipping test that needs a real photo", envTestImage)
	}
	if _, err := os.Stat(path); err != nil {
		s.T().Skipf("%s is not accessible (%v)", path, err)
	}
	return path
}

func (s *ExternalDependenciesSuite) loadPhoto() model.Image {
	image, err := capture.FromFile(s.photoPath(), capture.Options{})
	require.NoError(s.T(), err)
	return image
}
