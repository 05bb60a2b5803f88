package backend_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/artbeyondsight/sight/pkg/backend"
	"github.com/artbeyondsight/sight/pkg/backend/backendtest"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
	server *backendtest.Server
	client *backend.Client
	ctx    context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.server = backendtest.NewServer()
	s.client = backend.New(model.WithURL(s.server.URL))
	s.ctx = context.Background()
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func museumResult() model.AnalysisResult {
	audio := "https://cdn.example.com/m.mp3"
	return model.AnalysisResult{
		Name:             "The Starry Night",
		Creator:          "Vincent van Gogh",
		Category:         "Painting",
		Mode:             model.ModeMuseum,
		HistoricalPrompt: "Painted in 1889.",
		ImmersivePrompt:  "Imagine the swirling sky.",
		Emotions:         []string{"awe", "longing"},
		ImageURI:         "file:///tmp/starry.jpg",
		AudioURI:         &audio,
	}
}

func (s *ClientSuite) TestRecordFromResult() {
	record := backend.RecordFromResult(museumResult())
	s.Equal("The Starry Night", record.ImageName)
	s.Equal("museum", record.AnalysisType)
	s.Equal([]string{"Painted in 1889.", "Imagine the swirling sky."}, record.Descriptions)
	s.Equal("painting", record.Metadata.Type)
	s.Equal("file:///tmp/starry.jpg", record.Metadata.ImageURI)
	s.Equal("https://cdn.example.com/m.mp3", record.Metadata.AudioURI)
}

func (s *ClientSuite) TestSaveIsCreateOrUpdate() {
	first, err := s.client.Save(s.ctx, backend.RecordFromResult(museumResult()))
	s.Require().NoError(err)
	s.NotEmpty(first.ID)

	updated := museumResult()
	updated.ImmersivePrompt = "Stand beneath the stars."
	second, err := s.client.Save(s.ctx, backend.RecordFromResult(updated))
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Len(s.server.Records(), 1)
	s.Equal("Stand beneath the stars.", second.Metadata.ImmersivePrompt)
}

func (s *ClientSuite) TestRoundTripToResult() {
	saved, err := s.client.Save(s.ctx, backend.RecordFromResult(museumResult()))
	s.Require().NoError(err)

	fetched, err := s.client.Get(s.ctx, saved.ID)
	s.Require().NoError(err)

	result := fetched.Result()
	s.True(result.Cached)
	s.Equal(saved.ID, result.ID)
	s.Equal(model.ModeMuseum, result.Mode)
	s.Equal("Vincent van Gogh", result.Creator)
	s.Equal([]string{"awe", "longing"}, result.Emotions)
	s.Require().NotNil(result.AudioURI)
	s.Equal("https://cdn.example.com/m.mp3", *result.AudioURI)
}

func (s *ClientSuite) TestResultFloorsMissingFields() {
	result := backend.Record{ImageName: "x", AnalysisType: "landscape"}.Result()
	s.Equal("Unknown", result.Creator)
	s.Equal([]string{"neutral"}, result.Emotions)
	s.Nil(result.AudioURI)
}

func (s *ClientSuite) TestFindByNameFiltersModeAndExactName() {
	s.server.Seed(backend.Record{ImageName: "Starry Night Over the Rhone", AnalysisType: "museum"})
	s.server.Seed(backend.Record{ImageName: "The Starry Night", AnalysisType: "landscape"})
	want := s.server.Seed(backend.Record{ImageName: "The Starry Night", AnalysisType: "museum"})

	found := s.client.FindByName(s.ctx, "the starry night", model.ModeMuseum)
	s.Require().NotNil(found)
	s.Equal(want, found.ID)

	s.Nil(s.client.FindByName(s.ctx, "The Starry Night", model.ModeMonuments))
	s.Nil(s.client.FindByName(s.ctx, "  ", model.ModeMuseum))
}

func (s *ClientSuite) TestFindByImageURI() {
	want := s.server.Seed(backend.Record{ImageName: "a", AnalysisType: "monuments", Metadata: backend.Metadata{ImageURI: "file:///tmp/a.jpg"}})
	s.server.Seed(backend.Record{ImageName: "b", AnalysisType: "monuments", Metadata: backend.Metadata{ImageURI: "file:///tmp/b.jpg"}})

	found := s.client.FindByImageURI(s.ctx, "file:///tmp/a.jpg", model.ModeMonuments)
	s.Require().NotNil(found)
	s.Equal(want, found.ID)
	s.Nil(s.client.FindByImageURI(s.ctx, "file:///tmp/a.jpg", model.ModeMuseum))
}

func (s *ClientSuite) TestFindByImageURIReachesPastDefaultPage() {
	oldest := s.server.Seed(backend.Record{ImageName: "old", AnalysisType: "landscape", Metadata: backend.Metadata{ImageURI: "file:///tmp/old.jpg"}})
	for i := 0; i < backend.DefaultListLimit+10; i++ {
		s.server.Seed(backend.Record{ImageName: "newer", AnalysisType: "landscape"})
	}

	listed, err := s.client.List(s.ctx, "landscape")
	s.Require().NoError(err)
	s.Len(listed, backend.DefaultListLimit)

	found := s.client.FindByImageURI(s.ctx, "file:///tmp/old.jpg", model.ModeLandscape)
	s.Require().NotNil(found)
	s.Equal(oldest, found.ID)

	limited, err := s.client.ListN(s.ctx, "", 3)
	s.Require().NoError(err)
	s.Len(limited, 3)
}

func (s *ClientSuite) TestLookupFailuresAreMisses() {
	s.server.Seed(backend.Record{ImageName: "a", AnalysisType: "museum", Metadata: backend.Metadata{ImageURI: "u"}})
	s.server.SetFailReads(true)

	s.Nil(s.client.FindByName(s.ctx, "a", model.ModeMuseum))
	s.Nil(s.client.FindByImageURI(s.ctx, "u", model.ModeMuseum))
}

func (s *ClientSuite) TestSaveFailureIsProviderError() {
	s.server.SetFailSaves(true)
	_, err := s.client.Save(s.ctx, backend.RecordFromResult(museumResult()))

	var providerErr *model.ProviderError
	s.Require().True(errors.As(err, &providerErr))
	s.Equal(http.StatusInternalServerError, providerErr.StatusCode)
	s.Contains(providerErr.Body, "database unavailable")
}

func (s *ClientSuite) TestListFilterUpdateDelete() {
	id := s.server.Seed(backend.Record{ImageName: "Colosseum", AnalysisType: "monuments"})
	s.server.Seed(backend.Record{ImageName: "Grand Canyon", AnalysisType: "landscape"})

	monuments, err := s.client.List(s.ctx, "monuments")
	s.Require().NoError(err)
	s.Require().Len(monuments, 1)
	s.Equal("Colosseum", monuments[0].ImageName)

	updated, err := s.client.Update(s.ctx, id, backend.Update{Descriptions: []string{"Built in 80 AD."}})
	s.Require().NoError(err)
	s.Equal([]string{"Built in 80 AD."}, updated.Descriptions)

	s.Require().NoError(s.client.Delete(s.ctx, id))
	_, err = s.client.Get(s.ctx, id)
	s.ErrorIs(err, backend.ErrNotFound)
}

func (s *ClientSuite) TestHealth() {
	health, err := s.client.Health(s.ctx)
	s.Require().NoError(err)
	s.Equal("healthy", health.Status)
	s.NotEmpty(health.Timestamp)
}
