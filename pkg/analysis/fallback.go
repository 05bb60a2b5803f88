package analysis

import (
	"context"

	"github.com/artbeyondsight/sight/pkg/model"
)

type cannedContent struct {
	title       string
	creator     string
	category    string
	description string
	historical  string
	immersive   string
	emotions    []string
}

var cannedByMode = map[model.Mode]cannedContent{
	model.ModeMuseum: {
		title:       "Artwork Analysis",
		creator:     "Unknown Artist",
		category:    "Painting",
		description: "This artwork displays remarkable composition and technique.",
		historical:  "Created during a pivotal period in art history, this piece reflects the cultural and social dynamics of its time.",
		immersive:   "Imagine standing before this masterpiece, feeling the energy and emotion that the artist poured into every brushstroke.",
		emotions:    []string{"contemplative", "serene", "powerful"},
	},
	model.ModeMonuments: {
		title:       "Historical Monument",
		creator:     "Architect Unknown",
		category:    "Architecture",
		description: "This monument stands as a testament to human ingenuity and cultural heritage.",
		emotions:    []string{"majestic", "historical", "inspiring"},
	},
	model.ModeLandscape: {
		title:       "Natural Landscape",
		creator:     "Nature",
		category:    "Landscape",
		description: "A breathtaking natural scene showcasing the beauty of our planet.",
		emotions:    []string{"peaceful", "vast", "awe-inspiring"},
	},
}

// Fallback is the offline analysis provider. It never calls out and never
// fails for a supported mode.
type Fallback struct{}

func NewFallback() *Fallback {
	return &Fallback{}
}

func (f *Fallback) Analyze(_ context.Context, image model.Image, mode model.Mode) (model.AnalysisResult, error) {
	if !mode.Valid() {
		return model.AnalysisResult{}, model.ErrUnsupportedMode
	}
	return CannedResult(mode, image), nil
}

// CannedResult returns the fixed placeholder content for mode.
func CannedResult(mode model.Mode, image model.Image) model.AnalysisResult {
	content, ok := cannedByMode[mode]
	if !ok {
		content = cannedByMode[model.ModeMuseum]
		mode = model.ModeMuseum
	}
	return model.AnalysisResult{
		Name:             content.title,
		Creator:          content.creator,
		Category:         content.category,
		Mode:             mode,
		Description:      content.description,
		HistoricalPrompt: content.historical,
		ImmersivePrompt:  content.immersive,
		Emotions:         model.NormalizeEmotions(content.emotions),
		ImageURI:         image.URI,
	}
}
