package analysis

import "github.com/artbeyondsight/sight/pkg/model"

const jsonKeysInstruction = "Format your response as JSON with keys: title, artist, year, type, description, historicalContext, styleAnalysis, emotions (array)"

var modePrompts = map[model.Mode]string{
	model.ModeMuseum: `Analyze this artwork in detail. Provide:
1. Title (if recognizable, otherwise describe it)
2. Artist name (if known, otherwise "Unknown Artist")
3. Approximate year or period
4. Art type/medium (Painting, Sculpture, etc.)
5. Detailed description of what you see
6. Historical context and significance
7. Style analysis (art movement, techniques, etc.)
8. Emotional themes (list 3-5 emotions the artwork evokes)

` + jsonKeysInstruction,

	model.ModeMonuments: `Analyze this monument or landmark. Provide:
1. Name of the monument
2. Architect or builder (if known)
3. Year built or time period
4. Type (Building, Monument, Memorial, etc.)
5. Detailed description of the structure
6. Historical significance and context
7. Architectural style and features
8. Cultural/emotional significance (3-5 themes)

` + jsonKeysInstruction,

	model.ModeLandscape: `Analyze this natural landscape or scene. Provide:
1. Title/description of the location (if identifiable)
2. Geographic location (if recognizable, otherwise "Natural Scene")
3. Approximate time of day or season (if visible)
4. Type (Mountain, Forest, Beach, etc.)
5. Detailed description of the scene
6. Natural features and characteristics
7. Atmospheric and visual qualities
8. Emotional themes (list 3-5 emotions evoked)

Format your response as JSON with keys: title, artist (use "Nature" or location), year (use season/time), type, description, historicalContext, styleAnalysis, emotions (array)`,
}

// QuickMetadataPrompt asks only for the identifying fields.
const QuickMetadataPrompt = "Quickly identify: title, artist, and year. Respond in JSON format only: {title, artist, year}"

const (
	DefaultMaxTokens       = 1000
	QuickMetadataMaxTokens = 100
)

// Prompt returns the structured analysis prompt for mode.
func Prompt(mode model.Mode) (string, error) {
	prompt, ok := modePrompts[mode]
	if !ok {
		return "", model.ErrUnsupportedMode
	}
	return prompt, nil
}
