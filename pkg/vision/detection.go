// Package vision turns realtime stream results into artwork detections and
// gates them so only one analysis runs per subject.
package vision

import (
	"encoding/json"
	"strings"

	"github.com/artbeyondsight/sight/pkg/model"
)

const (
	// ConfidenceThreshold is exclusive: a JSON detection needs more than this.
	ConfidenceThreshold = 70
	KeywordConfidence   = 80
)

const DetectionPrompt = `Analyze this image and determine:
1. Is there artwork visible? (painting, sculpture, monument, or landscape)
2. What type: museum artwork (painting/sculpture), historical monument/architecture, or natural landscape
3. Brief description of what you see

Respond in JSON format: {"hasArtwork": boolean, "type": "museum"|"monuments"|"landscape", "confidence": 0-100, "description": "brief description"}`

// StreamResult is one inference message from the realtime stream.
type StreamResult struct {
	Result             string  `json:"result"`
	InferenceLatencyMs float64 `json:"inference_latency_ms"`
	TotalLatencyMs     float64 `json:"total_latency_ms"`
}

type Detection struct {
	ID          string     `json:"id,omitempty"`
	Type        model.Mode `json:"type"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description"`
}

// detectionPayload is the structured answer requested from the stream model.
type detectionPayload struct {
	HasArtwork  bool    `json:"hasArtwork"`
	Type        string  `json:"type" jsonschema:"enum=museum,enum=monuments,enum=landscape"`
	Confidence  float64 `json:"confidence" jsonschema:"minimum=0,maximum=100"`
	Description string  `json:"description"`
}

var keywordRules = []struct {
	mode     model.Mode
	keywords []string
}{
	{mode: model.ModeMuseum, keywords: []string{"painting", "artwork", "sculpture"}},
	{mode: model.ModeMonuments, keywords: []string{"monument", "architecture", "building"}},
	{mode: model.ModeLandscape, keywords: []string{"landscape", "nature", "scenery"}},
}

// ParseResult interprets one stream result. A JSON object detects artwork
// when hasArtwork is set and confidence exceeds the threshold. Text that is
// not a JSON object falls back to keyword matching at a fixed confidence.
func ParseResult(raw string) (Detection, bool) {
	payload := detectionPayload{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err == nil {
		mode := model.Mode(strings.ToLower(strings.TrimSpace(payload.Type)))
		if !payload.HasArtwork || payload.Confidence <= ConfidenceThreshold || !mode.Valid() {
			return Detection{}, false
		}
		return Detection{Type: mode, Confidence: payload.Confidence, Description: payload.Description}, true
	}

	lower := strings.ToLower(raw)
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return Detection{Type: rule.mode, Confidence: KeywordConfidence, Description: raw}, true
			}
		}
	}
	return Detection{}, false
}

// Key fingerprints a detection by type and the first 50 characters of its
// description.
func (d Detection) Key() string {
	description := []rune(d.Description)
	if len(description) > 50 {
		description = description[:50]
	}
	return string(d.Type) + "-" + string(description)
}
