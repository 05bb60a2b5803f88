package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/model"
)

const (
	defaultTitle   = "Untitled"
	defaultType    = "Artwork"
	rawTitle       = "Analyzed Artwork"
	quickTitle     = "Artwork"
	defaultEmotion = "contemplative"
)

var rawEmotions = []string{"contemplative", "inspiring"}

// ExtractJSONObject returns the first balanced {...} substring of text. Braces
// inside JSON strings are ignored.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

type rawVisionPayload struct {
	Title             string `json:"title"`
	Artist            string `json:"artist"`
	Year              any    `json:"year"`
	Type              string `json:"type"`
	Description       string `json:"description"`
	HistoricalContext string `json:"historicalContext"`
	StyleAnalysis     string `json:"styleAnalysis"`
	Emotions          any    `json:"emotions"`
}

// ParseVisionResponse applies the extraction policy to a chat response. When no
// JSON object can be parsed the raw text becomes the description with generic
// metadata; parsed reports which path was taken.
func ParseVisionResponse(content string, mode model.Mode) (analysis model.VisionAnalysis, parsed bool) {
	content = strings.TrimSpace(content)
	if candidate, ok := ExtractJSONObject(content); ok {
		payload := rawVisionPayload{}
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
			return visionFromPayload(payload, content), true
		}
	}

	return model.VisionAnalysis{
		Title:       rawTitle,
		Artist:      model.DefaultCreator,
		Type:        rawTypeForMode(mode),
		Description: content,
		Emotions:    append([]string(nil), rawEmotions...),
	}, false
}

// ParseQuickMetadata extracts {title, artist, year}; unparseable content yields
// the generic identification.
func ParseQuickMetadata(content string) model.QuickMetadata {
	fallback := model.QuickMetadata{Title: quickTitle, Artist: model.DefaultCreator}
	candidate, ok := ExtractJSONObject(content)
	if !ok {
		return fallback
	}
	payload := rawVisionPayload{}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return fallback
	}
	meta := model.QuickMetadata{
		Title:  strings.TrimSpace(payload.Title),
		Artist: strings.TrimSpace(payload.Artist),
		Year:   stringifyYear(payload.Year),
	}
	if meta.Title == "" {
		meta.Title = quickTitle
	}
	if meta.Artist == "" {
		meta.Artist = model.DefaultCreator
	}
	return meta
}

func visionFromPayload(payload rawVisionPayload, content string) model.VisionAnalysis {
	analysis := model.VisionAnalysis{
		Title:             firstNonEmpty(payload.Title, defaultTitle),
		Artist:            firstNonEmpty(payload.Artist, model.DefaultCreator),
		Year:              stringifyYear(payload.Year),
		Type:              firstNonEmpty(payload.Type, defaultType),
		Description:       firstNonEmpty(payload.Description, content),
		HistoricalContext: strings.TrimSpace(payload.HistoricalContext),
		StyleAnalysis:     strings.TrimSpace(payload.StyleAnalysis),
		Emotions:          emotionsFromAny(payload.Emotions),
	}
	if len(analysis.Emotions) == 0 {
		analysis.Emotions = []string{defaultEmotion}
	}
	return analysis
}

func emotionsFromAny(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		out := make([]string, 0)
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func stringifyYear(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func rawTypeForMode(mode model.Mode) string {
	switch mode {
	case model.ModeMonuments:
		return "Monument"
	case model.ModeLandscape:
		return "Landscape"
	default:
		return "Artwork"
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Identified reports whether quick metadata named a specific subject rather
// than the generic fallback answer.
func Identified(meta model.QuickMetadata) bool {
	title := strings.TrimSpace(meta.Title)
	return title != "" && !strings.EqualFold(title, quickTitle)
}
