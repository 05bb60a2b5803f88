package model

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Mode selects the prompt template, the canned fallback content and the
// persistence bucket of an analysis.
type Mode string

const (
	ModeMuseum    Mode = "museum"
	ModeMonuments Mode = "monuments"
	ModeLandscape Mode = "landscape"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeMuseum, ModeMonuments, ModeLandscape}

func ParseMode(value string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(value)))
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, value)
	}
	return mode, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeMuseum, ModeMonuments, ModeLandscape:
		return true
	}
	return false
}

// SubjectType is the coarse subject label stored in backend metadata.
func (m Mode) SubjectType() string {
	switch m {
	case ModeMuseum:
		return "painting"
	case ModeMonuments:
		return "monument"
	default:
		return "landscape"
	}
}

// Image is a captured picture. URI identifies the source (file path, remote URL
// or the data URL itself) and is used as the secondary cache key.
type Image struct {
	URI      string
	DataURL  string
	MIMEType string
	Data     []byte
}

func (i Image) Empty() bool {
	return strings.TrimSpace(i.DataURL) == "" && len(i.Data) == 0
}

// SourceURI returns URI, falling back to the data URL so that every
// non-empty image has a cache key.
func (i Image) SourceURI() string {
	if uri := strings.TrimSpace(i.URI); uri != "" {
		return uri
	}
	if strings.TrimSpace(i.DataURL) != "" {
		return i.DataURL
	}
	if len(i.Data) == 0 {
		return ""
	}
	return EncodeDataURL(i.resolvedMIMEType(), i.Data)
}

// Bytes returns the raw image bytes, decoding the data URL when needed.
func (i Image) Bytes() ([]byte, string, error) {
	if len(i.Data) > 0 {
		return i.Data, i.resolvedMIMEType(), nil
	}
	mimeType, data, err := DecodeDataURL(i.DataURL)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

func (i Image) resolvedMIMEType() string {
	if strings.TrimSpace(i.MIMEType) != "" {
		return i.MIMEType
	}
	return "image/jpeg"
}

func EncodeDataURL(mimeType string, data []byte) string {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URL has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, data, nil
}

// AnalysisResult is the canonical output of one analysis pass. It is built once
// per capture event and not mutated afterwards.
type AnalysisResult struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	Creator          string   `json:"creator"`
	Category         string   `json:"category"`
	Mode             Mode     `json:"mode"`
	Year             string   `json:"year,omitempty"`
	Description      string   `json:"description,omitempty"`
	HistoricalPrompt string   `json:"historicalPrompt,omitempty"`
	ImmersivePrompt  string   `json:"immersivePrompt,omitempty"`
	Emotions         []string `json:"emotions"`
	ImageURI         string   `json:"imageUri"`
	AudioURI         *string  `json:"audioUri"`
	Cached           bool     `json:"cached,omitempty"`
}

const (
	DefaultCreator = "Unknown"
	MaxEmotions    = 5
)

// NeutralEmotions is the floor used whenever no emotion tag survives.
var NeutralEmotions = []string{"neutral"}

// NormalizeEmotions trims, de-duplicates and caps tags; it never returns an
// empty slice.
func NormalizeEmotions(emotions []string) []string {
	out := make([]string, 0, MaxEmotions)
	seen := make(map[string]struct{}, len(emotions))
	for _, emotion := range emotions {
		emotion = strings.TrimSpace(emotion)
		if emotion == "" {
			continue
		}
		key := strings.ToLower(emotion)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, emotion)
		if len(out) == MaxEmotions {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), NeutralEmotions...)
	}
	return out
}

// AnalysisProvider turns an image into a normalized AnalysisResult for a mode.
type AnalysisProvider interface {
	Analyze(ctx context.Context, image Image, mode Mode) (AnalysisResult, error)
}

// StringPtr returns nil for blank values so optional URIs serialize as null.
func StringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
