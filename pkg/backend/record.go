package backend

import (
	"strings"

	"github.com/artbeyondsight/sight/pkg/model"
)

// Record is the persisted form of an analysis as stored by the backend.
type Record struct {
	ID           string   `json:"id,omitempty"`
	ImageName    string   `json:"image_name"`
	AnalysisType string   `json:"analysis_type"`
	Descriptions []string `json:"descriptions"`
	Metadata     Metadata `json:"metadata"`
	ImageURL     string   `json:"image_url,omitempty"`
	ImageBase64  string   `json:"image_base64,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

type Metadata struct {
	Creator          string   `json:"creator,omitempty"`
	Category         string   `json:"category,omitempty"`
	Year             string   `json:"year,omitempty"`
	Description      string   `json:"description,omitempty"`
	ImageURI         string   `json:"imageUri,omitempty"`
	AudioURI         string   `json:"audioUri,omitempty"`
	HistoricalPrompt string   `json:"historicalPrompt,omitempty"`
	ImmersivePrompt  string   `json:"immersivePrompt,omitempty"`
	Mode             string   `json:"mode,omitempty"`
	Type             string   `json:"type,omitempty"`
	Emotions         []string `json:"emotions,omitempty"`
}

// Update is a partial update; nil fields are left untouched by the backend.
type Update struct {
	Descriptions []string  `json:"descriptions,omitempty"`
	Metadata     *Metadata `json:"metadata,omitempty"`
}

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// RecordFromResult builds the create-or-update payload for an analysis. The
// backend keys records by (image_name, analysis_type).
func RecordFromResult(result model.AnalysisResult) Record {
	descriptions := make([]string, 0, 2)
	for _, text := range []string{result.HistoricalPrompt, result.ImmersivePrompt} {
		if strings.TrimSpace(text) != "" {
			descriptions = append(descriptions, text)
		}
	}
	if len(descriptions) == 0 && strings.TrimSpace(result.Description) != "" {
		descriptions = append(descriptions, result.Description)
	}

	audioURI := ""
	if result.AudioURI != nil {
		audioURI = *result.AudioURI
	}

	return Record{
		ImageName:    result.Name,
		AnalysisType: string(result.Mode),
		Descriptions: descriptions,
		Metadata: Metadata{
			Creator:          result.Creator,
			Category:         result.Category,
			Year:             result.Year,
			Description:      result.Description,
			ImageURI:         result.ImageURI,
			AudioURI:         audioURI,
			HistoricalPrompt: result.HistoricalPrompt,
			ImmersivePrompt:  result.ImmersivePrompt,
			Mode:             string(result.Mode),
			Type:             result.Mode.SubjectType(),
			Emotions:         result.Emotions,
		},
	}
}

// Result converts a stored record back into an AnalysisResult marked as cached.
func (r Record) Result() model.AnalysisResult {
	historical := r.Metadata.HistoricalPrompt
	if historical == "" && len(r.Descriptions) > 0 {
		historical = r.Descriptions[0]
	}
	immersive := r.Metadata.ImmersivePrompt
	if immersive == "" && len(r.Descriptions) > 1 {
		immersive = r.Descriptions[1]
	}

	creator := strings.TrimSpace(r.Metadata.Creator)
	if creator == "" {
		creator = model.DefaultCreator
	}

	return model.AnalysisResult{
		ID:               r.ID,
		Name:             r.ImageName,
		Creator:          creator,
		Category:         r.Metadata.Category,
		Mode:             model.Mode(r.AnalysisType),
		Year:             r.Metadata.Year,
		Description:      r.Metadata.Description,
		HistoricalPrompt: historical,
		ImmersivePrompt:  immersive,
		Emotions:         model.NormalizeEmotions(r.Metadata.Emotions),
		ImageURI:         r.Metadata.ImageURI,
		AudioURI:         model.StringPtr(r.Metadata.AudioURI),
		Cached:           true,
	}
}
