package analysis

import (
	"strings"

	"github.com/artbeyondsight/sight/pkg/model"
)

type emotionKeywords struct {
	emotion  string
	keywords []string
}

// Ordered so extraction output is deterministic.
var emotionTable = []emotionKeywords{
	{emotion: "joy", keywords: []string{"happy", "joyful", "cheerful", "delightful"}},
	{emotion: "sadness", keywords: []string{"sad", "melancholy", "somber", "mournful"}},
	{emotion: "calm", keywords: []string{"peaceful", "serene", "tranquil", "calm"}},
	{emotion: "power", keywords: []string{"powerful", "strong", "bold", "intense"}},
	{emotion: "mystery", keywords: []string{"mysterious", "enigmatic", "cryptic"}},
}

// ExtractEmotions derives emotion tags from free text by keyword matching and
// returns ["neutral"] when nothing matches.
func ExtractEmotions(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0, len(emotionTable))
	for _, entry := range emotionTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				found = append(found, entry.emotion)
				break
			}
		}
	}
	return model.NormalizeEmotions(found)
}
