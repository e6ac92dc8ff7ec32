package agent

import "strings"

// Tone is the closed set of affect labels the prompt builder understands.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneAngry   Tone = "angry"
	ToneHappy   Tone = "happy"
)

var angryKeywords = []string{
	"angry", "frustrated", "terrible", "awful", "hate", "worst", "useless", "horrible",
}

var happyKeywords = []string{
	"great", "awesome", "excellent", "love", "amazing", "fantastic", "wonderful", "perfect",
}

// DetectTone classifies a user message by keyword scan. Angry wins over
// happy when both match, mirroring the check order.
func DetectTone(input string) Tone {
	lower := strings.ToLower(input)
	for _, kw := range angryKeywords {
		if strings.Contains(lower, kw) {
			return ToneAngry
		}
	}
	for _, kw := range happyKeywords {
		if strings.Contains(lower, kw) {
			return ToneHappy
		}
	}
	return ToneNeutral
}
