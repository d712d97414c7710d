package extract

import (
	"math"
	"strings"
)

// EstimateTextTokens approximates the token count of a text. Accurate counts
// come from the model APIs; this estimate covers the extraction path where
// no API usage is reported. It averages a word-based (1 token per 0.75
// words) and a character-based (1 token per 4 chars) estimate.
func EstimateTextTokens(text string) int {
	if text == "" {
		return 0
	}
	wordCount := float64(len(strings.Fields(text)))
	charCount := float64(len(text))
	return int(math.Round((wordCount/0.75 + charCount/4) / 2))
}

// EstimateFileTokens approximates the tokens consumed by OCR-processing a
// file of the given size: a fixed base plus one token per KB.
func EstimateFileTokens(sizeKB float64) int {
	const baseTokens = 500
	return baseTokens + int(math.Round(sizeKB))
}
