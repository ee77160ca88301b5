package dto

// GeminiSentimentResult is the JSON object the Gemini prompt asks for.
type GeminiSentimentResult struct {
	Sentiment string  `json:"sentiment"`
	Positive  float64 `json:"positive"`
	Negative  float64 `json:"negative"`
	Neutral   float64 `json:"neutral"`
	Reasoning string  `json:"reasoning"`
}
