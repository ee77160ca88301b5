package dto

// FinBERTRequest is the inference request body of the hosted FinBERT model.
type FinBERTRequest struct {
	Inputs string `json:"inputs"`
}

// FinBERTLabelScore is one class probability returned by FinBERT.
type FinBERTLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// FinBERTError is the body returned while the model is loading or on failure.
type FinBERTError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// SentimentAnalyzerPayload is the job payload of the sentiment analyzer.
type SentimentAnalyzerPayload struct {
	BatchSize int `json:"batch_size"`
}

// DailyAggregatorPayload is the job payload of the daily aggregator. Date is YYYY-MM-DD; empty means today.
type DailyAggregatorPayload struct {
	Date string `json:"date"`
}

// SentimentAlertPayload is the job payload of the sentiment alert job.
type SentimentAlertPayload struct {
	Date      string  `json:"date"`
	Threshold float64 `json:"threshold"`
}
