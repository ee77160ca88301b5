package dto

// FeedResult summarizes one feed of a scraper run.
type FeedResult struct {
	Feed        string   `json:"feed"`
	Status      string   `json:"status"`
	Found       int      `json:"found"`
	Inserted    int64    `json:"inserted"`
	FailedLinks []string `json:"failed_links"`
	Errors      []string `json:"errors"`
}

// ScrapeResult is the output of a news scraper job.
type ScrapeResult struct {
	Inserted int64        `json:"inserted"`
	Feeds    []FeedResult `json:"feeds"`
}

// AnalyzeResult is the output of a sentiment analyzer job.
type AnalyzeResult struct {
	Status    string         `json:"status"`
	Processed int            `json:"processed"`
	Scores    int            `json:"scores"`
	Failed    int            `json:"failed"`
	Providers map[string]int `json:"providers"`
	Errors    []string       `json:"errors,omitempty"`
}

// AggregateResult is the output of a daily aggregation job.
type AggregateResult struct {
	Status     string `json:"status"`
	Date       string `json:"date"`
	Securities int    `json:"securities"`
	Scores     int    `json:"scores"`
}

// AlertResult is the output of a sentiment alert job.
type AlertResult struct {
	Status  string   `json:"status"`
	Date    string   `json:"date"`
	Sent    []string `json:"sent"`
	Skipped []string `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
