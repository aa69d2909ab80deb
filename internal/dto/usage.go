package dto

// UsageResponse reports token consumption and estimated cost.
type UsageResponse struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Totals UsageTotals  `json:"totals"`
	Models []ModelUsage `json:"models"`
	Daily  []DailyUsage `json:"daily"`
}

// UsageTotals sums usage across models.
type UsageTotals struct {
	Requests         int     `json:"requests"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TotalTokens      int64   `json:"totalTokens"`
	CostUSD          float64 `json:"costUsd"`
}

// ModelUsage is the usage of one model.
type ModelUsage struct {
	Model            string  `json:"model"`
	Requests         int     `json:"requests"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	CostUSD          float64 `json:"costUsd"`
}

// DailyUsage is the usage of all models on one day.
type DailyUsage struct {
	Date        string  `json:"date"`
	TotalTokens int64   `json:"totalTokens"`
	CostUSD     float64 `json:"costUsd"`
}
