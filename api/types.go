package api

import "time"

// Transaction is a single imported bank transaction.
type Transaction struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Merchant    string    `json:"merchant,omitempty"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category,omitempty"`
	Account     string    `json:"account,omitempty"`
	Pending     bool      `json:"pending,omitempty"`
	ImportedAt  time.Time `json:"importedAt"`
}

// TransactionList is a paginated transaction listing.
type TransactionList struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
}

// ListTransactionsParams filters a transaction listing. Zero values are
// omitted from the query.
type ListTransactionsParams struct {
	Category string
	Account  string
	From     string // inclusive date, YYYY-MM-DD
	To       string // inclusive date, YYYY-MM-DD
	Page     int
	PageSize int
}

// Suggestion is a server-proposed category for a transaction.
type Suggestion struct {
	TransactionID string  `json:"transactionId"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	Rationale     string  `json:"rationale,omitempty"`
}

// SuggestionFeedback reports whether a suggestion was accepted, feeding the
// backend's categorization model.
type SuggestionFeedback struct {
	TransactionID string `json:"transactionId"`
	Suggested     string `json:"suggested"`
	Accepted      bool   `json:"accepted"`
	Corrected     string `json:"corrected,omitempty"`
}

// BulkCategorizeRequest recategorizes a set of transactions in one call.
type BulkCategorizeRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	Category       string   `json:"category"`
}

// BulkResult summarizes a bulk mutation.
type BulkResult struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// DuplicateScan is the outcome of a duplicate-detection pass.
type DuplicateScan struct {
	ScanID string           `json:"scanId"`
	Groups []DuplicateGroup `json:"groups"`
}

// DuplicateGroup is a set of transactions the backend believes are the same
// real-world charge.
type DuplicateGroup struct {
	TransactionIDs []string `json:"transactionIds"`
	Confidence     float64  `json:"confidence"`
}

// RecurringPattern is a detected repeating charge (subscription, salary).
type RecurringPattern struct {
	ID          string  `json:"id"`
	Merchant    string  `json:"merchant"`
	Category    string  `json:"category,omitempty"`
	Amount      float64 `json:"amount"`
	Cadence     string  `json:"cadence"` // weekly, monthly, yearly
	NextDueDate string  `json:"nextDueDate,omitempty"`
	Occurrences int     `json:"occurrences"`
}

// BudgetAnalysis compares spending against budget per category for a month.
type BudgetAnalysis struct {
	Month      string           `json:"month"` // YYYY-MM
	Categories []CategoryBudget `json:"categories"`
}

// CategoryBudget is one category's budget line.
type CategoryBudget struct {
	Category string  `json:"category"`
	Budgeted float64 `json:"budgeted"`
	Spent    float64 `json:"spent"`
	Status   string  `json:"status"` // under, near, over
}

// AnalyticsSummary is the dashboard roll-up.
type AnalyticsSummary struct {
	Month            string             `json:"month"`
	TotalIncome      float64            `json:"totalIncome"`
	TotalSpending    float64            `json:"totalSpending"`
	NetCashflow      float64            `json:"netCashflow"`
	TopCategories    []CategorySpending `json:"topCategories"`
	TransactionCount int                `json:"transactionCount"`
}

// CategorySpending is a per-category spending total.
type CategorySpending struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
}

// UploadJob is the handle returned when a statement upload is accepted. The
// JobID keys the progress stream subscription.
type UploadJob struct {
	JobID    string `json:"jobId"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Upload job statuses reported by the backend. They match the status values
// carried on the job's progress stream.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// HealthStatus is the backend's health report, including the server version
// the CLI checks for compatibility.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
