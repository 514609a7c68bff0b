package api

import (
	"context"
	"net/url"

	"github.com/attunefin/attune-go/errors"
)

// GetSuggestions fetches category suggestions for uncategorized transactions.
func (c *Client) GetSuggestions(ctx context.Context) ([]Suggestion, error) {
	var out struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := c.get(ctx, "/api/categorization/suggestions", nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// SendFeedback reports whether a suggestion was accepted or corrected.
func (c *Client) SendFeedback(ctx context.Context, fb SuggestionFeedback) error {
	if fb.TransactionID == "" {
		return errors.New("transaction ID is required")
	}
	return c.post(ctx, "/api/categorization/feedback", fb, nil)
}

// ScanDuplicates runs a duplicate-detection pass over imported transactions.
func (c *Client) ScanDuplicates(ctx context.Context) (*DuplicateScan, error) {
	var out DuplicateScan
	if err := c.post(ctx, "/api/duplicates/scan", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveDuplicates keeps one transaction from a duplicate group and removes
// the rest.
func (c *Client) ResolveDuplicates(ctx context.Context, scanID, keepID string) (*BulkResult, error) {
	if scanID == "" {
		return nil, errors.New("scan ID is required")
	}
	if keepID == "" {
		return nil, errors.New("transaction ID to keep is required")
	}
	body := map[string]string{"keep": keepID}
	var out BulkResult
	if err := c.post(ctx, "/api/duplicates/"+url.PathEscape(scanID)+"/resolve", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecurringPatterns fetches the backend's detected repeating charges.
func (c *Client) GetRecurringPatterns(ctx context.Context) ([]RecurringPattern, error) {
	var out struct {
		Patterns []RecurringPattern `json:"patterns"`
	}
	if err := c.get(ctx, "/api/patterns/recurring", nil, &out); err != nil {
		return nil, err
	}
	return out.Patterns, nil
}
