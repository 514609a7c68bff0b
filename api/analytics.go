package api

import (
	"context"
	"net/url"

	"github.com/attunefin/attune-go/errors"
)

// GetAnalyticsSummary fetches the dashboard roll-up for a month. An empty
// month means the current month.
func (c *Client) GetAnalyticsSummary(ctx context.Context, month string) (*AnalyticsSummary, error) {
	query := url.Values{}
	if month != "" {
		query.Set("month", month)
	}
	var out AnalyticsSummary
	if err := c.get(ctx, "/api/analytics/summary", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBudgetAnalysis fetches per-category budget vs. actual for a month.
func (c *Client) GetBudgetAnalysis(ctx context.Context, month string) (*BudgetAnalysis, error) {
	if month == "" {
		return nil, errors.New("month is required (YYYY-MM)")
	}
	query := url.Values{"month": {month}}
	var out BudgetAnalysis
	if err := c.get(ctx, "/api/budget/analysis", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the backend health report, including its version.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
