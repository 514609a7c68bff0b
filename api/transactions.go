package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/attunefin/attune-go/errors"
)

// ListTransactions fetches a filtered, paginated transaction listing.
func (c *Client) ListTransactions(ctx context.Context, params ListTransactionsParams) (*TransactionList, error) {
	query := url.Values{}
	if params.Category != "" {
		query.Set("category", params.Category)
	}
	if params.Account != "" {
		query.Set("account", params.Account)
	}
	if params.From != "" {
		query.Set("from", params.From)
	}
	if params.To != "" {
		query.Set("to", params.To)
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(params.PageSize))
	}

	var out TransactionList
	if err := c.get(ctx, "/api/transactions", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction fetches a single transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	if id == "" {
		return nil, errors.New("transaction ID is required")
	}
	var out Transaction
	if err := c.get(ctx, "/api/transactions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recategorize assigns a category to one transaction.
func (c *Client) Recategorize(ctx context.Context, id, category string) (*Transaction, error) {
	if id == "" {
		return nil, errors.New("transaction ID is required")
	}
	if category == "" {
		return nil, errors.New("category is required")
	}
	body := map[string]string{"category": category}
	var out Transaction
	if err := c.post(ctx, "/api/transactions/"+url.PathEscape(id)+"/categorize", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkCategorize recategorizes many transactions at once.
func (c *Client) BulkCategorize(ctx context.Context, req BulkCategorizeRequest) (*BulkResult, error) {
	if len(req.TransactionIDs) == 0 {
		return nil, errors.New("at least one transaction ID is required")
	}
	if req.Category == "" {
		return nil, errors.New("category is required")
	}
	var out BulkResult
	if err := c.post(ctx, "/api/transactions/bulk-categorize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
