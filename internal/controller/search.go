package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vanshika/chronos/internal/client"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/service"
)

// SearchQuery describes one search request. Remote queries go to the data
// service; local ones scan the loaded collection.
type SearchQuery struct {
	Term   string
	Scope  service.SearchScope
	Remote bool
}

// Search runs q and returns matching transactions. Local searches must run on
// the loop; remote ones only read configuration captured by the caller.
func (c *Controller) Search(ctx context.Context, q SearchQuery) ([]domain.Transaction, error) {
	scope := q.Scope
	if scope == "" {
		scope = service.ScopeAll
	}
	if !q.Remote {
		return service.Transactions(service.Search(c.txs, q.Term, scope)), nil
	}
	return RemoteSearch(ctx, c.fetcher, q.Term, scope)
}

// RemoteSearch asks the data service for matches of term.
func RemoteSearch(ctx context.Context, fetcher Fetcher, term string, scope service.SearchScope) ([]domain.Transaction, error) {
	query := url.Values{}
	query.Set("q", term)
	if scope != "" && scope != service.ScopeAll {
		query.Set("scope", string(scope))
	}
	resp, err := fetcher.Fetch(ctx, EndpointSearch, client.RequestOptions{Query: query})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, nil
	}
	return normalizeData(resp)
}

// GeneratePattern asks the data service for a synthetic laundering pattern.
func (c *Controller) GeneratePattern(ctx context.Context) (domain.Pattern, error) {
	return RequestPattern(ctx, c.fetcher)
}

// RequestPattern posts to the pattern generator and decodes its steps.
func RequestPattern(ctx context.Context, fetcher Fetcher) (domain.Pattern, error) {
	resp, err := fetcher.Fetch(ctx, EndpointGenerate, client.RequestOptions{Method: http.MethodPost})
	if err != nil {
		return domain.Pattern{}, err
	}
	var pattern domain.Pattern
	if err := resp.Decode("data", &pattern); err != nil {
		return domain.Pattern{}, err
	}
	if len(pattern.Steps) == 0 {
		return domain.Pattern{}, fmt.Errorf("pattern %q: %w", pattern.ID, domain.ErrEmptyResult)
	}
	return pattern, nil
}
