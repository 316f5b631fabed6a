// Package atlas is the Atlas Obscura provider slot. Atlas Obscura publishes
// no public API and its terms forbid scraping, so the provider is registered
// but returns nothing. Keeping the slot means enabling it later is a config
// change, not a pipeline change.
package atlas

import (
	"context"

	"go.uber.org/zap"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

// Client is the inert Atlas Obscura provider.
type Client struct{}

// NewClient creates the provider.
func NewClient() *Client { return &Client{} }

// Name implements scan.Provider.
func (c *Client) Name() string { return "atlas" }

// Fetch implements scan.Provider and always returns no candidates.
func (c *Client) Fetch(ctx context.Context, q scan.Query) ([]model.Candidate, error) {
	zap.L().Debug("atlas provider has no data source; returning empty set")
	return nil, nil
}
