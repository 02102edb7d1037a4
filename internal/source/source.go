package source

import (
	"context"

	"github.com/crimson-sun/paperscout/internal/model"
)

// Source defines the interface all paper source providers must implement.
type Source interface {
	// Latest fetches the n most recently submitted papers in a category.
	Latest(ctx context.Context, cfg Config, category string, n int) ([]model.Paper, error)

	// Search fetches papers matching the given parameters.
	Search(ctx context.Context, cfg Config, params SearchParams) ([]model.Paper, error)
}

// Config holds provider-specific connection settings.
type Config struct {
	Provider  string
	Endpoint  string
	UserAgent string
	Extra     map[string]string
}

// SearchParams defines filters for paper searches.
type SearchParams struct {
	Category string
	Keywords string
	Limit    int
}
