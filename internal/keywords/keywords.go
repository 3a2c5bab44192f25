// Package keywords fetches search metrics for seed keywords from a
// DataForSEO-style API, optionally through a cache.
package keywords

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

// ErrNotConfigured is returned when no credentials are set.
var ErrNotConfigured = errors.New("keyword metrics not configured")

// Metric holds the metrics returned for one keyword. Nil pointers mean the
// provider had no value.
type Metric struct {
	Keyword          string   `json:"keyword"`
	SearchVolume     *int     `json:"search_volume,omitempty"`
	Competition      string   `json:"competition,omitempty"`
	CPC              *float64 `json:"cpc,omitempty"`
	CompetitionIndex *int     `json:"competition_index,omitempty"`
}

// Lookup resolves metrics for seed keywords in a locale.
type Lookup interface {
	// Configured reports whether lookups can be made at all.
	Configured() bool
	Lookup(ctx context.Context, seeds []string, locale siteinfo.Locale, timeout time.Duration) ([]Metric, error)
}
