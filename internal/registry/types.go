package registry

import (
	"context"
)

// Outcome is what the registry reports for one identifier.
type Outcome struct {
	IsRegistered bool
	LocationCode *string
	StatusLabel  string
	VenueName    *string
	RegionCodes  map[string]string
}

// Client performs exactly one lookup against the external registry.
type Client interface {
	Lookup(ctx context.Context, key string) (*Outcome, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, key string) (*Outcome, error)

func (f ClientFunc) Lookup(ctx context.Context, key string) (*Outcome, error) {
	return f(ctx, key)
}

type registrationResponse struct {
	IsRegistered *bool          `json:"is_registered"`
	LocationCode *string        `json:"location_code"`
	StatusLabel  string         `json:"status_label"`
	VenueName    *string        `json:"venue_name"`
	RegionCodes  map[string]any `json:"region_codes"`
	NoData       bool           `json:"no_data"`
}
