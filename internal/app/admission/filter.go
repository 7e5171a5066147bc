// Package admission decides whether a resolved track may join the playback
// queue, using an ordered chain of request filters.
package admission

import (
	"context"
	"time"

	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
)

// Code identifies why a request was rejected.
type Code string

const (
	CodeRequesterBlacklisted Code = "requester_blacklisted"
	CodeTrackBlacklisted     Code = "track_blacklisted"
	CodeTooLong              Code = "too_long"
	CodeRateLimited          Code = "rate_limited"
)

// Result represents the result of a filter check.
type Result struct {
	Accepted   bool
	Code       Code
	RetryAfter time.Duration // set for rate-limited rejections
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code Code) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for admission filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the filter check.
	Check(ctx context.Context, t track.Track, requester track.Requester) Result
}

// Chain executes filters in sequence.
// The first rejecting filter short-circuits the rest.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{filters: make([]Filter, 0)}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
func (c *Chain) Execute(ctx context.Context, t track.Track, requester track.Requester) Result {
	for _, f := range c.filters {
		if result := f.Check(ctx, t, requester); !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
