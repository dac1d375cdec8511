// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// FindResult finds a result by ID in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []credit.Result, id string) *credit.Result {
	for i := range results {
		if results[i].ID == id {
			return &results[i]
		}
	}
	return nil
}

// FindSkip returns the skip recorded for id, or nil.
func FindSkip(skipped []credit.Skip, id string) *credit.Skip {
	for i := range skipped {
		if skipped[i].ID == id {
			return &skipped[i]
		}
	}
	return nil
}

// Float64 returns a pointer to v, for optional numeric fields.
func Float64(v float64) *float64 {
	return &v
}
