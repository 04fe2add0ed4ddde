// Package types contains common read-side types used across the application.
package types

import "github.com/diva-metrics/diva/pkg/diversity"

// GroupEntry is a group's computed indices as returned by queries. Indices
// holds exactly the configured index set; an entry marshaling to null means
// the index is undefined for this group. Rank is 0 for groups whose ranking
// index is undefined. Total and Categories are present only when the
// service keeps diagnostics.
type GroupEntry struct {
	Rank       int                                 `json:"rank,omitempty"`
	Group      string                              `json:"group"`
	Indices    map[diversity.Index]diversity.Value `json:"indices"`
	Total      *float64                            `json:"total,omitempty"`
	Categories *int                                `json:"categories,omitempty"`
}
