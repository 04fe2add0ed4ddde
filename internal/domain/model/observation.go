// Package model contains domain models passed between layers.
package model

import "time"

// Observation is one submitted data point: a numeric value recorded for a
// category within a group (for example minutes spent on an activity on a
// given day). Fields mirror the OpenAPI schema for /observations.
type Observation struct {
	ObservationID string    // unique id for idempotency
	Group         string    // grouping key, e.g. a day or participant id
	Category      string    // category the value belongs to
	Value         float64   // raw numeric value, non-negative
	Weight        float64   // per-observation weight; 1 when unweighted
	TS            time.Time // observation timestamp
}
