package seedtool

import "time"

// Config holds configuration for the simulation run.
type Config struct {
	BaseURL         string        // Base URL of the service
	NumObservations int           // Number of observations to generate
	NumGroups       int           // Number of groups to spread them over
	TopN            int           // Number of top entries to fetch
	Workers         int           // Number of concurrent workers
	Timeout         time.Duration // HTTP request timeout
	OutputFile      string        // Output file for observations
	LogFile         string        // Log file for run output
	Verbose         bool          // Enable verbose logging
}

// Observation mirrors the POST /observations payload.
type Observation struct {
	ObservationID string  `json:"observation_id"`
	Group         string  `json:"group"`
	Category      string  `json:"category"`
	Value         float64 `json:"value"`
	Weight        float64 `json:"weight,omitempty"`
	TS            string  `json:"ts"`
}

// GroupEntry mirrors the group read shape returned by the service.
type GroupEntry struct {
	Rank       int                 `json:"rank"`
	Group      string              `json:"group"`
	Indices    map[string]*float64 `json:"indices"`
	Total      *float64            `json:"total,omitempty"`
	Categories *int                `json:"categories,omitempty"`
}

// Explanation mirrors one row of the GET /explain table.
type Explanation struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Example      string `json:"example"`
	TypicalRange string `json:"typical_range"`
}

// AckResponse represents the response from observation submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	ObservationsGenerated  int
	ObservationsSubmitted  int
	ObservationsSuccessful int
	ObservationsDuplicate  int
	ObservationsFailed     int
	GroupsRetrieved        int
	ListingEntries         int
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
}
