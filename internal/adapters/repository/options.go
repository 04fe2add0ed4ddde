package repository

import "time"

// Option applies a configuration option to the GroupStore.
type Option func(*GroupStore)

// WithSnapshotInterval sets how often the read snapshot is rebuilt.
// A non-positive interval disables the snapshot loop.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *GroupStore) {
		s.snapshotInterval = interval
	}
}

// WithTopCacheSize sets how many top entries each snapshot caches.
func WithTopCacheSize(size int) Option {
	return func(s *GroupStore) {
		if size > 0 {
			s.topCacheSize = size
		}
	}
}
