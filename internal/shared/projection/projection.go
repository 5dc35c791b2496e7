// Package projection carries aggregate read models across port boundaries.
package projection

import "time"

// Metadata records when the backing store created and last touched a row.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Projection pairs an aggregate with its persistence metadata so callers
// never reach into store-specific record types.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}
