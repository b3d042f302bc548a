// Package repository holds per-pair metric records for the current run.
package repository

import (
	"context"

	"github.com/okian/forecastbench/internal/domain/model"
)

// Store provides read/write access to scored metric records.
type Store interface {
	// Put stores rec under key and reports whether an earlier record was replaced.
	Put(ctx context.Context, key model.PairKey, rec model.MetricRecord) (bool, error)

	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key model.PairKey) (model.MetricRecord, error)

	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key model.PairKey) bool

	// All returns a snapshot of every stored record.
	All(ctx context.Context) map[model.PairKey]model.MetricRecord

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
