// Package metrics provides the Prometheus collectors of trialbase.
package metrics

import "time"

// Status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusRejected = "rejected"
)

// Blob store operation names.
const (
	OpBlobPut    = "put"
	OpBlobGet    = "get"
	OpBlobDelete = "delete"
	OpBlobURL    = "url"
)

// Cascade delete row kinds.
const (
	KindPlots        = "plots"
	KindObservations = "observations"
	KindImages       = "images"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart100us is the starting bucket for 0.1ms histograms.
	BucketStart100us = 0.0001

	BucketFactor2 = 2
	BucketCount12 = 12
	BucketCount15 = 15
)

// ShutdownTimeout bounds the graceful shutdown of the metrics listener.
const ShutdownTimeout = 5 * time.Second
