package vemos

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// observability.Prometheus is a ready-made implementation.
type MetricsCollector interface {
	// RecordResolve is called after each record resolution with the number
	// of resolved records.
	RecordResolve(records int, duration time.Duration, err error)

	// RecordMatrixLoad is called after each LoadMatrices or LoadScoreLists
	// call with the number of committed matrices.
	RecordMatrixLoad(matrices int, duration time.Duration, err error)

	// RecordIndex is called after each match index rebuild.
	RecordIndex(duration time.Duration, err error)

	// RecordFuse is called after each fusion with the number of training pairs.
	RecordFuse(pairs int, duration time.Duration, err error)

	// RecordGenerate is called after each matrix generation.
	RecordGenerate(duration time.Duration, err error)

	// RecordSession is called after each session save, load or delete.
	RecordSession(op string, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordResolve(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordMatrixLoad(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordIndex(time.Duration, error)           {}
func (NoopMetricsCollector) RecordFuse(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordGenerate(time.Duration, error)        {}
func (NoopMetricsCollector) RecordSession(string, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ResolveCount       atomic.Int64
	ResolveErrors      atomic.Int64
	RecordsResolved    atomic.Int64
	MatrixLoadCount    atomic.Int64
	MatrixLoadErrors   atomic.Int64
	MatricesLoaded     atomic.Int64
	IndexCount         atomic.Int64
	IndexErrors        atomic.Int64
	IndexTotalNanos    atomic.Int64
	FuseCount          atomic.Int64
	FuseErrors         atomic.Int64
	FusePairs          atomic.Int64
	GenerateCount      atomic.Int64
	GenerateErrors     atomic.Int64
	GenerateTotalNanos atomic.Int64
	SessionCount       atomic.Int64
	SessionErrors      atomic.Int64
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(records int, duration time.Duration, err error) {
	b.ResolveCount.Add(1)
	if err != nil {
		b.ResolveErrors.Add(1)
		return
	}
	b.RecordsResolved.Add(int64(records))
}

// RecordMatrixLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatrixLoad(matrices int, duration time.Duration, err error) {
	b.MatrixLoadCount.Add(1)
	if err != nil {
		b.MatrixLoadErrors.Add(1)
		return
	}
	b.MatricesLoaded.Add(int64(matrices))
}

// RecordIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndex(duration time.Duration, err error) {
	b.IndexCount.Add(1)
	b.IndexTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IndexErrors.Add(1)
	}
}

// RecordFuse implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFuse(pairs int, duration time.Duration, err error) {
	b.FuseCount.Add(1)
	if err != nil {
		b.FuseErrors.Add(1)
		return
	}
	b.FusePairs.Add(int64(pairs))
}

// RecordGenerate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGenerate(duration time.Duration, err error) {
	b.GenerateCount.Add(1)
	b.GenerateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GenerateErrors.Add(1)
	}
}

// RecordSession implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSession(op string, duration time.Duration, err error) {
	b.SessionCount.Add(1)
	if err != nil {
		b.SessionErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ResolveCount:     b.ResolveCount.Load(),
		ResolveErrors:    b.ResolveErrors.Load(),
		RecordsResolved:  b.RecordsResolved.Load(),
		MatrixLoadCount:  b.MatrixLoadCount.Load(),
		MatrixLoadErrors: b.MatrixLoadErrors.Load(),
		MatricesLoaded:   b.MatricesLoaded.Load(),
		IndexCount:       b.IndexCount.Load(),
		IndexErrors:      b.IndexErrors.Load(),
		IndexAvgNanos:    avg(b.IndexTotalNanos.Load(), b.IndexCount.Load()),
		FuseCount:        b.FuseCount.Load(),
		FuseErrors:       b.FuseErrors.Load(),
		FusePairs:        b.FusePairs.Load(),
		GenerateCount:    b.GenerateCount.Load(),
		GenerateErrors:   b.GenerateErrors.Load(),
		GenerateAvgNanos: avg(b.GenerateTotalNanos.Load(), b.GenerateCount.Load()),
		SessionCount:     b.SessionCount.Load(),
		SessionErrors:    b.SessionErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ResolveCount     int64
	ResolveErrors    int64
	RecordsResolved  int64
	MatrixLoadCount  int64
	MatrixLoadErrors int64
	MatricesLoaded   int64
	IndexCount       int64
	IndexErrors      int64
	IndexAvgNanos    int64
	FuseCount        int64
	FuseErrors       int64
	FusePairs        int64
	GenerateCount    int64
	GenerateErrors   int64
	GenerateAvgNanos int64
	SessionCount     int64
	SessionErrors    int64
}
