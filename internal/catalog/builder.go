// Package catalog rebuilds the archive's catalog from the ledger: it walks the
// program address's signature history, decodes each transaction's payload and
// keeps the result in the session cache.
package catalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"lpp-backend/internal/codec"
	"lpp-backend/internal/domain"
	"lpp-backend/internal/ledger"
	"lpp-backend/internal/observability"
)

// Builder reconstructs the catalog from the ledger.
type Builder struct {
	reader    ledger.Reader
	codec     *codec.Codec
	program   ledger.PublicKey
	pageLimit int
	logger    *zap.Logger
	metrics   *observability.Collector
	now       func() time.Time
}

// NewBuilder creates a builder reading program's history in pages of
// pageLimit signatures. metrics may be nil.
func NewBuilder(reader ledger.Reader, c *codec.Codec, program ledger.PublicKey, pageLimit int, logger *zap.Logger, metrics *observability.Collector) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		reader:    reader,
		codec:     c,
		program:   program,
		pageLimit: pageLimit,
		logger:    logger.With(zap.String("component", "catalog_builder")),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Build walks the whole history and returns every record that decodes, in
// the order signatures were listed. It never fails: listing errors end the
// walk early, per-transaction errors skip that transaction, and both are
// recorded in the report. Gateway calls are made one at a time. Once started
// a build runs to completion; cancelling ctx does not stop it.
func (b *Builder) Build(ctx context.Context) *Catalog {
	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.Tracer().Start(ctx, "catalog.Build")
	defer span.End()

	start := b.now()
	cat := &Catalog{
		Records: []domain.ArtifactRecord{},
		Report:  Report{Skipped: make(map[Reason]int)},
	}
	report := &cat.Report

	pager := newSignaturePager(b.reader, b.program, b.pageLimit)
	for {
		sig, ok := pager.Next(ctx)
		if !ok {
			break
		}

		item := b.decode(ctx, sig)
		report.Signatures++
		report.Items = append(report.Items, item)
		if item.Reason == ReasonDecoded {
			report.Decoded++
			cat.Records = append(cat.Records, *item.Record)
			continue
		}
		report.Skipped[item.Reason]++
		b.metrics.RecordSkip(string(item.Reason))
		b.logger.Warn("Skipping transaction",
			zap.String("signature", sig.String()),
			zap.String("reason", string(item.Reason)),
			zap.Error(item.Err))
	}

	report.ListCalls = pager.Calls()
	if err := pager.Err(); err != nil {
		report.EnumerationError = err.Error()
		b.logger.Warn("Signature listing failed, keeping partial catalog",
			zap.Int("signatures", report.Signatures),
			zap.Error(err))
	}
	report.Truncated = report.EnumerationError != ""

	cat.BuiltAt = b.now()
	report.Duration = cat.BuiltAt.Sub(start)
	b.metrics.RecordBuild(report.Truncated, len(cat.Records), report.Duration)

	span.SetAttributes(
		attribute.Int("catalog.list_calls", report.ListCalls),
		attribute.Int("catalog.signatures", report.Signatures),
		attribute.Int("catalog.records", len(cat.Records)),
		attribute.Bool("catalog.truncated", report.Truncated),
	)
	b.logger.Info("Catalog built",
		zap.Int("records", len(cat.Records)),
		zap.Int("signatures", report.Signatures),
		zap.Int("list_calls", report.ListCalls),
		zap.Bool("truncated", report.Truncated),
		zap.Duration("duration", report.Duration))
	return cat
}

// decode fetches one transaction and decodes its payload line.
func (b *Builder) decode(ctx context.Context, sig ledger.Signature) ItemResult {
	item := ItemResult{Signature: sig}

	tx, err := b.reader.GetTransaction(ctx, sig)
	if err != nil {
		item.Reason, item.Err = reasonFor(err), err
		return item
	}

	record, err := b.codec.DecodeLogs(tx.LogMessages)
	if err != nil {
		item.Reason, item.Err = reasonFor(err), err
		return item
	}
	record.Signature = sig.String()
	item.Reason = ReasonDecoded
	item.Record = &record
	return item
}
