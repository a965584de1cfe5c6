// Package publisher writes new artifact records to the ledger.
package publisher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lpp-backend/internal/codec"
	"lpp-backend/internal/domain"
	"lpp-backend/internal/events"
	"lpp-backend/internal/ledger"
	"lpp-backend/internal/observability"
	appErrors "lpp-backend/pkg/errors"
)

// Publisher creates one program-owned account per record and stores the
// encoded metadata in it through the archive program, whose log line is what
// the catalog later reads back.
type Publisher struct {
	writer   ledger.Writer
	codec    *codec.Codec
	program  ledger.PublicKey
	notifier events.Notifier
	logger   *zap.Logger
	metrics  *observability.Collector
	now      func() time.Time
}

// New creates a publisher. notifier and metrics may be nil.
func New(writer ledger.Writer, c *codec.Codec, program ledger.PublicKey, notifier events.Notifier, logger *zap.Logger, metrics *observability.Collector) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Publisher{
		writer:   writer,
		codec:    c,
		program:  program,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "publisher")),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Publish validates m, writes it to the ledger paid for by payer and returns
// the confirmed transaction signature. Invalid metadata is a VALIDATION error
// and nothing is submitted; any ledger failure is a PUBLISH_FAILED error
// wrapping the cause. Nothing is retried.
func (p *Publisher) Publish(ctx context.Context, m domain.Metadata, payer ledger.Keypair) (ledger.Signature, error) {
	ctx, span := observability.Tracer().Start(ctx, "publisher.Publish")
	defer span.End()

	if payer.IsZero() {
		return "", appErrors.NewValidation("a payer keypair is required")
	}

	m = m.Normalize()
	m.IsInitialized = true
	if m.PublishDate == "" {
		m.PublishDate = p.now().Format(domain.PublishDateLayout)
	}
	if err := m.Validate(); err != nil {
		p.metrics.RecordPublish("invalid")
		return "", err
	}

	data, err := p.codec.Encode(m)
	if err != nil {
		p.metrics.RecordPublish("failed")
		return "", appErrors.NewPublishFailed("encoding metadata", err)
	}

	account, err := ledger.NewKeypair()
	if err != nil {
		p.metrics.RecordPublish("failed")
		return "", appErrors.NewPublishFailed("generating account", err)
	}

	lamports, err := p.writer.MinimumBalanceForRentExemption(ctx, len(data))
	if err != nil {
		p.metrics.RecordPublish("failed")
		return "", appErrors.NewPublishFailed("computing rent exemption", err)
	}

	instructions := Instructions(payer.PublicKey(), account.PublicKey(), p.program, lamports, data)
	sig, err := p.writer.SubmitAndConfirm(ctx, instructions, []ledger.Keypair{payer, account})
	if err != nil {
		p.metrics.RecordPublish("failed")
		p.logger.Error("Publish failed",
			zap.String("name", m.Name),
			zap.String("account", account.PublicKey().String()),
			zap.Error(err))
		return "", appErrors.NewPublishFailed("submitting record", err)
	}

	p.metrics.RecordPublish("confirmed")
	p.logger.Info("Record published",
		zap.String("signature", sig.String()),
		zap.String("account", account.PublicKey().String()),
		zap.Int("bytes", len(data)))

	event := events.ArtifactPublished{
		Signature:   sig.String(),
		Account:     account.PublicKey().String(),
		Name:        m.Name,
		Title:       m.Title,
		Category:    string(m.Category),
		PublishDate: m.PublishDate,
		PublishedAt: p.now().UTC(),
	}
	if err := p.notifier.ArtifactPublished(ctx, event); err != nil {
		p.logger.Warn("Failed to announce published record", zap.String("signature", sig.String()), zap.Error(err))
	}
	return sig, nil
}

// Instructions builds the two instructions of a publish transaction: the
// system program funds and allocates an account of len(data) bytes owned by
// program, then program stores data in it.
func Instructions(payer, account, program ledger.PublicKey, lamports uint64, data []byte) []ledger.Instruction {
	return []ledger.Instruction{
		ledger.CreateAccount(payer, account, lamports, uint64(len(data)), program),
		ledger.StoreRecord(program, account, payer, data),
	}
}
