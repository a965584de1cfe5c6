// Package events announces published artifacts to downstream consumers.
package events

import (
	"context"
	"time"
)

// Source identifies this service on the event bus.
const Source = "lpp.archive"

// DetailTypeArtifactPublished is the detail type of ArtifactPublished events.
const DetailTypeArtifactPublished = "ArtifactPublished"

// ArtifactPublished is emitted after a record is confirmed on the ledger.
type ArtifactPublished struct {
	Signature   string    `json:"signature"`
	Account     string    `json:"account"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	PublishDate string    `json:"publishDate"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Notifier delivers events. Delivery failures are reported to the caller,
// which decides whether they matter.
type Notifier interface {
	ArtifactPublished(ctx context.Context, event ArtifactPublished) error
}

// NopNotifier discards every event.
type NopNotifier struct{}

// ArtifactPublished implements Notifier.
func (NopNotifier) ArtifactPublished(context.Context, ArtifactPublished) error {
	return nil
}
