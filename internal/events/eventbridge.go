package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// PutEventsAPI is the part of the EventBridge client the notifier uses.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeNotifier implements Notifier using AWS EventBridge
type EventBridgeNotifier struct {
	client       PutEventsAPI
	eventBusName string
	logger       *zap.Logger
}

// NewEventBridgeNotifier creates a notifier putting events on eventBusName.
func NewEventBridgeNotifier(client PutEventsAPI, eventBusName string, logger *zap.Logger) *EventBridgeNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBridgeNotifier{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// ArtifactPublished implements Notifier.
func (n *EventBridgeNotifier) ArtifactPublished(ctx context.Context, event ArtifactPublished) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	entry := types.PutEventsRequestEntry{
		EventBusName: aws.String(n.eventBusName),
		Source:       aws.String(Source),
		DetailType:   aws.String(DetailTypeArtifactPublished),
		Detail:       aws.String(string(detail)),
		Time:         aws.Time(event.PublishedAt),
		Resources:    []string{fmt.Sprintf("ledger:account:%s", event.Account)},
	}

	result, err := n.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{entry},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			n.logger.Error("EventBridge rejected PutEvents",
				zap.String("eventType", DetailTypeArtifactPublished),
				zap.String("errorCode", apiErr.ErrorCode()),
				zap.String("fault", apiErr.ErrorFault().String()),
				zap.String("errorMessage", apiErr.ErrorMessage()),
			)
			return fmt.Errorf("EventBridge rejected event (%s): %w", apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("failed to publish event to EventBridge: %w", err)
	}

	// Check for failures
	if result.FailedEntryCount > 0 {
		for _, e := range result.Entries {
			if e.ErrorCode != nil {
				n.logger.Error("Failed to publish event",
					zap.String("eventType", DetailTypeArtifactPublished),
					zap.String("errorCode", aws.ToString(e.ErrorCode)),
					zap.String("errorMessage", aws.ToString(e.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	n.logger.Debug("Event published to EventBridge",
		zap.String("signature", event.Signature),
		zap.String("eventBus", n.eventBusName),
	)
	return nil
}
