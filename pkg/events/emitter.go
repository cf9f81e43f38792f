// Package events handles event emission for contact lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventContactCreated  = "contact.created"
	EventContactReplaced = "contact.replaced"
	EventContactMerged   = "contact.merged"
	EventContactDeleted  = "contact.deleted"
)

// Publisher delivers contact events
type Publisher interface {
	PublishContactEvent(ctx context.Context, event *kafka.ContactEvent) error
}

// Emitter turns resolution outcomes into contact events
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EventTypeFor maps a terminal resolution to its event type. Aborted
// resolutions emit nothing.
func EventTypeFor(kind models.ResolutionKind) (string, bool) {
	switch kind {
	case models.ResolutionSaveAsNew:
		return EventContactCreated, true
	case models.ResolutionReplace:
		return EventContactReplaced, true
	case models.ResolutionMerge:
		return EventContactMerged, true
	default:
		return "", false
	}
}

// EmitOutcome emits the event matching a terminal resolution
func (e *Emitter) EmitOutcome(ctx context.Context, outcome *models.Outcome) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitOutcome")
	defer span.End()

	if outcome == nil || outcome.Contact == nil {
		return nil
	}
	eventType, ok := EventTypeFor(outcome.Kind)
	if !ok {
		return nil
	}

	return e.emit(ctx, eventType, *outcome.Contact)
}

// EmitContactDeleted emits a contact deleted event
func (e *Emitter) EmitContactDeleted(ctx context.Context, contactID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContactDeleted")
	defer span.End()

	return e.emit(ctx, EventContactDeleted, models.Contact{ID: contactID})
}

func (e *Emitter) emit(ctx context.Context, eventType string, contact models.Contact) error {
	event := &kafka.ContactEvent{
		EventType:     eventType,
		ContactID:     contact.ID,
		Source:        string(contact.Source),
		ResolutionID:  appctx.GetResolutionID(ctx),
		RequestID:     appctx.GetRequestID(ctx),
		SchemaVersion: SchemaVersion,
	}

	if eventType != EventContactDeleted {
		// images stay out of the event stream
		contact.Image = nil
		data, err := json.Marshal(contact)
		if err != nil {
			return err
		}
		event.Data = data
	}

	if err := e.publisher.PublishContactEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}
