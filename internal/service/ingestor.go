package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"wainbox/internal/errors"
	"wainbox/internal/metrics"
	"wainbox/internal/models"
	"wainbox/internal/tracing"
	"wainbox/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// User-facing messages for rejected webhook bodies
const (
	ErrMsgEmptyBody   = "empty"
	ErrMsgInvalidJSON = "invalid json"
)

// WebhookIngestor turns Cloud API webhook deliveries into stored records
type WebhookIngestor struct {
	store    Store
	logger   *logrus.Logger
	location *time.Location
	metrics  *metrics.Registry
}

// NewWebhookIngestor creates an ingestor. Timestamps are rendered in location,
// or in local time when location is nil. m may be nil.
func NewWebhookIngestor(store Store, logger *logrus.Logger, location *time.Location, m *metrics.Registry) *WebhookIngestor {
	if location == nil {
		location = time.Local
	}
	return &WebhookIngestor{
		store:    store,
		logger:   logger,
		location: location,
		metrics:  m,
	}
}

// Verify answers the subscription handshake by echoing the challenge unchanged
func (w *WebhookIngestor) Verify(challenge string) string {
	return challenge
}

// Ingest stores one record per change that carries both a contact and a
// message, in payload order, and returns how many were stored. Changes
// without contacts or messages are skipped. The first malformed change or
// storage failure aborts the delivery; records inserted before it remain.
func (w *WebhookIngestor) Ingest(ctx context.Context, body []byte) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest_webhook", attribute.Int("webhook.size_bytes", len(body)))
	defer span.End()

	stored, err := w.ingest(ctx, body)
	tracing.AddSpanAttributes(ctx, attribute.Int("webhook.records", stored))

	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.HTTPStatusCode(err) < 500 {
			w.metrics.RecordWebhookDelivery(metrics.OutcomeRejected, stored)
		} else {
			w.metrics.RecordWebhookDelivery(metrics.OutcomeFailed, stored)
		}
		return stored, err
	}

	if stored == 0 {
		w.metrics.RecordWebhookDelivery(metrics.OutcomeSkipped, 0)
		LogWithContext(ctx, w.logger).Debug("Webhook delivery carried no messages")
		return 0, nil
	}

	w.metrics.RecordWebhookDelivery(metrics.OutcomeStored, stored)
	LogWithContext(ctx, w.logger).WithField(LogFieldCount, stored).Info("Stored incoming WhatsApp messages")
	return stored, nil
}

func (w *WebhookIngestor) ingest(ctx context.Context, body []byte) (int, error) {
	payload, err := decodePayload(body)
	if err != nil {
		return 0, err
	}

	stored := 0
	for i, entry := range payload.Entry {
		for j, change := range entry.Changes {
			msg, appErr := w.recordFromChange(change)
			if appErr != nil {
				return stored, appErr.
					WithContext(LogFieldEntryIndex, i).
					WithContext(LogFieldChangeIndex, j)
			}
			if msg == nil {
				continue
			}

			id, err := w.store.InsertIncomingMessage(ctx, msg)
			if err != nil {
				return stored, errors.NewDatabaseError("insert incoming message", err)
			}
			stored++

			LogWithContext(ctx, w.logger).WithFields(senderFields(ctx, msg.SenderAddress, msg.SenderName)).
				WithField(LogFieldRecordID, id).
				Debug("Stored incoming message")
		}
	}
	return stored, nil
}

// decodePayload classifies the body: empty and non-JSON bodies are client
// errors, a JSON object whose envelope has the wrong shape is not.
func decodePayload(body []byte) (*types.WebhookPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.NewValidationError("body", ErrMsgEmptyBody)
	}
	if !json.Valid(trimmed) {
		return nil, errors.NewValidationError("body", ErrMsgInvalidJSON)
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return nil, errors.NewValidationError("body", ErrMsgInvalidJSON)
	}
	if len(object) == 0 {
		// covers both {} and null
		return nil, errors.NewValidationError("body", ErrMsgEmptyBody)
	}

	var payload types.WebhookPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, errors.NewMalformedPayloadError("unexpected webhook envelope", err)
	}
	return &payload, nil
}

// recordFromChange returns nil, nil for changes that carry nothing to store
func (w *WebhookIngestor) recordFromChange(change types.Change) (*models.IncomingMessage, *errors.AppError) {
	if !change.HasValue() {
		return nil, nil
	}

	var value types.ChangeValue
	if err := json.Unmarshal(change.Value, &value); err != nil {
		return nil, errors.NewMalformedPayloadError("unexpected change value", err)
	}
	if len(value.Contacts) == 0 || len(value.Messages) == 0 {
		return nil, nil
	}

	contact := value.Contacts[0]
	message := value.Messages[0]

	address, ok := contact.Address()
	if !ok {
		return nil, errors.NewMalformedPayloadError("contact has no wa_id", nil)
	}

	ts, err := message.UnixTimestamp()
	if err != nil {
		return nil, errors.NewMalformedPayloadError("message has no usable timestamp", err)
	}

	return &models.IncomingMessage{
		SenderName:    contact.DisplayName(models.DefaultSenderName),
		SenderAddress: address,
		Body:          message.TextBody(),
		ReceivedAt:    time.Unix(ts, 0).In(w.location).Format(models.ReceivedAtLayout),
		RawPayload:    string(change.Value),
	}, nil
}
