package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"wainbox/internal/constants"
	"wainbox/internal/errors"
	"wainbox/internal/metrics"
	"wainbox/internal/tracing"
	"wainbox/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// User-facing messages for dispatch failures
const (
	ErrMsgMissingID     = "missing id"
	ErrMsgInvalidID     = "invalid id"
	ErrMsgMissingConfig = "Missing env variables"
)

// DispatcherConfig is the provider configuration a dispatcher is built with
type DispatcherConfig struct {
	AccessToken     string
	PhoneNumberID   string
	DefaultTemplate string
	LanguageCode    string
}

// DispatchRequest is the operator's request body. ID is kept raw so a missing
// id can be told apart from an id that does not parse.
type DispatchRequest struct {
	ID       json.RawMessage `json:"id"`
	Template string          `json:"template,omitempty"`
}

// TemplateDispatcher sends a template reply to the sender of a stored record
type TemplateDispatcher struct {
	config  DispatcherConfig
	store   Store
	sender  types.TemplateSender
	logger  *logrus.Logger
	metrics *metrics.Registry
}

// NewTemplateDispatcher creates a dispatcher. m may be nil.
func NewTemplateDispatcher(config DispatcherConfig, store Store, sender types.TemplateSender, logger *logrus.Logger, m *metrics.Registry) *TemplateDispatcher {
	if config.DefaultTemplate == "" {
		config.DefaultTemplate = constants.DefaultTemplateName
	}
	if config.LanguageCode == "" {
		config.LanguageCode = constants.DefaultLanguageCode
	}
	return &TemplateDispatcher{
		config:  config,
		store:   store,
		sender:  sender,
		logger:  logger,
		metrics: m,
	}
}

// Dispatch looks up the record's sender and relays the provider's response.
// Client mistakes (missing or unknown id) and storage failures are returned as
// errors. Missing credentials and upstream failures are not errors: they come
// back as an {"error": ...} document in place of the provider response.
func (d *TemplateDispatcher) Dispatch(ctx context.Context, req DispatchRequest) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch_template")
	defer span.End()

	if isAbsent(req.ID) {
		err := errors.NewValidationError("id", ErrMsgMissingID)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	id, ok := parseRecordID(req.ID)
	if !ok {
		d.metrics.RecordTemplateSend(metrics.OutcomeNotFound, 0)
		return nil, errors.NewNotFoundError("incoming_message", string(req.ID), ErrMsgInvalidID)
	}
	tracing.AddSpanAttributes(ctx, attribute.Int64("record.id", id))

	sender, err := d.store.FindSenderByID(ctx, id)
	if err != nil {
		appErr := errors.NewDatabaseError("find sender", err).WithContext(LogFieldRecordID, id)
		tracing.RecordError(ctx, appErr)
		return nil, appErr
	}
	if sender == nil {
		d.metrics.RecordTemplateSend(metrics.OutcomeNotFound, 0)
		return nil, errors.NewNotFoundError("incoming_message", strconv.FormatInt(id, 10), ErrMsgInvalidID)
	}

	if d.config.AccessToken == "" || d.config.PhoneNumberID == "" {
		d.metrics.RecordTemplateSend(metrics.OutcomeMissingConfig, 0)
		LogWithContext(ctx, d.logger).WithField(LogFieldRecordID, id).Warn("Skipping template send: WhatsApp credentials are not configured")
		return errorDocument(ErrMsgMissingConfig), nil
	}

	template := strings.TrimSpace(req.Template)
	if template == "" {
		template = d.config.DefaultTemplate
	}
	tracing.AddSpanAttributes(ctx, attribute.String("template.name", template))

	msg := types.NewTemplateMessage(sender.Address, template, d.config.LanguageCode,
		sender.Name, strconv.FormatInt(id, 10))

	start := time.Now()
	resp, err := d.sender.SendTemplate(ctx, msg)
	duration := time.Since(start)

	fields := senderFields(ctx, sender.Address, sender.Name)
	fields[LogFieldRecordID] = id
	fields[LogFieldTemplate] = template
	fields[LogFieldDuration] = duration.Milliseconds()

	if err != nil {
		d.metrics.RecordTemplateSend(metrics.OutcomeUpstreamError, duration)
		apiErr := errors.NewAPIError(types.EndpointMessages, err)
		tracing.RecordError(ctx, apiErr)
		LogWithContext(ctx, d.logger).WithFields(fields).WithError(apiErr).Error("Failed to send WhatsApp template")
		return errorDocument(err.Error()), nil
	}

	d.metrics.RecordTemplateSend(metrics.OutcomeSent, duration)
	LogWithContext(ctx, d.logger).WithFields(fields).Info("Template dispatched")
	return resp, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseRecordID accepts a JSON integer, an integral JSON number such as 1.0,
// or a string holding a decimal integer. Anything else cannot name a record.
func parseRecordID(raw json.RawMessage) (int64, bool) {
	trimmed := bytes.TrimSpace(raw)

	var text string
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	} else {
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return 0, false
		}
		text = n.String()
	}

	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id, true
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

func errorDocument(description string) json.RawMessage {
	doc, err := json.Marshal(map[string]string{"error": description})
	if err != nil {
		return json.RawMessage(`{"error":"internal error"}`)
	}
	return doc
}
