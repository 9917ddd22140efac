package service

import (
	"context"

	"wainbox/internal/privacy"
	"wainbox/internal/tracing"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
// See staticcheck SA1029 guidance
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// WithVerboseLogging marks ctx so sender details are logged unmasked
func WithVerboseLogging(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// LogWithContext starts an entry carrying the request and trace ids found in ctx
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if id := tracing.GetRequestID(ctx); id != "" {
		entry = entry.WithField(LogFieldRequestID, id)
	}
	if traceID := tracing.GetOtelTraceID(ctx); traceID != "" {
		entry = entry.WithField(LogFieldTraceID, traceID)
	}
	return entry
}

// senderFields returns log fields describing a sender, masked unless verbose
func senderFields(ctx context.Context, address, name string) logrus.Fields {
	if IsVerboseLogging(ctx) {
		return logrus.Fields{
			LogFieldSenderAddress: address,
			LogFieldSenderName:    name,
		}
	}
	return logrus.Fields(privacy.MaskSensitiveFields(map[string]interface{}{
		LogFieldSenderAddress: address,
	}))
}
