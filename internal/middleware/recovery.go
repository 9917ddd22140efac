package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"wainbox/internal/errors"
	"wainbox/internal/service"
	"wainbox/internal/tracing"

	"github.com/sirupsen/logrus"
)

// RecoveryMiddleware turns a handler panic into a logged 500 with the standard
// error body. The panic value is logged, never written to the client.
func RecoveryMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := tracing.GetRequestID(r.Context())
				err := errors.New(errors.ErrCodeInternalError, fmt.Sprintf("panic: %v", rec))
				tracing.RecordError(r.Context(), err)

				logger.WithFields(logrus.Fields{
					service.LogFieldRequestID: requestID,
					service.LogFieldMethod:    r.Method,
					service.LogFieldURL:       r.URL.Path,
				}).WithError(err).Error("Recovered from handler panic")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				resp := errors.ToHTTPResponse(errors.New(errors.ErrCodeInternalError, "internal error"), requestID)
				if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
					logger.WithError(encErr).Error("Failed to write panic response")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
