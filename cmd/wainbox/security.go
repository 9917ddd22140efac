package main

import (
	stderrors "errors"
	"io"
	"net/http"

	"wainbox/internal/constants"
	"wainbox/internal/errors"
	"wainbox/internal/security"
	"wainbox/pkg/whatsapp/types"
)

// readWebhookBody reads the delivery body, bounded in size, and checks its
// X-Hub-Signature-256 header when an app secret is configured.
func readWebhookBody(w http.ResponseWriter, r *http.Request, appSecret string) ([]byte, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}

	if appSecret == "" {
		return body, nil
	}

	if err := security.VerifyPayloadSignature(body, r.Header.Get(types.HeaderHubSignature), appSecret); err != nil {
		return nil, errors.NewAuthError(err.Error())
	}
	return body, nil
}

// verifyHandshakeToken reports whether a subscription handshake may be answered.
// With no verify token configured every handshake is answered.
func verifyHandshakeToken(r *http.Request, verifyToken string) error {
	if verifyToken == "" {
		return nil
	}
	if !security.TokensEqual(verifyToken, r.URL.Query().Get(types.QueryHubVerifyToken)) {
		return errors.NewForbiddenError("verify token mismatch")
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return nil, errors.NewValidationError("body", "payload too large")
		}
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read request body").
			WithUserMessage("unreadable body")
	}
	return body, nil
}
