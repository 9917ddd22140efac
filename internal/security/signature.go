package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const signaturePrefix = "sha256="

// SignPayload returns the X-Hub-Signature-256 header value for body
func SignPayload(body []byte, appSecret string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayloadSignature checks an X-Hub-Signature-256 header against body.
// The Cloud API signs the raw request body with the app secret.
func VerifyPayloadSignature(body []byte, header, appSecret string) error {
	if appSecret == "" {
		return fmt.Errorf("app secret is not configured")
	}
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	scheme, signature, ok := strings.Cut(header, "=")
	if !ok || !strings.EqualFold(scheme, "sha256") {
		return fmt.Errorf("invalid signature format")
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// TokensEqual compares two shared tokens in constant time
func TokensEqual(expected, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
