package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wainbox/pkg/circuitbreaker"
	"wainbox/pkg/constants"
	"wainbox/pkg/whatsapp/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ErrMissingCredentials is returned before any network call when the access
// token or the phone number id is not configured
var ErrMissingCredentials = errors.New("missing WhatsApp access token or phone number id")

// Client talks to the WhatsApp Cloud API
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	client        *http.Client
	breaker       *circuitbreaker.CircuitBreaker
}

var _ types.TemplateSender = (*Client)(nil)

func NewClient(config types.ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = time.Duration(constants.DefaultHTTPTimeoutSec) * time.Second
	}

	breaker := config.CircuitBreaker
	if breaker == nil {
		breaker = circuitbreaker.New("whatsapp",
			constants.DefaultBreakerMaxFailures,
			time.Duration(constants.DefaultBreakerCooldownSec)*time.Second,
			nil)
	}

	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		accessToken:   config.AccessToken,
		phoneNumberID: config.PhoneNumberID,
		client:        &http.Client{Timeout: timeout},
		breaker:       breaker,
	}
}

// SendTemplate posts msg to the messages endpoint of the configured phone
// number. Any JSON response is returned verbatim whatever its status code;
// transport failures and non-JSON bodies are returned as errors. Repeated
// transport failures open the circuit breaker and later calls fail fast.
func (c *Client) SendTemplate(ctx context.Context, msg *types.TemplateMessage) (json.RawMessage, error) {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return nil, ErrMissingCredentials
	}
	if msg == nil {
		return nil, fmt.Errorf("template message is nil")
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var body json.RawMessage
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		body, err = c.post(ctx, jsonData)
		return err
	}, countsAgainstProvider)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// post sends one request. Any JSON body is a success whatever the status code.
func (c *Client) post(ctx context.Context, jsonData []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxProviderResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid JSON response from provider (status %d)", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}

// BreakerState reports whether sends are currently reaching the provider
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}

// countsAgainstProvider ignores failures caused by the caller giving up
func countsAgainstProvider(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (c *Client) messagesURL() string {
	return c.baseURL + "/" + url.PathEscape(c.phoneNumberID) + types.EndpointMessages
}
