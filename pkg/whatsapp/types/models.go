package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wainbox/pkg/circuitbreaker"
)

// ClientConfig configures the Cloud API client. A nil CircuitBreaker gets a
// default one.
type ClientConfig struct {
	BaseURL        string
	AccessToken    string
	PhoneNumberID  string
	Timeout        time.Duration
	CircuitBreaker *circuitbreaker.CircuitBreaker
}

// The webhook types below decode only the fields the inbox reads. Anything
// else the provider sends is ignored whatever its shape.

// WebhookPayload is the top-level webhook delivery from the Cloud API
type WebhookPayload struct {
	Entry []Entry `json:"entry"`
}

// Entry represents one business account entry
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change wraps a single change notification. Value is kept undecoded so the
// exact bytes the provider sent can be stored for audit.
type Change struct {
	Value json.RawMessage `json:"value"`
}

// HasValue reports whether the change carries a value object
func (c Change) HasValue() bool {
	v := strings.TrimSpace(string(c.Value))
	return v != "" && v != "null"
}

// ChangeValue holds the message data of a change
type ChangeValue struct {
	Contacts []Contact `json:"contacts,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// Contact is the WhatsApp user that sent the message
type Contact struct {
	WaID    *string         `json:"wa_id"`
	Profile *ContactProfile `json:"profile"`
}

// ContactProfile has the display name
type ContactProfile struct {
	Name *string `json:"name"`
}

// Address returns the wa_id and whether it was present
func (c Contact) Address() (string, bool) {
	if c.WaID == nil {
		return "", false
	}
	return *c.WaID, true
}

// DisplayName returns the profile name, or fallback when the provider sent none
func (c Contact) DisplayName(fallback string) string {
	if c.Profile == nil || c.Profile.Name == nil {
		return fallback
	}
	return *c.Profile.Name
}

// Message is an incoming WhatsApp message
type Message struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Text      *TextContent    `json:"text,omitempty"`
}

// TextContent holds a text message body
type TextContent struct {
	Body *string `json:"body"`
}

// TextBody returns the text body, or "" for non-text messages
func (m Message) TextBody() string {
	if m.Text == nil || m.Text.Body == nil {
		return ""
	}
	return *m.Text.Body
}

// UnixTimestamp parses the epoch-seconds timestamp. The Cloud API sends it as
// a JSON string; plain numbers are accepted too.
func (m Message) UnixTimestamp() (int64, error) {
	raw := strings.TrimSpace(string(m.Timestamp))
	if raw == "" || raw == "null" {
		return 0, fmt.Errorf("message timestamp is missing")
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(m.Timestamp, &s); err != nil {
			return 0, fmt.Errorf("invalid message timestamp: %w", err)
		}
		raw = strings.TrimSpace(s)
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid message timestamp %q: %w", raw, err)
	}
	return ts, nil
}

// TemplateMessage is the body of a template send request
type TemplateMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         Template `json:"template"`
}

// Template names a pre-approved template and its parameters
type Template struct {
	Name       string      `json:"name"`
	Language   Language    `json:"language"`
	Components []Component `json:"components"`
}

type Language struct {
	Code string `json:"code"`
}

type Component struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameters"`
}

type Parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTemplateMessage builds a template message whose body component carries
// one text parameter per bodyParams entry, in order
func NewTemplateMessage(to, templateName, languageCode string, bodyParams ...string) *TemplateMessage {
	params := make([]Parameter, 0, len(bodyParams))
	for _, p := range bodyParams {
		params = append(params, Parameter{Type: ParameterTypeText, Text: p})
	}

	return &TemplateMessage{
		MessagingProduct: MessagingProductWhatsApp,
		To:               to,
		Type:             MessageTypeTemplate,
		Template: Template{
			Name:     templateName,
			Language: Language{Code: languageCode},
			Components: []Component{
				{Type: ComponentTypeBody, Parameters: params},
			},
		},
	}
}
