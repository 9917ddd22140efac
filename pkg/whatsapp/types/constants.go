package types

const (
	MessagingProductWhatsApp = "whatsapp"
	MessageTypeTemplate      = "template"
	ComponentTypeBody        = "body"
	ParameterTypeText        = "text"
)

const (
	EndpointMessages = "/messages"
)

// Webhook verification handshake query parameters
const (
	QueryHubMode        = "hub.mode"
	QueryHubChallenge   = "hub.challenge"
	QueryHubVerifyToken = "hub.verify_token"
)

// HeaderHubSignature carries the sha256 HMAC of the webhook body keyed by the app secret
const HeaderHubSignature = "X-Hub-Signature-256"
