package models

// DefaultSenderName is stored when the provider does not send a profile name
const DefaultSenderName = "Unknown"

// ReceivedAtLayout is the fixed format of IncomingMessage.ReceivedAt
const ReceivedAtLayout = "2006-01-02 15:04:05"

// IncomingMessage is one inbound WhatsApp message as persisted by the inbox.
// Records are never updated or deleted once written.
type IncomingMessage struct {
	ID            int64  `db:"id" json:"id"`
	SenderName    string `db:"name" json:"name"`
	SenderAddress string `db:"mobile" json:"mobile"`
	Body          string `db:"message" json:"message"`
	ReceivedAt    string `db:"created_at" json:"created_at"`
	RawPayload    string `db:"raw_json" json:"raw_json"`
}

// Sender is the subset of an IncomingMessage needed to reply to it
type Sender struct {
	Address string `db:"mobile"`
	Name    string `db:"name"`
}
