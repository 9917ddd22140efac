package constants

// Default server configuration values
const (
	DefaultServerPort            = 5000
	DefaultMountPrefix           = "/whatsapp"
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 45
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
	MaxWebhookBodyBytes          = 1 << 20
)

// Default WhatsApp Cloud API values
const (
	DefaultWhatsAppAPIBaseURL = "https://graph.facebook.com/v17.0"
	DefaultTemplateName       = "complaint_received"
	DefaultLanguageCode       = "en_US"
	DefaultHTTPTimeoutSec     = 30
)

// Default storage values
const (
	DefaultDatabasePath          = "complaints.db"
	DefaultMaxOpenConnections    = 4
	DefaultMaxIdleConnections    = 2
	DefaultDatabaseBusyTimeoutMs = 5000
)

// Default inbox values
const (
	DefaultListLimit = 200
	DefaultAckStatus = "ok"
)

// Encryption salts
const (
	EncryptionSalt = "wainbox-at-rest-v1"
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
)
