package models

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	WhatsApp WhatsAppConfig `json:"whatsapp" mapstructure:"whatsapp"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Inbox    InboxConfig    `json:"inbox" mapstructure:"inbox"`
	Security SecurityConfig `json:"security" mapstructure:"security"`
	Tracing  TracingConfig  `json:"tracing" mapstructure:"tracing"`
	LogLevel string         `json:"log_level" mapstructure:"log_level"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            int    `json:"port" mapstructure:"port"`
	MountPrefix     string `json:"mount_prefix" mapstructure:"mount_prefix"`
	ReadTimeoutSec  int    `json:"read_timeout_sec" mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `json:"write_timeout_sec" mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `json:"idle_timeout_sec" mapstructure:"idle_timeout_sec"`
}

// WhatsAppConfig holds WhatsApp Cloud API settings
type WhatsAppConfig struct {
	APIBaseURL      string `json:"api_base_url" mapstructure:"api_base_url"`
	AccessToken     string `json:"access_token" mapstructure:"access_token"`
	PhoneNumberID   string `json:"phone_number_id" mapstructure:"phone_number_id"`
	DefaultTemplate string `json:"default_template" mapstructure:"default_template"`
	LanguageCode    string `json:"language_code" mapstructure:"language_code"`
	TimeoutSec      int    `json:"timeout_sec" mapstructure:"timeout_sec"`
	// AppSecret keys the X-Hub-Signature-256 check
	AppSecret       string `json:"app_secret" mapstructure:"app_secret"`
	// VerifyToken is the hub.verify_token expected on handshake
	VerifyToken     string `json:"verify_token" mapstructure:"verify_token"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path               string `json:"path" mapstructure:"path"`
	MaxOpenConnections int    `json:"max_open_connections" mapstructure:"max_open_connections"`
	MaxIdleConnections int    `json:"max_idle_connections" mapstructure:"max_idle_connections"`
	BusyTimeoutMs      int    `json:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// InboxConfig holds the knobs that differ between deployments of the inbox
type InboxConfig struct {
	ListLimit int    `json:"list_limit" mapstructure:"list_limit"`
	AckStatus string `json:"ack_status" mapstructure:"ack_status"`
	Timezone  string `json:"timezone" mapstructure:"timezone"`
}

// SecurityConfig holds secrets used by the web layer and the storage encryption
type SecurityConfig struct {
	SecretKey     string `json:"secret_key" mapstructure:"secret_key"`
	EncryptAtRest bool   `json:"encrypt_at_rest" mapstructure:"encrypt_at_rest"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName    string  `json:"service_name" mapstructure:"service_name"`
	ServiceVersion string  `json:"service_version" mapstructure:"service_version"`
	Environment    string  `json:"environment" mapstructure:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate" mapstructure:"sample_rate"`
	UseStdout      bool    `json:"use_stdout" mapstructure:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
