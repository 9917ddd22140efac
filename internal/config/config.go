package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wainbox/internal/constants"
	"wainbox/internal/errors"
	"wainbox/internal/models"
	"wainbox/internal/security"
	"wainbox/internal/validation"
)

var (
	ErrInvalidPort        = models.ConfigError{Message: "server port must be between 1 and 65535"}
	ErrInvalidMountPrefix = models.ConfigError{Message: "mount prefix must start with '/'"}
	ErrInvalidListLimit   = models.ConfigError{Message: "inbox list limit must not be negative"}
	ErrMissingDBPath      = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads the JSON config at path, fills defaults and applies
// environment overrides. An empty path means defaults plus environment only.
func LoadConfig(path string) (*models.Config, error) {
	var config models.Config

	if path != "" {
		if err := security.ValidateFilePath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(file, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate fills defaults for unset values and rejects values that cannot work
func validate(c *models.Config) error {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Server.MountPrefix == "" {
		c.Server.MountPrefix = constants.DefaultMountPrefix
	}
	if !strings.HasPrefix(c.Server.MountPrefix, "/") {
		return ErrInvalidMountPrefix
	}
	if c.Server.MountPrefix != "/" {
		c.Server.MountPrefix = strings.TrimRight(c.Server.MountPrefix, "/")
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.WhatsApp.APIBaseURL == "" {
		c.WhatsApp.APIBaseURL = constants.DefaultWhatsAppAPIBaseURL
	}
	if c.WhatsApp.DefaultTemplate == "" {
		c.WhatsApp.DefaultTemplate = constants.DefaultTemplateName
	}
	if c.WhatsApp.LanguageCode == "" {
		c.WhatsApp.LanguageCode = constants.DefaultLanguageCode
	}
	if c.WhatsApp.TimeoutSec <= 0 {
		c.WhatsApp.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}

	if c.Database.Path == "" {
		c.Database.Path = constants.DefaultDatabasePath
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return ErrMissingDBPath
	}
	if c.Database.MaxOpenConnections <= 0 {
		c.Database.MaxOpenConnections = constants.DefaultMaxOpenConnections
	}
	if c.Database.MaxIdleConnections <= 0 {
		c.Database.MaxIdleConnections = min(constants.DefaultMaxIdleConnections, c.Database.MaxOpenConnections)
	}
	if c.Database.BusyTimeoutMs <= 0 {
		c.Database.BusyTimeoutMs = constants.DefaultDatabaseBusyTimeoutMs
	}

	if c.Inbox.ListLimit < 0 {
		return ErrInvalidListLimit
	}
	if c.Inbox.ListLimit == 0 {
		c.Inbox.ListLimit = constants.DefaultListLimit
	}
	if c.Inbox.AckStatus == "" {
		c.Inbox.AckStatus = constants.DefaultAckStatus
	}
	if c.Inbox.Timezone != "" {
		if _, err := time.LoadLocation(c.Inbox.Timezone); err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid inbox timezone %q: %v", c.Inbox.Timezone, err)}
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return validateLimits(c)
}

// validateLimits rejects values that are set but outside what the service can run with
func validateLimits(c *models.Config) error {
	checks := []error{
		validation.ValidateTimeout(c.Server.ReadTimeoutSec, "server read timeout"),
		validation.ValidateTimeout(c.Server.WriteTimeoutSec, "server write timeout"),
		validation.ValidateTimeout(c.Server.IdleTimeoutSec, "server idle timeout"),
		validation.ValidateTimeout(c.WhatsApp.TimeoutSec, "whatsapp timeout"),
		validation.ValidateConnectionPool(c.Database.MaxOpenConnections, c.Database.MaxIdleConnections),
		validation.ValidateListLimit(c.Inbox.ListLimit),
		validation.ValidateAckStatus(c.Inbox.AckStatus),
		validation.ValidateTemplateName(c.WhatsApp.DefaultTemplate),
	}
	for _, err := range checks {
		if err != nil {
			return models.ConfigError{Message: errors.GetUserMessage(err)}
		}
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) error {
	// SECURITY: credentials should come from the environment, not the config file
	if token := os.Getenv("WHATSAPP_TOKEN"); token != "" {
		c.WhatsApp.AccessToken = token
	}
	if id := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); id != "" {
		c.WhatsApp.PhoneNumberID = id
	}
	if url := os.Getenv("WHATSAPP_API_URL"); url != "" {
		c.WhatsApp.APIBaseURL = url
	}
	if secret := os.Getenv("WHATSAPP_APP_SECRET"); secret != "" {
		c.WhatsApp.AppSecret = secret
	}
	if token := os.Getenv("WHATSAPP_VERIFY_TOKEN"); token != "" {
		c.WhatsApp.VerifyToken = token
	}
	if key := os.Getenv("SECRET_KEY"); key != "" {
		c.Security.SecretKey = key
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid PORT %q", port)}
		}
		c.Server.Port = p
	}
	if enc := os.Getenv("WAINBOX_ENCRYPT_AT_REST"); enc != "" {
		b, err := strconv.ParseBool(enc)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid WAINBOX_ENCRYPT_AT_REST %q", enc)}
		}
		c.Security.EncryptAtRest = b
	}
	return nil
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	if c.Security.EncryptAtRest {
		if c.Security.SecretKey == "" {
			return models.ConfigError{Message: "SECRET_KEY is required when encrypt_at_rest is enabled"}
		}
		if len(c.Security.SecretKey) < models.MinSecretKeyLength {
			return models.ConfigError{Message: fmt.Sprintf("SECRET_KEY must be at least %d characters long", models.MinSecretKeyLength)}
		}
	}

	if os.Getenv("WAINBOX_ENV") == "production" {
		// In production, webhook signatures are mandatory
		if c.WhatsApp.AppSecret == "" {
			return models.ConfigError{Message: "WhatsApp app secret is required in production (set WHATSAPP_APP_SECRET environment variable)"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else if c.WhatsApp.AppSecret == "" {
		fmt.Fprintf(os.Stderr, "WARNING: WhatsApp app secret not set. Webhook signatures will not be verified. Set WHATSAPP_APP_SECRET for security.\n")
	}

	return nil
}
