package validation

import (
	"fmt"
	"strings"

	"wainbox/internal/errors"
)

const (
	maxTimeoutSec        = 3600
	maxOpenConnections   = 1000
	maxListLimit         = 10000
	maxAckStatusLength   = 64
	maxTemplateNameBytes = 512
)

// ValidateNumericRange validates numeric values against bounds
func ValidateNumericRange(value int, fieldName string, min, max int) error {
	if value < min {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too small (min %d)", fieldName, min))
	}

	if value > max {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too large (max %d)", fieldName, max))
	}

	return nil
}

// ValidateTimeout validates timeout values
func ValidateTimeout(timeoutSec int, fieldName string) error {
	if timeoutSec < 1 {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s must be at least 1 second", fieldName))
	}

	if timeoutSec > maxTimeoutSec {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too large (max %d seconds)", fieldName, maxTimeoutSec))
	}

	return nil
}

// ValidateConnectionPool validates database connection pool settings
func ValidateConnectionPool(maxOpen, maxIdle int) error {
	if maxOpen < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "max open connections must be at least 1")
	}

	if maxOpen > maxOpenConnections {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("max open connections too large (max %d)", maxOpenConnections))
	}

	if maxIdle < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max idle connections cannot be negative")
	}

	if maxIdle > maxOpen {
		return errors.New(errors.ErrCodeInvalidInput, "max idle connections cannot exceed max open connections")
	}

	return nil
}

// ValidateListLimit bounds how many records one list call may return
func ValidateListLimit(limit int) error {
	return ValidateNumericRange(limit, "inbox list limit", 1, maxListLimit)
}

// ValidateAckStatus checks the status string echoed to the provider on delivery
func ValidateAckStatus(status string) error {
	if strings.TrimSpace(status) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "ack status cannot be blank")
	}
	if len(status) > maxAckStatusLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("ack status too long (max %d characters)", maxAckStatusLength))
	}
	return nil
}

// ValidateTemplateName checks a configured default template name. Cloud API
// template names are lowercase letters, digits and underscores.
func ValidateTemplateName(name string) error {
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "template name cannot be empty")
	}
	if len(name) > maxTemplateNameBytes {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("template name too long (max %d characters)", maxTemplateNameBytes))
	}
	for _, char := range name {
		if (char < 'a' || char > 'z') && (char < '0' || char > '9') && char != '_' {
			return errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("template name %q may only contain lowercase letters, digits and underscores", name))
		}
	}
	return nil
}
