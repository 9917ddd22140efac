package constants

// Default timeout values used by client packages
const (
	DefaultHTTPTimeoutSec = 30
)

// Size limits used by client packages
const (
	MaxProviderResponseBytes = 1 << 20
)

// Circuit breaker settings for provider calls
const (
	DefaultBreakerMaxFailures = 5
	DefaultBreakerCooldownSec = 30
)
