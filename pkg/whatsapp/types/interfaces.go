package types

import (
	"context"
	"encoding/json"
)

// TemplateSender delivers a template message and returns the provider's raw response body
type TemplateSender interface {
	SendTemplate(ctx context.Context, msg *TemplateMessage) (json.RawMessage, error)
}
