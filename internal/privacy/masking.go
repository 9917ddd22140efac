package privacy

import (
	"strings"

	"wainbox/internal/constants"
)

// MaskPhoneNumber masks a phone number or wa_id showing only the last 4 digits
// Example: "+1234567890" -> "+******7890", "15551234567" -> "*******4567"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	keep := constants.DefaultPhoneMaskLength
	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		return "+" + maskString(phone[1:], keep)
	}

	return maskString(phone, keep)
}

// MaskMessageID masks a Cloud API message id ("wamid.<base64>") keeping the prefix
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(messageID, "wamid."); ok {
		return "wamid." + maskString(rest, 6)
	}
	return maskString(messageID, 6)
}

// MaskContent hides message text entirely
func MaskContent(content string) string {
	if content == "" {
		return ""
	}
	return "[hidden]"
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		s, isString := v.(string)
		if !isString {
			masked[k] = v
			continue
		}

		switch k {
		case "phone", "mobile", "wa_id", "from", "to", "sender_address":
			masked[k] = MaskPhoneNumber(s)
		case "message_id", "wamid":
			masked[k] = MaskMessageID(s)
		case "message", "body", "text":
			masked[k] = MaskContent(s)
		default:
			masked[k] = v
		}
	}

	return masked
}
