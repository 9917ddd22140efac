package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"+1234567890", "+******7890"},
		{"15551234567", "*******4567"},
		{"1555", "****"},
		{"+1555", "+****"},
		{"+12345", "+*2345"},
		{"+", "+"},
		{"1", "*"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MaskPhoneNumber(tt.input), "MaskPhoneNumber(%q)", tt.input)
	}
}

func TestMaskMessageID(t *testing.T) {
	assert.Equal(t, "wamid.*****Y0NzI", MaskMessageID("wamid.HBgLMY0NzI"))
	assert.Equal(t, "****abcdef", MaskMessageID("1234abcdef"))
	assert.Equal(t, "***", MaskMessageID("abc"))
	assert.Equal(t, "", MaskMessageID(""))
}

func TestMaskContent(t *testing.T) {
	assert.Equal(t, "[hidden]", MaskContent("my order never arrived"))
	assert.Equal(t, "", MaskContent(""))
}

func TestMaskSensitiveFields(t *testing.T) {
	fields := map[string]interface{}{
		"mobile":     "15551234567",
		"to":         "+15551234567",
		"message":    "hello",
		"message_id": "wamid.ABCDEFGHIJ",
		"record_id":  int64(7),
		"template":   "complaint_received",
		"wa_id":      42,
	}

	masked := MaskSensitiveFields(fields)

	assert.Equal(t, "*******4567", masked["mobile"])
	assert.Equal(t, "+*******4567", masked["to"])
	assert.Equal(t, "[hidden]", masked["message"])
	assert.Equal(t, "wamid.****EFGHIJ", masked["message_id"])
	assert.Equal(t, int64(7), masked["record_id"])
	assert.Equal(t, "complaint_received", masked["template"])
	assert.Equal(t, 42, masked["wa_id"], "non-string values pass through")

	assert.Equal(t, "15551234567", fields["mobile"], "input map is not modified")
	assert.Nil(t, MaskSensitiveFields(nil))
}
