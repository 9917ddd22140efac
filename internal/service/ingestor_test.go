package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wainbox/internal/errors"
	"wainbox/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const amyValue = `{"messaging_product":"whatsapp","contacts":[{"wa_id":"1555","profile":{"name":"Amy"}}],"messages":[{"from":"1555","text":{"body":"hi"},"timestamp":"1700000000"}]}`

func newTestIngestor(store Store) *WebhookIngestor {
	return NewWebhookIngestor(store, quietLogger(), time.UTC, metrics.NewRegistry())
}

func change(value string) string {
	return fmt.Sprintf(`{"field":"messages","value":%s}`, value)
}

func textValue(waID, name, body string, ts int) string {
	return fmt.Sprintf(`{"contacts":[{"wa_id":%q,"profile":{"name":%q}}],"messages":[{"text":{"body":%q},"timestamp":"%d"}]}`,
		waID, name, body, ts)
}

func TestIngest_SingleTextMessage(t *testing.T) {
	store := newMemoryStore()
	ingestor := newTestIngestor(store)

	body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[` + change(amyValue) + `]}]}`
	n, err := ingestor.Ingest(context.Background(), []byte(body))

	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, "1555", records[0].SenderAddress)
	assert.Equal(t, "Amy", records[0].SenderName)
	assert.Equal(t, "hi", records[0].Body)
	assert.Equal(t, "2023-11-14 22:13:20", records[0].ReceivedAt)
	assert.Equal(t, amyValue, records[0].RawPayload)
}

func TestIngest_DefaultsLocalTime(t *testing.T) {
	store := newMemoryStore()
	ingestor := NewWebhookIngestor(store, quietLogger(), nil, nil)

	body := `{"entry":[{"changes":[` + change(amyValue) + `]}]}`
	_, err := ingestor.Ingest(context.Background(), []byte(body))
	require.NoError(t, err)

	expected := time.Unix(1700000000, 0).In(time.Local).Format("2006-01-02 15:04:05")
	assert.Equal(t, expected, store.all()[0].ReceivedAt)
}

func TestIngest_MultipleChangesInPayloadOrder(t *testing.T) {
	store := newMemoryStore()
	ingestor := newTestIngestor(store)

	// pre-existing record
	_, err := ingestor.Ingest(context.Background(),
		[]byte(`{"entry":[{"changes":[`+change(textValue("100", "Zed", "old", 1))+`]}]}`))
	require.NoError(t, err)
	existing := store.all()[0].ID

	body := `{"entry":[` +
		`{"changes":[` + change(textValue("1", "A", "first", 10)) + `,` + change(textValue("2", "B", "second", 20)) + `]},` +
		`{"changes":[` + change(textValue("3", "C", "third", 30)) + `]}` +
		`]}`
	n, err := ingestor.Ingest(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records := store.all()[1:]
	require.Len(t, records, 3)
	prev := existing
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, records[i].Body)
		assert.Greater(t, records[i].ID, prev)
		prev = records[i].ID
	}
}

func TestIngest_SkipsChangesWithoutContactsOrMessages(t *testing.T) {
	payloads := map[string]string{
		"no entry":          `{"object":"whatsapp_business_account"}`,
		"empty entry":       `{"entry":[]}`,
		"entry no changes":  `{"entry":[{"id":"1"}]}`,
		"change no value":   `{"entry":[{"changes":[{"field":"messages"}]}]}`,
		"null value":        `{"entry":[{"changes":[{"field":"messages","value":null}]}]}`,
		"status update":     `{"entry":[{"changes":[` + change(`{"statuses":[{"id":"wamid.1","status":"delivered"}]}`) + `]}]}`,
		"contacts only":     `{"entry":[{"changes":[` + change(`{"contacts":[{"wa_id":"1"}]}`) + `]}]}`,
		"messages only":     `{"entry":[{"changes":[` + change(`{"messages":[{"timestamp":"1"}]}`) + `]}]}`,
		"empty collections": `{"entry":[{"changes":[` + change(`{"contacts":[],"messages":[]}`) + `]}]}`,
	}

	for name, body := range payloads {
		t.Run(name, func(t *testing.T) {
			store := newMemoryStore()
			n, err := newTestIngestor(store).Ingest(context.Background(), []byte(body))

			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Empty(t, store.all())
		})
	}
}

func TestIngest_OptionalFieldsFallBack(t *testing.T) {
	store := newMemoryStore()
	value := `{"contacts":[{"wa_id":"1555"}],"messages":[{"type":"image","timestamp":1700000000}]}`

	n, err := newTestIngestor(store).Ingest(context.Background(),
		[]byte(`{"entry":[{"changes":[`+change(value)+`]}]}`))

	require.NoError(t, err)
	require.Equal(t, 1, n)
	record := store.all()[0]
	assert.Equal(t, "Unknown", record.SenderName)
	assert.Equal(t, "", record.Body)
	assert.Equal(t, "1555", record.SenderAddress)
	assert.Equal(t, "2023-11-14 22:13:20", record.ReceivedAt)
}

func TestIngest_ToleratesUnexpectedShapesInUnreadFields(t *testing.T) {
	store := newMemoryStore()
	value := `{"messaging_product":7,"metadata":"pnid","contacts":[{"wa_id":"1555","profile":{"name":"Amy"}}],` +
		`"messages":[{"from":1555,"id":{"x":1},"type":false,"text":{"body":"hi"},"timestamp":"1700000000"}]}`
	body := `{"object":["odd"],"entry":[{"id":12,"changes":[{"field":{},"value":` + value + `}]}]}`

	n, err := newTestIngestor(store).Ingest(context.Background(), []byte(body))

	require.NoError(t, err)
	require.Equal(t, 1, n)
	record := store.all()[0]
	assert.Equal(t, "1555", record.SenderAddress)
	assert.Equal(t, "hi", record.Body)
	assert.Equal(t, value, record.RawPayload)
}

func TestIngest_ClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"nil body", "", ErrMsgEmptyBody},
		{"whitespace", "  \n\t", ErrMsgEmptyBody},
		{"empty object", "{}", ErrMsgEmptyBody},
		{"null", "null", ErrMsgEmptyBody},
		{"not json", "hello", ErrMsgInvalidJSON},
		{"truncated", `{"entry":[`, ErrMsgInvalidJSON},
		{"array", `[1,2]`, ErrMsgInvalidJSON},
		{"string", `"x"`, ErrMsgInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			n, err := newTestIngestor(store).Ingest(context.Background(), []byte(tt.body))

			require.Error(t, err)
			assert.Zero(t, n)
			assert.Equal(t, 400, errors.HTTPStatusCode(err))
			assert.Equal(t, tt.message, errors.GetUserMessage(err))
			assert.Empty(t, store.all())
		})
	}
}

func TestIngest_MalformedEnvelopeIsServerError(t *testing.T) {
	bodies := []string{
		`{"entry":"not-a-list"}`,
		`{"entry":[{"changes":{"field":"messages"}}]}`,
		`{"entry":[{"changes":[{"value":"text"}]}]}`,
		`{"entry":[{"changes":[` + change(`{"contacts":{"wa_id":"1"},"messages":[]}`) + `]}]}`,
	}

	for _, body := range bodies {
		n, err := newTestIngestor(newMemoryStore()).Ingest(context.Background(), []byte(body))

		require.Error(t, err, body)
		assert.Zero(t, n)
		assert.Equal(t, errors.ErrCodeMalformedPayload, errors.GetCode(err), body)
		assert.Equal(t, 500, errors.HTTPStatusCode(err), body)
	}
}

func TestIngest_MalformedChangeAbortsRemainingChanges(t *testing.T) {
	store := newMemoryStore()
	missingWaID := `{"contacts":[{"profile":{"name":"NoID"}}],"messages":[{"text":{"body":"x"},"timestamp":"5"}]}`
	body := `{"entry":[{"changes":[` +
		change(textValue("1", "A", "kept", 1)) + `,` +
		change(missingWaID) + `,` +
		change(textValue("3", "C", "never", 3)) +
		`]}]}`

	n, err := newTestIngestor(store).Ingest(context.Background(), []byte(body))

	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 500, errors.HTTPStatusCode(err))

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Context[LogFieldChangeIndex])

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Body)
}

func TestIngest_BadTimestamp(t *testing.T) {
	for _, ts := range []string{``, `,"timestamp":null`, `,"timestamp":"soon"`, `,"timestamp":{}`} {
		value := `{"contacts":[{"wa_id":"1"}],"messages":[{"text":{"body":"x"}` + ts + `}]}`
		_, err := newTestIngestor(newMemoryStore()).Ingest(context.Background(),
			[]byte(`{"entry":[{"changes":[`+change(value)+`]}]}`))

		require.Error(t, err, ts)
		assert.Equal(t, errors.ErrCodeMalformedPayload, errors.GetCode(err), ts)
	}
}

func TestIngest_StorageFailure(t *testing.T) {
	store := newMemoryStore()
	store.failFrom = 2
	store.insertErr = fmt.Errorf("database is locked")

	body := `{"entry":[{"changes":[` + change(textValue("1", "A", "a", 1)) + `,` + change(textValue("2", "B", "b", 2)) + `]}]}`
	n, err := newTestIngestor(store).Ingest(context.Background(), []byte(body))

	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, errors.ErrCodeDatabaseQuery, errors.GetCode(err))
	assert.ErrorContains(t, err, "database is locked")
	assert.Len(t, store.all(), 1)
}

func TestVerify_EchoesChallenge(t *testing.T) {
	ingestor := newTestIngestor(newMemoryStore())

	for _, challenge := range []string{"1158201444", "", "  spaced  ", "ünïcødé&x=1", "line\nbreak"} {
		assert.Equal(t, challenge, ingestor.Verify(challenge))
	}
}
