package database

const (
	insertIncomingMessageQuery = `
		INSERT INTO whatsapp_incoming (name, mobile, message, created_at, raw_json)
		VALUES (?, ?, ?, ?, ?)
	`

	listRecentIncomingMessagesQuery = `
		SELECT id, name, mobile, message, created_at, raw_json
		FROM whatsapp_incoming
		ORDER BY id DESC
		LIMIT ?
	`

	findSenderByIDQuery = `
		SELECT mobile, name
		FROM whatsapp_incoming
		WHERE id = ?
	`
)
