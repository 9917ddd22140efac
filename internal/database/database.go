package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"wainbox/internal/constants"
	"wainbox/internal/migrations"
	"wainbox/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db        *sqlx.DB
	encryptor *encryptor
}

// New opens the SQLite database at dbPath. The schema is applied separately by Initialize.
func New(dbPath string, cfg *models.DatabaseConfig, enc EncryptionConfig) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}
	if cfg == nil {
		cfg = &models.DatabaseConfig{}
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	encryptor, err := NewEncryptor(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	db, err := sqlx.Open("sqlite3", dsn(dbPath, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConnections
	if maxOpen <= 0 {
		maxOpen = constants.DefaultMaxOpenConnections
	}
	maxIdle := cfg.MaxIdleConnections
	if maxIdle <= 0 {
		maxIdle = constants.DefaultMaxIdleConnections
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func dsn(dbPath string, cfg *models.DatabaseConfig) string {
	busyTimeout := cfg.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = constants.DefaultDatabaseBusyTimeoutMs
	}
	// immediate transactions take the write lock up front, so concurrent
	// Initialize calls queue on the busy timeout instead of failing
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate", dbPath, busyTimeout)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Initialize creates the schema if it does not exist yet. It is safe to call
// repeatedly and from several goroutines; all statements run in one
// transaction. Lock contention beyond the busy timeout is returned as is.
func (d *Database) Initialize(ctx context.Context) error {
	all, err := migrations.All()
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range all {
		if _, err := tx.ExecContext(ctx, m.Statement); err != nil {
			return fmt.Errorf("failed to apply %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// InsertIncomingMessage appends one record and returns the identifier assigned by SQLite.
// msg.ID is set to the same value.
func (d *Database) InsertIncomingMessage(ctx context.Context, msg *models.IncomingMessage) (int64, error) {
	if msg == nil {
		return 0, fmt.Errorf("incoming message is nil")
	}

	encryptedAddress, err := d.encryptor.Encrypt(msg.SenderAddress)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt sender address: %w", err)
	}
	encryptedBody, err := d.encryptor.Encrypt(msg.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt message body: %w", err)
	}
	encryptedPayload, err := d.encryptor.Encrypt(msg.RawPayload)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt raw payload: %w", err)
	}

	result, err := d.db.ExecContext(ctx, insertIncomingMessageQuery,
		msg.SenderName,
		encryptedAddress,
		encryptedBody,
		msg.ReceivedAt,
		encryptedPayload,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert incoming message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}

	msg.ID = id
	return id, nil
}

// ListRecentIncomingMessages returns at most limit records, newest first
func (d *Database) ListRecentIncomingMessages(ctx context.Context, limit int) ([]*models.IncomingMessage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit: %d", limit)
	}

	messages := make([]*models.IncomingMessage, 0, limit)
	if err := d.db.SelectContext(ctx, &messages, listRecentIncomingMessagesQuery, limit); err != nil {
		return nil, fmt.Errorf("failed to list incoming messages: %w", err)
	}

	for _, msg := range messages {
		if err := d.decryptMessage(msg); err != nil {
			return nil, fmt.Errorf("failed to decrypt message %d: %w", msg.ID, err)
		}
	}

	return messages, nil
}

// FindSenderByID returns the sender of record id, or nil when no such record exists
func (d *Database) FindSenderByID(ctx context.Context, id int64) (*models.Sender, error) {
	var sender models.Sender
	err := d.db.GetContext(ctx, &sender, findSenderByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sender: %w", err)
	}

	sender.Address, err = d.encryptor.Decrypt(sender.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt sender address: %w", err)
	}

	return &sender, nil
}

func (d *Database) decryptMessage(msg *models.IncomingMessage) error {
	var err error
	if msg.SenderAddress, err = d.encryptor.Decrypt(msg.SenderAddress); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if msg.Body, err = d.encryptor.Decrypt(msg.Body); err != nil {
		return fmt.Errorf("message body: %w", err)
	}
	if msg.RawPayload, err = d.encryptor.Decrypt(msg.RawPayload); err != nil {
		return fmt.Errorf("raw payload: %w", err)
	}
	return nil
}
