package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const (
	settingsDBName = "settings.db"
	settingsRowKey = "current"
	schemaVersion  = "1"
)

// EncryptedSettingsStore implements domain.SettingsStore using a SQLCipher
// encrypted SQLite database. The daemon and CLI may open it concurrently.
type EncryptedSettingsStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedSettingsStore opens (or creates) the encrypted settings database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedSettingsStore(dataDir string, key []byte) (*EncryptedSettingsStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, settingsDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096&_busy_timeout=5000", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only surfaces on first read.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedSettingsStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *EncryptedSettingsStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// Load returns the stored settings, or nil when nothing was saved yet.
func (s *EncryptedSettingsStore) Load() (*domain.Settings, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, settingsRowKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings domain.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

// Save replaces the stored settings.
func (s *EncryptedSettingsStore) Save(settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
		settingsRowKey, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// UpdatedAt returns when the settings were last saved. Zero if never.
func (s *EncryptedSettingsStore) UpdatedAt() (time.Time, error) {
	var ts int64
	err := s.db.QueryRow(`SELECT updated_at FROM settings WHERE key = ?`, settingsRowKey).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

// SchemaVersion returns the schema version recorded in the meta table.
func (s *EncryptedSettingsStore) SchemaVersion() (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	return v, err
}

// Path returns the database file path.
func (s *EncryptedSettingsStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedSettingsStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenSettingsStore ensures the key exists in dataDir and opens the store with it.
func OpenSettingsStore(dataDir string) (*EncryptedSettingsStore, error) {
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare encryption key: %w", err)
	}
	return NewEncryptedSettingsStore(dataDir, key)
}

// Ensure EncryptedSettingsStore implements domain.SettingsStore.
var _ domain.SettingsStore = (*EncryptedSettingsStore)(nil)
