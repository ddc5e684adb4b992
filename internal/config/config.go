package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for catalog.
type Config struct {
	DeviceID   string           `toml:"device_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Database   DatabaseConfig   `toml:"database"`
	Store      StoreConfig      `toml:"store"`
	Remote     RemoteConfig     `toml:"remote"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// DatabaseConfig represents configuration for the catalog database, which
// holds the operation history and, for store type "sqlite", the snapshot.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StoreConfig selects where the product snapshot is persisted.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"`          // "sqlite", "filesystem" or "memory"
	Dir  string `toml:"dir,omitempty"` // only used for type=filesystem
}

// RemoteConfig selects the remote product collection.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "file", "s3", "dynamodb" or "memory"

	// File-specific fields (only used when Type == "file")
	FilePath string `toml:"file_path,omitempty"`

	// Shared AWS fields (used when Type == "s3" or "dynamodb")
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"` // e.g. a local DynamoDB or MinIO
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Key    string `toml:"s3_key,omitempty"`

	// DynamoDB-specific fields (only used when Type == "dynamodb")
	DynamoDBTable string `toml:"dynamodb_table,omitempty"`
	DynamoDBIndex string `toml:"dynamodb_index,omitempty"` // GSI over creation time
}

// EncryptionConfig holds paths to the age key pair used to seal the snapshot.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a new Config with the provided values and defaults
// rooted at baseDir: SQLite database and store, file remote, no encryption.
func NewConfig(deviceID, baseDir string) *Config {
	return &Config{
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Store: StoreConfig{Type: "sqlite"},
		Remote: RemoteConfig{
			Type:     "file",
			FilePath: filepath.Join(baseDir, "products.json"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "catalog.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "catalog.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
