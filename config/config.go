package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "dropsort"
	// DataDirEnv overrides the resolved data directory when set.
	DataDirEnv = "DROPSORT_DATA_DIR"
	// DefaultListeningPort is the HTTP port used in fixed mode without an override.
	DefaultListeningPort = 5001
	// PortModeAutomatic picks an available port at launch.
	PortModeAutomatic = "automatic"
	// PortModeFixed uses the configured listening port value.
	PortModeFixed = "fixed"
	// DefaultMaxAttempts bounds transfer creation retries after a token collision.
	DefaultMaxAttempts = 3
	// DefaultQRSize is the rendered link artifact edge length in pixels.
	DefaultQRSize = 256
	// ScannerNone disables file scanning.
	ScannerNone = "none"
	// ScannerRandom enables the randomized placeholder scanner.
	ScannerRandom = "random"
	// configFileName is the persisted configuration file.
	configFileName = "config.json"
	// uploadsDirName holds received files, transfers and archives.
	uploadsDirName = "uploads"
)

// AppConfig contains persistent local settings.
type AppConfig struct {
	InstanceID    string `json:"instance_id"`
	InstanceName  string `json:"instance_name"`
	PortMode      string `json:"port_mode"`
	ListeningPort int    `json:"listening_port"`
	UploadDir     string `json:"upload_dir"`
	PublicBaseURL string `json:"public_base_url"`
	MaxAttempts   int    `json:"max_attempts"`
	Scanner       string `json:"scanner"`
	QRSize        int    `json:"qr_size"`
}

// ResolveDataDir returns the OS-aware app data directory.
//
// If DROPSORT_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv(DataDirEnv); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// ConfigPath returns the full path to config.json for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// EnsureDataDirectories creates the app data directory layout if needed.
func EnsureDataDirectories(dataDir string) error {
	dirs := []string{
		dataDir,
		filepath.Join(dataDir, uploadsDirName),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	return nil
}

// Load reads and unmarshals config.json from disk.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save marshals and writes config.json to disk.
func Save(path string, cfg *AppConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadOrCreate ensures directories and config exist, then returns both.
func LoadOrCreate() (*AppConfig, string, error) {
	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	return LoadOrCreateIn(dataDir)
}

// LoadOrCreateIn is LoadOrCreate for an explicit data directory.
func LoadOrCreateIn(dataDir string) (*AppConfig, string, error) {
	if err := EnsureDataDirectories(dataDir); err != nil {
		return nil, "", err
	}

	cfgPath := ConfigPath(dataDir)
	cfg, err := Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}

		cfg = defaultConfig(dataDir)
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}

		return cfg, cfgPath, nil
	}

	if normalizeDefaults(cfg, dataDir) {
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
		return nil, "", fmt.Errorf("create upload directory %q: %w", cfg.UploadDir, err)
	}

	return cfg, cfgPath, nil
}

func defaultConfig(dataDir string) *AppConfig {
	return &AppConfig{
		InstanceID:    uuid.NewString(),
		InstanceName:  defaultInstanceName(),
		PortMode:      PortModeAutomatic,
		ListeningPort: 0,
		UploadDir:     filepath.Join(dataDir, uploadsDirName),
		MaxAttempts:   DefaultMaxAttempts,
		Scanner:       ScannerNone,
		QRSize:        DefaultQRSize,
	}
}

func defaultInstanceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "dropsort"
}

func normalizeDefaults(cfg *AppConfig, dataDir string) bool {
	updated := false

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
		updated = true
	}

	if cfg.InstanceName == "" {
		cfg.InstanceName = defaultInstanceName()
		updated = true
	}

	mode := normalizePortMode(cfg.PortMode)
	if mode == "" {
		if cfg.ListeningPort > 0 {
			mode = PortModeFixed
		} else {
			mode = PortModeAutomatic
		}
	}
	if cfg.PortMode != mode {
		cfg.PortMode = mode
		updated = true
	}

	if cfg.PortMode == PortModeFixed && cfg.ListeningPort == 0 {
		cfg.ListeningPort = DefaultListeningPort
		updated = true
	}
	if cfg.PortMode == PortModeAutomatic && cfg.ListeningPort < 0 {
		cfg.ListeningPort = 0
		updated = true
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(dataDir, uploadsDirName)
		updated = true
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
		updated = true
	}

	scanner := normalizeScanner(cfg.Scanner)
	if cfg.Scanner != scanner {
		cfg.Scanner = scanner
		updated = true
	}

	if cfg.QRSize <= 0 {
		cfg.QRSize = DefaultQRSize
		updated = true
	}

	return updated
}

func normalizePortMode(mode string) string {
	switch mode {
	case PortModeAutomatic:
		return PortModeAutomatic
	case PortModeFixed:
		return PortModeFixed
	default:
		return ""
	}
}

func normalizeScanner(mode string) string {
	switch mode {
	case ScannerRandom:
		return ScannerRandom
	default:
		return ScannerNone
	}
}

// ListenAddress returns the address the download server binds to.
func (c *AppConfig) ListenAddress() string {
	if c.PortMode == PortModeFixed && c.ListeningPort > 0 {
		return fmt.Sprintf(":%d", c.ListeningPort)
	}
	return ":0"
}
