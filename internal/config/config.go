package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/justyntemme/shelf/internal/logging"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Library    LibraryConfig   `json:"library"`
	Scan       ScanConfig      `json:"scan"`
	Thumbnails ThumbnailConfig `json:"thumbnails"`
	View       ViewConfig      `json:"view"`
	Logging    LoggingConfig   `json:"logging"`
	Metrics    MetricsConfig   `json:"metrics"`
}

// LibraryConfig locates the per-category roots
type LibraryConfig struct {
	BaseDir string `json:"baseDir"`
	Photos  string `json:"photos"` // relative to BaseDir unless absolute
	Files   string `json:"files"`
}

// ScanConfig holds catalog scanner settings
type ScanConfig struct {
	MaxDepth        int      `json:"maxDepth"` // 1 lists direct children only
	ShowDotfiles    bool     `json:"showDotfiles"`
	Workers         int      `json:"workers"` // 0 picks a default from the CPU count
	Timeout         Duration `json:"timeout"` // 0 disables
	PhotoExtensions []string `json:"photoExtensions"`
	FileExtensions  []string `json:"fileExtensions"` // empty allows everything
}

// ThumbnailConfig holds preview generation settings
type ThumbnailConfig struct {
	DirName  string `json:"dirName"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Quality  int    `json:"quality"`
	MemoSize int    `json:"memoSize"`
}

// ViewConfig holds projection defaults
type ViewConfig struct {
	WeekStart        string `json:"weekStart"` // "monday" | "sunday" | ...
	ScreenshotPrefix string `json:"screenshotPrefix"`
	PhotoOrder       string `json:"photoOrder"` // "key[:asc|desc]"
	FileOrder        string `json:"fileOrder"`
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, console
	Output string `json:"output"` // empty for stderr
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	Textfile string `json:"textfile"` // empty disables
}

// Duration is a time.Duration written as "30s" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Plain numbers are seconds.
		var secs float64
		if err := json.Unmarshal(b, &secs); err != nil {
			return fmt.Errorf("duration must be a string like \"30s\": %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Library: LibraryConfig{
			BaseDir: filepath.Join(home, "Documents", "Shelf"),
			Photos:  "photos",
			Files:   "files",
		},
		Scan: ScanConfig{
			MaxDepth:        1,
			ShowDotfiles:    false,
			Workers:         0,
			Timeout:         Duration(2 * time.Minute),
			PhotoExtensions: []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "tif", "tiff", "heic", "heif"},
			FileExtensions:  nil,
		},
		Thumbnails: ThumbnailConfig{
			DirName:  ".thumbnails",
			Width:    200,
			Height:   200,
			Quality:  85,
			MemoSize: 512,
		},
		View: ViewConfig{
			WeekStart:        "monday",
			ScreenshotPrefix: "Screenshot_",
			PhotoOrder:       "created:desc",
			FileOrder:        "modified:desc",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ConfigPath returns the config file path: ~/.config/shelf/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shelf", "config.json")
}

// Load reads the configuration from the default config file
func (m *Manager) Load() error {
	return m.LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from path.
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) LoadFrom(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.parseErr = nil

	// Ensure config directory exists
	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", configDir, err)
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		logging.Info("creating default config", logging.String("path", m.path))
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			return fmt.Errorf("save default config: %w", saveErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", m.path, err)
	}

	// Missing keys keep their defaults.
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err == nil {
		err = cfg.Validate()
		if err != nil {
			m.parseErr = err
		}
	} else {
		m.parseErr = err
	}
	if m.parseErr != nil {
		logging.Warn("config invalid, using defaults",
			logging.String("path", m.path),
			logging.Err(m.parseErr),
		)
		m.config = DefaultConfig()
		return nil // Don't return error - we're using defaults
	}

	logging.Debug("config loaded", logging.String("path", m.path))
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		m.path = ConfigPath()
	}
	return m.saveUnlocked()
}

// Path returns the file the configuration was loaded from.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetLibraryBase updates the base directory of the library roots
func (m *Manager) SetLibraryBase(dir string) error {
	m.mu.Lock()
	m.config.Library.BaseDir = dir
	m.mu.Unlock()
	return m.Save()
}

// SetShowDotfiles updates the show dotfiles setting
func (m *Manager) SetShowDotfiles(show bool) error {
	m.mu.Lock()
	m.config.Scan.ShowDotfiles = show
	m.mu.Unlock()
	return m.Save()
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if _, err := ParseWeekday(c.View.WeekStart); err != nil {
		return err
	}
	if c.Scan.MaxDepth < 0 {
		return fmt.Errorf("scan.maxDepth must not be negative")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	if c.Thumbnails.Width <= 0 || c.Thumbnails.Height <= 0 {
		return fmt.Errorf("thumbnail size must be positive")
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		return fmt.Errorf("thumbnails.quality must be between 1 and 100")
	}
	if c.Library.BaseDir == "" {
		return fmt.Errorf("library.baseDir is empty")
	}
	return nil
}

// PhotosRoot returns the absolute photos root.
func (c *Config) PhotosRoot() string { return c.Library.resolve(c.Library.Photos) }

// FilesRoot returns the absolute files root.
func (c *Config) FilesRoot() string { return c.Library.resolve(c.Library.Files) }

func (l LibraryConfig) resolve(dir string) string {
	if strings.HasPrefix(dir, "~"+string(filepath.Separator)) || dir == "~" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, dir[1:])
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(l.BaseDir, dir)
}

// Options converts the section for logging.Init.
func (l LoggingConfig) Options() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, OutputPath: l.Output}
}

// ParseWeekday accepts an English day name or its three-letter form.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown week start %q", s)
}

// GenerateConfig backs up the config at path and writes a fresh default.
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfig(path string) (backupPath string, err error) {
	if _, err := os.Stat(path); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(path), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}
