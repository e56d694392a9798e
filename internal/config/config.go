// Package config provides configuration management for the recorder.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"mousereplay/internal/schedule"
)

const appName = "mousereplay"

// Duration is a time.Duration stored as a Go duration string ("10s")
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Plain numbers are seconds, as older configs stored interval_seconds
		var secs float64
		if nerr := json.Unmarshal(data, &secs); nerr != nil {
			return fmt.Errorf("duration must be a string like \"10s\": %w", err)
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

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	// Hotkeys binds the global shortcuts
	Hotkeys HotkeyConfig `json:"hotkeys"`

	// Replay contains pacing and auto-replay settings
	Replay ReplayConfig `json:"replay"`

	// Schedule contains the trigger loop settings and entries
	Schedule ScheduleConfig `json:"schedule"`

	// API contains the local HTTP server settings
	API APIConfig `json:"api"`

	// General contains general application settings
	General GeneralConfig `json:"general"`
}

// HotkeyConfig holds one combination per action. Empty disables the action.
type HotkeyConfig struct {
	ToggleRecording string   `json:"toggle_recording"`
	ToggleAuto      string   `json:"toggle_auto_replay"`
	ReplayNow       string   `json:"replay_now"`
	StopReplay      string   `json:"stop_replay"`
	Debounce        Duration `json:"debounce"`
}

// ReplayConfig contains replay settings
type ReplayConfig struct {
	// RecordingFile is the JSON file recordings are saved to
	RecordingFile string `json:"recording_file"`

	// AutoInterval is the period used by the auto-replay toggle
	AutoInterval Duration `json:"auto_replay_interval"`

	// Poll bounds how long a stop request can take to be honoured
	Poll Duration `json:"poll"`

	// Speed scales playback; 1 is real time
	Speed float64 `json:"speed"`
}

// ScheduleConfig contains schedule trigger settings
type ScheduleConfig struct {
	TickInterval       Duration `json:"tick_interval"`
	ClockJumpTolerance Duration `json:"clock_jump_tolerance"`

	// Entries are schedule texts such as "at 14:30:00" or "every 10m"
	Entries []string `json:"entries"`
}

// APIConfig contains the local HTTP API settings
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`

	// Token is an optional bearer token for API requests
	Token string `json:"token,omitempty"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// StartOnBoot determines if app starts on login
	StartOnBoot bool `json:"start_on_boot"`

	// OpenWindow opens the control window on start
	OpenWindow bool `json:"open_window"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Hotkeys: HotkeyConfig{
			ToggleRecording: "F9",
			ToggleAuto:      "F10",
			ReplayNow:       "F11",
			StopReplay:      "Ctrl+Alt+Esc",
			Debounce:        Duration(500 * time.Millisecond),
		},
		Replay: ReplayConfig{
			RecordingFile: "mouse_log.json",
			AutoInterval:  Duration(10 * time.Second),
			Poll:          Duration(50 * time.Millisecond),
			Speed:         1,
		},
		Schedule: ScheduleConfig{
			TickInterval:       Duration(schedule.DefaultTick),
			ClockJumpTolerance: Duration(schedule.DefaultTolerance),
			Entries:            []string{},
		},
		API: APIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:18090",
		},
		General: GeneralConfig{
			StartOnBoot: false,
			OpenWindow:  false,
		},
	}
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.Replay.RecordingFile == "" {
		return fmt.Errorf("replay.recording_file must not be empty")
	}
	if c.Replay.AutoInterval.Std() < schedule.MinInterval {
		return fmt.Errorf("replay.auto_replay_interval must be at least %s, got %s", schedule.MinInterval, c.Replay.AutoInterval.Std())
	}
	if c.Replay.Poll.Std() <= 0 {
		return fmt.Errorf("replay.poll must be positive")
	}
	if c.Replay.Speed < 0 {
		return fmt.Errorf("replay.speed must not be negative")
	}
	if c.Schedule.TickInterval.Std() <= 0 {
		return fmt.Errorf("schedule.tick_interval must be positive")
	}
	if c.Schedule.ClockJumpTolerance.Std() <= c.Schedule.TickInterval.Std() {
		return fmt.Errorf("schedule.clock_jump_tolerance must exceed tick_interval")
	}
	for _, text := range c.Schedule.Entries {
		if _, err := schedule.Parse(text); err != nil {
			return fmt.Errorf("schedule.entries: %w", err)
		}
	}
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("api.addr must be set when the API is enabled")
	}
	return nil
}

// RecordingPath resolves the recording file against dir when it is relative
func (c *Config) RecordingPath(dir string) string {
	if filepath.IsAbs(c.Replay.RecordingFile) {
		return c.Replay.RecordingFile
	}
	return filepath.Join(dir, c.Replay.RecordingFile)
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	fs         afero.Fs
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager for the OS config directory
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(afero.NewOsFs(), configPath), nil
}

// NewManagerAt creates a manager for an explicit file
func NewManagerAt(fs afero.Fs, path string) *Manager {
	return &Manager{
		fs:         fs,
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Path returns the config file location
func (m *Manager) Path() string {
	return m.configPath
}

// Dir returns the directory holding the config file
func (m *Manager) Dir() string {
	return filepath.Dir(m.configPath)
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, appName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", appName)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk, then applies environment
// overrides and validates the result
func (m *Manager) Load() error {
	cfg, err := m.read()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	fn := m.onChanged
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (m *Manager) read() (*Config, error) {
	cfg := DefaultConfig()
	data, err := afero.ReadFile(m.fs, m.configPath)
	switch {
	case os.IsNotExist(err):
		// No config file, use defaults
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.configPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	if err := m.fs.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return afero.WriteFile(m.fs, m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.config
	c.Schedule.Entries = append([]string(nil), m.config.Schedule.Entries...)
	return &c
}

// Set validates and replaces the configuration
func (m *Manager) Set(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = config
	fn := m.onChanged
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// SetSchedules replaces the persisted schedule entries and saves
func (m *Manager) SetSchedules(entries []string) error {
	m.mu.Lock()
	m.config.Schedule.Entries = append([]string{}, entries...)
	m.mu.Unlock()
	return m.Save()
}

// SetAutoInterval records the auto-replay period and saves
func (m *Manager) SetAutoInterval(d time.Duration) error {
	m.mu.Lock()
	m.config.Replay.AutoInterval = Duration(d)
	m.mu.Unlock()
	return m.Save()
}

// SetStartOnBoot records the autostart preference and saves
func (m *Manager) SetStartOnBoot(enabled bool) error {
	m.mu.Lock()
	m.config.General.StartOnBoot = enabled
	m.mu.Unlock()
	return m.Save()
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// LoadDotEnv loads a .env file from the working directory into the
// process environment. Variables already set are kept.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Config: Failed to load .env: %v", err)
	}
}

// applyEnv overrides cfg from MOUSEREPLAY_* variables
func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *Duration) error {
		v, ok := os.LookupEnv(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = Duration(d)
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := os.LookupEnv(name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}

	str("MOUSEREPLAY_RECORDING_FILE", &cfg.Replay.RecordingFile)
	str("MOUSEREPLAY_API_ADDR", &cfg.API.Addr)
	str("MOUSEREPLAY_API_TOKEN", &cfg.API.Token)
	if err := boolean("MOUSEREPLAY_API_ENABLED", &cfg.API.Enabled); err != nil {
		return err
	}
	if err := dur("MOUSEREPLAY_AUTO_REPLAY_INTERVAL", &cfg.Replay.AutoInterval); err != nil {
		return err
	}
	if err := dur("MOUSEREPLAY_TICK_INTERVAL", &cfg.Schedule.TickInterval); err != nil {
		return err
	}
	return dur("MOUSEREPLAY_CLOCK_JUMP_TOLERANCE", &cfg.Schedule.ClockJumpTolerance)
}
