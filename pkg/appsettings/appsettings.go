// Package appsettings loads and saves the host's persisted settings.
package appsettings

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Duration is a time.Duration stored as a string such as "500ms".
type Duration time.Duration

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %s", b)
	}
	*d = Duration(n)
	return nil
}

// NoInterpreter as the interpreter runs the entry point as an executable.
const NoInterpreter = "none"

// Settings are the user-adjustable knobs for the API server sidecar.
// Zero fields mean "use the default".
type Settings struct {
	ReadinessAddress string   `json:"readiness_address,omitempty"`
	Interpreter      string   `json:"interpreter,omitempty"`
	Entry            string   `json:"entry,omitempty"`
	ResourceDir      string   `json:"resource_dir,omitempty"`
	PollInterval     Duration `json:"poll_interval,omitempty"`
	ShutdownGrace    Duration `json:"shutdown_grace,omitempty"`
	PollAttempts     int      `json:"poll_attempts,omitempty"`
	KeepServer       bool     `json:"keep_server,omitempty"`
}

// Defaults returns the settings the desktop app ships with.
func Defaults() Settings {
	return Settings{
		ReadinessAddress: "127.0.0.1:2620",
		Interpreter:      "node",
		Entry:            "api-server/index.js",
		PollAttempts:     30,
		PollInterval:     Duration(500 * time.Millisecond),
		ShutdownGrace:    Duration(3 * time.Second),
	}
}

// WithDefaults fills zero fields from Defaults.
func (s Settings) WithDefaults() Settings {
	d := Defaults()
	if s.ReadinessAddress == "" {
		s.ReadinessAddress = d.ReadinessAddress
	}
	if s.Interpreter == "" {
		s.Interpreter = d.Interpreter
	}
	if s.Entry == "" {
		s.Entry = d.Entry
	}
	if s.PollAttempts == 0 {
		s.PollAttempts = d.PollAttempts
	}
	if s.PollInterval == 0 {
		s.PollInterval = d.PollInterval
	}
	if s.ShutdownGrace == 0 {
		s.ShutdownGrace = d.ShutdownGrace
	}
	return s
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if _, _, err := net.SplitHostPort(s.ReadinessAddress); err != nil {
		return fmt.Errorf("readiness_address %q: %w", s.ReadinessAddress, err)
	}
	if s.PollAttempts < 1 {
		return fmt.Errorf("poll_attempts must be at least 1, got %d", s.PollAttempts)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", time.Duration(s.PollInterval))
	}
	if s.ShutdownGrace < 0 {
		return errors.New("shutdown_grace must not be negative")
	}
	if s.Entry == "" {
		return errors.New("entry must not be empty")
	}
	return nil
}

// InterpreterCommand returns the program that runs Entry, or "" when Entry
// is executed directly.
func (s Settings) InterpreterCommand() string {
	if s.Interpreter == NoInterpreter {
		return ""
	}
	return s.Interpreter
}

// Manager handles loading and saving settings to disk.
type Manager struct {
	appName string
	dir     string
}

// NewManager creates a settings manager under the user config directory.
func NewManager(appName string) *Manager {
	return &Manager{appName: appName}
}

// NewManagerAt creates a settings manager rooted at dir instead of the user config directory.
func NewManagerAt(dir, appName string) *Manager {
	return &Manager{appName: appName, dir: dir}
}

// Path returns the path to the settings file.
func (m *Manager) Path() (string, error) {
	base := m.dir
	if base == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("get user config dir: %w", err)
		}
		base = configDir
	}
	return filepath.Join(base, m.appName, "settings.json"), nil
}

// Load reads the settings file and fills unset fields with defaults.
// A missing file yields Defaults and found=false, not an error.
func (m *Manager) Load() (s Settings, found bool, err error) {
	path, err := m.Path()
	if err != nil {
		return Defaults(), false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), false, nil
		}
		return Defaults(), false, fmt.Errorf("read settings file: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), false, fmt.Errorf("parse settings: %w", err)
	}
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return Defaults(), true, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, true, nil
}

// Save writes settings to disk with owner-only permissions.
func (m *Manager) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid settings: %w", err)
	}
	path, err := m.Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
