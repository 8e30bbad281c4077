package sidecar

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Defaults for the API server sidecar.
const (
	DefaultReadinessAddress = "127.0.0.1:2620"
	DefaultPollAttempts     = 30
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultProbeTimeout     = time.Second
	DefaultProductionEnv    = "NODE_ENV=production"
	DefaultStdoutTag        = "[API]"
	DefaultStderrTag        = "[API ERR]"
)

// Mode selects whether the supervisor manages the server process.
type Mode int

const (
	// Production spawns and supervises the server.
	Production Mode = iota
	// Development assumes the server is started out-of-band by the developer.
	Development
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case Production:
		return "production"
	case Development:
		return "development"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name such as "dev" or "production".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production, nil
	case "development", "dev":
		return Development, nil
	default:
		return Production, fmt.Errorf("unknown mode %q", s)
	}
}

// Host is the capability the supervisor needs from the desktop runtime.
// It replaces any ambient GUI handle so the core can run headless.
type Host interface {
	ResourceDir() (string, error)
}

// ResolveEntry joins the host resource directory with rel.
// When the host cannot resolve its resource directory the current directory is used.
func ResolveEntry(host Host, rel string) string {
	dir := "."
	if host != nil {
		if d, err := host.ResourceDir(); err == nil && d != "" {
			dir = d
		}
	}
	return filepath.Join(dir, filepath.FromSlash(rel))
}

// Config describes one supervision run.
type Config struct {
	// Probe overrides the default TCP reachability probe of ReadinessAddress.
	Probe Probe

	EntryPath        string
	Interpreter      string
	Dir              string
	ProductionEnv    string
	ReadinessAddress string
	StdoutTag        string
	StderrTag        string
	Args             []string
	Mode             Mode
	PollAttempts     int
	// PollInterval is the sleep before every readiness attempt. Zero means
	// DefaultPollInterval; callers wanting back-to-back polls cannot express it.
	PollInterval time.Duration
	ProbeTimeout time.Duration
}

// DefaultConfig returns the configuration used by the desktop app for its API server.
func DefaultConfig() Config {
	return Config{
		Mode:             Production,
		ProductionEnv:    DefaultProductionEnv,
		ReadinessAddress: DefaultReadinessAddress,
		PollAttempts:     DefaultPollAttempts,
		PollInterval:     DefaultPollInterval,
		ProbeTimeout:     DefaultProbeTimeout,
		StdoutTag:        DefaultStdoutTag,
		StderrTag:        DefaultStderrTag,
	}
}

// withDefaults fills zero-valued fields. ProductionEnv is left alone so callers
// can opt out of setting any variable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadinessAddress == "" {
		c.ReadinessAddress = d.ReadinessAddress
	}
	if c.PollAttempts == 0 {
		c.PollAttempts = d.PollAttempts
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.StdoutTag == "" {
		c.StdoutTag = d.StdoutTag
	}
	if c.StderrTag == "" {
		c.StderrTag = d.StderrTag
	}
	return c
}

func (c Config) validate() error {
	if c.Mode != Production && c.Mode != Development {
		return fmt.Errorf("invalid mode %d", int(c.Mode))
	}
	if c.PollAttempts < 1 {
		return fmt.Errorf("poll attempts must be at least 1, got %d", c.PollAttempts)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %v", c.PollInterval)
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("probe timeout must not be negative, got %v", c.ProbeTimeout)
	}
	if c.ProductionEnv != "" && !strings.Contains(c.ProductionEnv, "=") {
		return fmt.Errorf("production env %q must be KEY=VALUE", c.ProductionEnv)
	}
	if c.Mode == Development {
		return nil
	}
	if c.EntryPath == "" {
		return errors.New("entry path is required in production mode")
	}
	if c.Probe == nil {
		if _, _, err := net.SplitHostPort(c.ReadinessAddress); err != nil {
			return fmt.Errorf("invalid readiness address %q: %w", c.ReadinessAddress, err)
		}
	}
	return nil
}
