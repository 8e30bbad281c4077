// Package safebrowse validates and opens the local service UI in the system browser.
// Only plain http URLs on a loopback host are accepted, so a misconfigured
// address can never send the browser to a remote site or run a shell command.
package safebrowse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

const maxURLLength = 2048

// LocalURL returns the http URL for a host:port readiness address.
// Unspecified hosts (0.0.0.0, ::) are rewritten to 127.0.0.1.
func LocalURL(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/"}
	if err := ValidateLocalURL(u.String()); err != nil {
		return "", err
	}
	return u.String(), nil
}

// OpenLocal validates rawURL and opens it in the system browser.
func OpenLocal(ctx context.Context, rawURL string) error {
	if err := ValidateLocalURL(rawURL); err != nil {
		return err
	}
	return open(ctx, rawURL)
}

// ValidateLocalURL performs strict validation of a local service URL.
func ValidateLocalURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}

	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d", maxURLLength)
	}

	// Check every character
	for i, r := range rawURL {
		if r < 0x20 || r == 0x7F || r > 127 {
			return fmt.Errorf("invalid character at position %d", i)
		}
		if r == '%' {
			return errors.New("percent-encoding not allowed")
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" {
		return errors.New("must use http")
	}

	if u.User != nil {
		return errors.New("user info not allowed")
	}

	if u.Fragment != "" {
		return errors.New("fragments (#) not allowed")
	}

	if u.RawQuery != "" {
		return errors.New("query parameters not allowed")
	}

	if !isLoopback(u.Hostname()) {
		return fmt.Errorf("host %q is not a loopback address", u.Hostname())
	}

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("invalid port %q", p)
		}
	}

	if err := validateSafeChars(u.Path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	// Check for path traversal
	if strings.Contains(u.Path, "..") {
		return errors.New("path traversal (..) not allowed")
	}

	if strings.Contains(u.Path, "//") {
		return errors.New("empty path segments (//) not allowed")
	}

	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validateSafeChars checks that a string contains only alphanumeric, dash, underscore, dot, slash.
func validateSafeChars(s string) error {
	for _, r := range s {
		if !isSafe(r) {
			return fmt.Errorf("unsafe character %q", r)
		}
	}
	return nil
}

// isSafe returns true if r is an allowed character in a path.
func isSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.' || r == '/'
}

// open opens a URL in the system browser.
func open(ctx context.Context, rawURL string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "/usr/bin/open", "-u", rawURL)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32.exe", "url.dll,FileProtocolHandler", rawURL)
	default:
		xdgOpen, err := findXDGOpen()
		if err != nil {
			return err
		}
		cmd = exec.CommandContext(ctx, xdgOpen, rawURL)
	}

	return cmd.Start()
}

// findXDGOpen locates xdg-open on Unix systems.
func findXDGOpen() (string, error) {
	if path, err := exec.LookPath("xdg-open"); err == nil {
		return path, nil
	}

	for _, path := range []string{
		"/usr/local/bin/xdg-open",
		"/usr/bin/xdg-open",
		"/usr/pkg/bin/xdg-open",
		"/opt/local/bin/xdg-open",
	} {
		if _, err := exec.LookPath(path); err == nil {
			return path, nil
		}
	}

	return "", errors.New("xdg-open not found")
}
