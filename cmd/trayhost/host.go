package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// resourceHost locates bundled resources relative to the running executable.
type resourceHost struct {
	executable func() (string, error)
	override   string
	goos       string
}

func newResourceHost(override string) *resourceHost {
	return &resourceHost{
		executable: os.Executable,
		override:   override,
		goos:       runtime.GOOS,
	}
}

// ResourceDir returns the override when set. Otherwise it is the resources
// directory beside the executable, or Contents/Resources inside a macOS bundle.
func (h *resourceHost) ResourceDir() (string, error) {
	if h.override != "" {
		return filepath.Abs(h.override)
	}

	exe, err := h.executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	dir := filepath.Dir(exe)
	if h.goos == "darwin" && filepath.Base(dir) == "MacOS" {
		return filepath.Join(dir, "..", "Resources"), nil
	}
	return filepath.Join(dir, "resources"), nil
}
