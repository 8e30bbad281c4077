//go:build dev

package main

import "github.com/codeGROOVE-dev/trayhost/pkg/sidecar"

// Development builds expect the API server to be started by hand.
const defaultMode = sidecar.Development
