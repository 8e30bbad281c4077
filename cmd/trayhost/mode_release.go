//go:build !dev

package main

import "github.com/codeGROOVE-dev/trayhost/pkg/sidecar"

// defaultMode is the supervision mode when -dev is not given.
const defaultMode = sidecar.Production
