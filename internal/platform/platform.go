// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package platform gathers static facts about the host process: package
// name, hardware model, manufacturer and a stable install identifier. All
// probes degrade to empty strings; callers decide what absence means.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Probe locations, variables so tests can point them at fixtures.
var (
	machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}
	dmiProductPath = "/sys/devices/virtual/dmi/id/product_name"
	dmiVendorPath  = "/sys/devices/virtual/dmi/id/sys_vendor"
	osReleasePath  = "/etc/os-release"
	containerFiles = []string{"/.dockerenv", "/run/.containerenv"}
)

// Facts is a static snapshot of the host. Collected once at init.
type Facts struct {
	OS            string
	Arch          string
	OSVersion     string
	HardwareModel string
	Manufacturer  string
	Hostname      string
	PackageName   string
	Emulator      bool
}

// Collect assembles the full snapshot. Never fails; unknown fields stay
// empty.
func Collect() Facts {
	hostname, _ := os.Hostname()
	return Facts{
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		OSVersion:     osVersion(),
		HardwareModel: readTrimmed(dmiProductPath),
		Manufacturer:  readTrimmed(dmiVendorPath),
		Hostname:      hostname,
		PackageName:   PackageName(),
		Emulator:      IsEmulator(),
	}
}

// PackageName is the installed-application analog for a Go process: the
// executable's base name, falling back to os.Args[0].
func PackageName() string {
	if exe, err := os.Executable(); err == nil && exe != "" {
		return filepath.Base(exe)
	}
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}

// InstallID returns a stable per-host identifier. It prefers the systemd
// machine id, then the dbus copy. Returns "" when neither exists; the
// identity layer substitutes its persisted fallback UUID in that case.
func InstallID() string {
	return installIDFromPaths(machineIDPaths)
}

func installIDFromPaths(paths []string) string {
	for _, p := range paths {
		if v := readTrimmed(p); v != "" {
			return v
		}
	}
	return ""
}

// IsEmulator reports whether the host looks virtualized or containerized.
// Metadata only: nothing in the engine branches on it.
func IsEmulator() bool {
	model := strings.ToLower(readTrimmed(dmiProductPath))
	for _, marker := range []string{"virtual", "vmware", "kvm", "qemu", "hvm", "bochs"} {
		if strings.Contains(model, marker) {
			return true
		}
	}
	for _, f := range containerFiles {
		if _, err := os.Stat(f); err == nil {
			return true
		}
	}
	if os.Getenv("container") != "" {
		return true
	}
	return false
}

func osVersion() string {
	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		return runtime.GOOS
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			if unq, err := strconv.Unquote(v); err == nil {
				return unq
			}
			return strings.Trim(v, `"`)
		}
	}
	return runtime.GOOS
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
