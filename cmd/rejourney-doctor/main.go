// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// rejourney-doctor diagnoses SDK installations from the command line.
//
// Usage:
//
//	rejourney-doctor profile [-data-dir DIR] [-backend file|badger|memory] [-json]
//	rejourney-doctor validate -f config.yaml
//	rejourney-doctor reset [-data-dir DIR] [-backend file|badger|memory] -yes
//
// Exit codes:
//   - 0: success
//   - 1: command failed (identity, storage or config error)
//   - 2: usage error
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rejourney/rejourney-go/internal/config"
	"github.com/rejourney/rejourney-go/internal/identity"
	"github.com/rejourney/rejourney-go/internal/platform"
	"github.com/rejourney/rejourney-go/internal/storage"
	"github.com/rejourney/rejourney-go/internal/version"
)

const establishTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		printUsage(os.Stderr)
		if len(os.Args) < 2 {
			os.Exit(2)
		}
		os.Exit(0)
	}

	switch os.Args[1] {
	case "-version", "--version", "version":
		fmt.Println(version.Version)
		os.Exit(0)
	case "profile":
		os.Exit(runProfile(os.Args[2:], os.Stdout, os.Stderr))
	case "validate":
		os.Exit(runValidate(os.Args[2:], os.Stdout, os.Stderr))
	case "reset":
		os.Exit(runReset(os.Args[2:], os.Stdout, os.Stderr))
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rejourney-doctor profile [-data-dir DIR] [-backend file|badger|memory] [-json]")
	fmt.Fprintln(w, "  rejourney-doctor validate -f config.yaml")
	fmt.Fprintln(w, "  rejourney-doctor reset [-data-dir DIR] [-backend file|badger|memory] -yes")
}

// profileReport is the JSON rendition of the diagnosis.
type profileReport struct {
	Fingerprint string           `json:"fingerprint"`
	StatePath   string           `json:"statePath"`
	Backend     string           `json:"backend"`
	Facts       factsReport      `json:"facts"`
	Profile     identity.Profile `json:"profile"`
}

type factsReport struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	OSVersion     string `json:"osVersion"`
	HardwareModel string `json:"hardwareModel,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	Hostname      string `json:"hostname,omitempty"`
	PackageName   string `json:"packageName,omitempty"`
	Emulator      bool   `json:"emulator"`
}

func runProfile(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rejourney-doctor profile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := config.FromEnv()
	var (
		dataDir string
		backend string
		asJSON  bool
	)
	fs.StringVar(&dataDir, "data-dir", cfg.DataDir, "identity state directory")
	fs.StringVar(&backend, "backend", cfg.StoreBackend, "storage backend: file, badger or memory")
	fs.BoolVar(&asJSON, "json", false, "emit the report as JSON")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := statePath(dataDir, backend)
	store, err := storage.Open(backend, path)
	if err != nil {
		fmt.Fprintf(stderr, "Storage error (%s at %s):\n  %v\n", backend, path, err)
		return 1
	}
	defer func() { _ = store.Close() }()

	ids := identity.NewManager(store)
	ctx, cancel := context.WithTimeout(context.Background(), establishTimeout)
	defer cancel()

	fingerprint, err := ids.Establish(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Identity error:\n  %v\n", err)
		return 1
	}

	facts := ids.Facts()
	profile := ids.GatherProfile(identity.Overrides{})

	if asJSON {
		report := profileReport{
			Fingerprint: fingerprint,
			StatePath:   path,
			Backend:     backend,
			Facts: factsReport{
				OS:            facts.OS,
				Arch:          facts.Arch,
				OSVersion:     facts.OSVersion,
				HardwareModel: facts.HardwareModel,
				Manufacturer:  facts.Manufacturer,
				Hostname:      facts.Hostname,
				PackageName:   facts.PackageName,
				Emulator:      facts.Emulator,
			},
			Profile: profile,
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	printProfileText(stdout, fingerprint, path, backend, facts, profile)
	return 0
}

func printProfileText(w io.Writer, fingerprint, path, backend string, facts platform.Facts, profile identity.Profile) {
	fmt.Fprintln(w, "Device identity")
	fmt.Fprintf(w, "  fingerprint:  %s\n", fingerprint)
	fmt.Fprintf(w, "  state:        %s (%s)\n", path, backend)
	fmt.Fprintln(w, "Platform")
	fmt.Fprintf(w, "  os:           %s/%s\n", facts.OS, facts.Arch)
	fmt.Fprintf(w, "  osVersion:    %s\n", facts.OSVersion)
	if facts.HardwareModel != "" {
		fmt.Fprintf(w, "  model:        %s\n", facts.HardwareModel)
	}
	if facts.Manufacturer != "" {
		fmt.Fprintf(w, "  manufacturer: %s\n", facts.Manufacturer)
	}
	if facts.PackageName != "" {
		fmt.Fprintf(w, "  package:      %s\n", facts.PackageName)
	}
	fmt.Fprintf(w, "  emulator:     %v\n", facts.Emulator)
	fmt.Fprintln(w, "Profile")
	fmt.Fprintf(w, "  sdkVersion:   %s\n", profile.SDKVersion)
	if profile.Locale != "" {
		fmt.Fprintf(w, "  locale:       %s\n", profile.Locale)
	}
	if profile.ScreenWidth > 0 || profile.ScreenHeight > 0 {
		fmt.Fprintf(w, "  screen:       %dx%d @%.1fx\n", profile.ScreenWidth, profile.ScreenHeight, profile.ScreenScale)
	}
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rejourney-doctor validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  rejourney-doctor validate -f config.yaml")
		return 2
	}

	if _, err := config.LoadFile(configPath); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "✓ %s is valid\n", configPath)
	return 0
}

// runReset wipes the persisted identity so the next SDK start derives a
// fresh fingerprint. Destructive, so it demands an explicit -yes.
func runReset(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rejourney-doctor reset", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := config.FromEnv()
	var (
		dataDir string
		backend string
		yes     bool
	)
	fs.StringVar(&dataDir, "data-dir", cfg.DataDir, "identity state directory")
	fs.StringVar(&backend, "backend", cfg.StoreBackend, "storage backend: file, badger or memory")
	fs.BoolVar(&yes, "yes", false, "confirm the reset")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !yes {
		fmt.Fprintln(stderr, "Error: reset deletes the persisted device identity; pass -yes to confirm")
		return 2
	}

	path := statePath(dataDir, backend)
	store, err := storage.Open(backend, path)
	if err != nil {
		fmt.Fprintf(stderr, "Storage error (%s at %s):\n  %v\n", backend, path, err)
		return 1
	}
	defer func() { _ = store.Close() }()

	if err := identity.NewManager(store).Reset(); err != nil {
		fmt.Fprintf(stderr, "Reset failed:\n  %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "✓ device identity cleared (%s)\n", path)
	return 0
}

// statePath mirrors the SDK's layout: badger uses a directory, the file
// backend a single JSON document.
func statePath(dataDir, backend string) string {
	if backend == "badger" {
		return filepath.Join(dataDir, "identity.badger")
	}
	return filepath.Join(dataDir, "identity.json")
}
