package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := &appConfig{
		capturePath:     "",
		listenAddr:      ":7799",
		outputDir:       "./downloads",
		logFormat:       "text",
		logLevel:        "info",
		metricsAddr:     "",
		logMetricsEvery: 0,
		maxAssemblies:   256,
		maxOrphans:      1024,
		ageOut:          0,
		asyncDecode:     false,
		mdnsEnable:      false,
		mdnsName:        "",
	}

	os.Setenv("SATRECV_OUTPUT_DIR", "/tmp/sat-out")
	os.Setenv("SATRECV_MDNS_ENABLE", "true")
	os.Setenv("SATRECV_AGE_OUT", "90s")
	os.Setenv("SATRECV_LOG_METRICS_INTERVAL", "5s")
	os.Setenv("SATRECV_MAX_ORPHANS", "2048")
	t.Cleanup(func() {
		os.Unsetenv("SATRECV_OUTPUT_DIR")
		os.Unsetenv("SATRECV_MDNS_ENABLE")
		os.Unsetenv("SATRECV_AGE_OUT")
		os.Unsetenv("SATRECV_LOG_METRICS_INTERVAL")
		os.Unsetenv("SATRECV_MAX_ORPHANS")
	})

	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.outputDir != "/tmp/sat-out" {
		t.Fatalf("expected outputDir override, got %q", base.outputDir)
	}
	if !base.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if base.ageOut != 90*time.Second {
		t.Fatalf("expected ageOut 90s got %v", base.ageOut)
	}
	if base.logMetricsEvery != 5*time.Second {
		t.Fatalf("expected logMetricsEvery 5s got %v", base.logMetricsEvery)
	}
	if base.maxOrphans != 2048 {
		t.Fatalf("expected maxOrphans 2048 got %d", base.maxOrphans)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{maxAssemblies: 256}
	os.Setenv("SATRECV_MAX_ASSEMBLIES", "4096")
	t.Cleanup(func() { os.Unsetenv("SATRECV_MAX_ASSEMBLIES") })
	// Simulate the user passing -max-assemblies explicitly (env should be ignored)
	if err := applyEnvOverrides(base, map[string]struct{}{"max-assemblies": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.maxAssemblies != 256 {
		t.Fatalf("expected maxAssemblies unchanged 256, got %d", base.maxAssemblies)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	base := &appConfig{maxOrphans: 1024}
	os.Setenv("SATRECV_MAX_ORPHANS", "notint")
	t.Cleanup(func() { os.Unsetenv("SATRECV_MAX_ORPHANS") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad integer")
	}
}

func TestApplyEnvOverrides_BadDuration(t *testing.T) {
	base := &appConfig{ageOut: 0}
	os.Setenv("SATRECV_AGE_OUT", "not-a-duration")
	t.Cleanup(func() { os.Unsetenv("SATRECV_AGE_OUT") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}
