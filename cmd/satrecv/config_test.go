package main

import "testing"

func baseConfig() *appConfig {
	return &appConfig{
		outputDir:     "./downloads",
		logFormat:     "text",
		logLevel:      "info",
		maxAssemblies: 256,
		maxOrphans:    1024,
	}
}

func TestConfigValidateOK(t *testing.T) {
	if err := baseConfig().validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badMaxAssemblies", func(c *appConfig) { c.maxAssemblies = 0 }},
		{"badMaxOrphans", func(c *appConfig) { c.maxOrphans = 0 }},
		{"negativeAgeOut", func(c *appConfig) { c.ageOut = -1 }},
		{"emptyOutputDir", func(c *appConfig) { c.outputDir = "" }},
	}
	for _, tc := range tests {
		c := baseConfig()
		tc.mod(c)
		if err := c.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
