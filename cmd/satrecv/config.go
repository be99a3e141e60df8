package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	capturePath     string
	listenAddr      string
	outputDir       string
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	maxAssemblies   int
	maxOrphans      int
	ageOut          time.Duration
	asyncDecode     bool
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	capture := flag.String("capture", "", "Path to a recorded capture to replay; empty means live UDP")
	listen := flag.String("listen", ":7799", "UDP listen address for live capture")
	outputDir := flag.String("output-dir", "./downloads", "Directory completed files are written to")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	maxAssemblies := flag.Int("max-assemblies", 256, "Maximum concurrent in-flight file assemblies")
	maxOrphans := flag.Int("max-orphans", 1024, "Maximum buffered blocks awaiting their announcement")
	ageOut := flag.Duration("age-out", 0, "Discard assemblies idle longer than this (0 disables)")
	asyncDecode := flag.Bool("async-decode", false, "Run LDPC recovery on a worker goroutine instead of inline")
	mdnsEnable := flag.Bool("mdns-enable", false, "Advertise the metrics endpoint via mDNS")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default satrecv-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.capturePath = *capture
	cfg.listenAddr = *listen
	cfg.outputDir = *outputDir
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.maxAssemblies = *maxAssemblies
	cfg.maxOrphans = *maxOrphans
	cfg.ageOut = *ageOut
	cfg.asyncDecode = *asyncDecode
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if flag.NArg() > 0 && cfg.capturePath == "" {
		cfg.capturePath = flag.Arg(0)
	}

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.maxAssemblies <= 0 {
		return fmt.Errorf("max-assemblies must be > 0 (got %d)", c.maxAssemblies)
	}
	if c.maxOrphans <= 0 {
		return fmt.Errorf("max-orphans must be > 0 (got %d)", c.maxOrphans)
	}
	if c.ageOut < 0 {
		return fmt.Errorf("age-out must be >= 0")
	}
	if c.outputDir == "" {
		return errors.New("output-dir must not be empty")
	}
	return nil
}

// applyEnvOverrides maps SATRECV_* environment variables to config fields
// unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["capture"]; !ok {
		if v, ok := get("SATRECV_CAPTURE"); ok && v != "" {
			c.capturePath = v
		}
	}
	if _, ok := set["listen"]; !ok {
		if v, ok := get("SATRECV_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["output-dir"]; !ok {
		if v, ok := get("SATRECV_OUTPUT_DIR"); ok && v != "" {
			c.outputDir = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("SATRECV_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("SATRECV_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("SATRECV_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("SATRECV_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid SATRECV_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["max-assemblies"]; !ok {
		if v, ok := get("SATRECV_MAX_ASSEMBLIES"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.maxAssemblies = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid SATRECV_MAX_ASSEMBLIES: %w", err)
			}
		}
	}
	if _, ok := set["max-orphans"]; !ok {
		if v, ok := get("SATRECV_MAX_ORPHANS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.maxOrphans = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid SATRECV_MAX_ORPHANS: %w", err)
			}
		}
	}
	if _, ok := set["age-out"]; !ok {
		if v, ok := get("SATRECV_AGE_OUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.ageOut = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid SATRECV_AGE_OUT: %w", err)
			}
		}
	}
	if _, ok := set["async-decode"]; !ok {
		if v, ok := get("SATRECV_ASYNC_DECODE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.asyncDecode = true
			case "0", "false", "no", "off":
				c.asyncDecode = false
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("SATRECV_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("SATRECV_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
