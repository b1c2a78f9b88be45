package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/serial"
)

type appConfig struct {
	serialDev       string
	baud            int
	serialReadTO    time.Duration
	listenAddr      string
	logFormat       string
	logLevel        string
	metricsAddr     string
	hubBuffer       int
	hubPolicy       string
	logMetricsEvery time.Duration
	maxClients      int
	clientReadTO    time.Duration
	callTimeout     time.Duration
	workers         int
	queue           int
	commandPrefix   bool
	initCommands    string
	mdnsEnable      bool
	mdnsName        string
	configFile      string
}

func parseFlags() (*appConfig, bool) {
	cfg, showVersion, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, showVersion
	}
	return cfg, showVersion
}

// parseArgs resolves the configuration: flags win over NEXTION_BRIDGE_* env
// vars, env wins over the optional TOML file, the file wins over defaults.
func parseArgs(args []string) (*appConfig, bool, error) {
	cfg := &appConfig{}
	fs := flag.NewFlagSet("nextion-bridge", flag.ContinueOnError)
	fs.StringVar(&cfg.serialDev, "serial", "/dev/ttyUSB0", "Serial device path")
	fs.IntVar(&cfg.baud, "baud", serial.DefaultBaud, "Serial baud rate")
	fs.DurationVar(&cfg.serialReadTO, "serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	fs.StringVar(&cfg.listenAddr, "listen", ":20100", "TCP listen address for event/command clients")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text|json")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	fs.IntVar(&cfg.hubBuffer, "hub-buffer", 256, "Per-client hub buffer (event lines)")
	fs.StringVar(&cfg.hubPolicy, "hub-policy", "drop", "Backpressure policy: drop|kick")
	fs.DurationVar(&cfg.logMetricsEvery, "log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	fs.IntVar(&cfg.maxClients, "max-clients", 0, "Maximum simultaneous TCP clients (0 = unlimited)")
	fs.DurationVar(&cfg.clientReadTO, "client-read-timeout", 60*time.Second, "Per-connection read deadline")
	fs.DurationVar(&cfg.callTimeout, "call-timeout", 5*time.Second, "Default timeout for request/response calls")
	fs.IntVar(&cfg.workers, "workers", 5, "Listener dispatch workers")
	fs.IntVar(&cfg.queue, "queue", 256, "Per-worker dispatch queue")
	fs.BoolVar(&cfg.commandPrefix, "command-prefix", false, "Prefix every command with a terminator run")
	fs.StringVar(&cfg.initCommands, "init", "bkcmd=3", "Comma separated commands sent after start (empty disables)")
	fs.BoolVar(&cfg.mdnsEnable, "mdns-enable", false, "Enable mDNS/Avahi advertisement")
	fs.StringVar(&cfg.mdnsName, "mdns-name", "", "mDNS instance name (default nextion-bridge-<hostname>)")
	fs.StringVar(&cfg.configFile, "config", "", "Optional TOML configuration file")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if *showVersion {
		return cfg, true, nil
	}

	// Track which flags were explicitly set to give them precedence.
	setFlags := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	if _, ok := setFlags["config"]; !ok {
		if v, ok := os.LookupEnv("NEXTION_BRIDGE_CONFIG"); ok && strings.TrimSpace(v) != "" {
			cfg.configFile = strings.TrimSpace(v)
		}
	}
	if cfg.configFile != "" {
		if err := applyConfigFile(cfg, cfg.configFile, setFlags); err != nil {
			return nil, false, err
		}
	}
	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		return nil, false, fmt.Errorf("environment override: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// initCommandList splits the -init value; empty entries are dropped.
func (c *appConfig) initCommandList() []string {
	var out []string
	for _, s := range strings.Split(c.initCommands, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or listeners, only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(c.serialDev) == "" {
		return errors.New("serial device must be set")
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
	switch c.hubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid hub-policy: %s", c.hubPolicy)
	}
	if c.hubBuffer <= 0 {
		return fmt.Errorf("hub-buffer must be > 0 (got %d)", c.hubBuffer)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.clientReadTO <= 0 {
		return fmt.Errorf("client-read-timeout must be > 0")
	}
	if c.callTimeout <= 0 {
		return fmt.Errorf("call-timeout must be > 0")
	}
	if c.workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", c.workers)
	}
	if c.queue <= 0 {
		return fmt.Errorf("queue must be > 0 (got %d)", c.queue)
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if c.logMetricsEvery < 0 {
		return fmt.Errorf("log-metrics-interval must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps NEXTION_BRIDGE_* environment variables to config
// fields unless a corresponding flag was explicitly set. Empty values are
// ignored. Durations use time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(flagName, key string) (string, bool) {
		if _, ok := set[flagName]; ok {
			return "", false
		}
		v, ok := os.LookupEnv(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	fail := func(key string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	str := func(flagName, key string, dst *string) {
		if v, ok := get(flagName, key); ok {
			*dst = v
		}
	}
	num := func(flagName, key string, min int, dst *int) {
		if v, ok := get(flagName, key); ok {
			n, err := strconv.Atoi(v)
			switch {
			case err != nil:
				fail(key, err)
			case n < min:
				fail(key, fmt.Errorf("must be >= %d", min))
			default:
				*dst = n
			}
		}
	}
	dur := func(flagName, key string, dst *time.Duration) {
		if v, ok := get(flagName, key); ok {
			d, err := time.ParseDuration(v)
			switch {
			case err != nil:
				fail(key, err)
			case d < 0:
				fail(key, errors.New("must be >= 0"))
			default:
				*dst = d
			}
		}
	}
	boolean := func(flagName, key string, dst *bool) {
		if v, ok := get(flagName, key); ok {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			default:
				fail(key, fmt.Errorf("not a boolean: %q", v))
			}
		}
	}

	str("serial", "NEXTION_BRIDGE_SERIAL", &c.serialDev)
	num("baud", "NEXTION_BRIDGE_BAUD", 1, &c.baud)
	dur("serial-read-timeout", "NEXTION_BRIDGE_SERIAL_READ_TIMEOUT", &c.serialReadTO)
	str("listen", "NEXTION_BRIDGE_LISTEN", &c.listenAddr)
	str("log-format", "NEXTION_BRIDGE_LOG_FORMAT", &c.logFormat)
	str("log-level", "NEXTION_BRIDGE_LOG_LEVEL", &c.logLevel)
	str("metrics-addr", "NEXTION_BRIDGE_METRICS", &c.metricsAddr)
	num("hub-buffer", "NEXTION_BRIDGE_HUB_BUFFER", 1, &c.hubBuffer)
	str("hub-policy", "NEXTION_BRIDGE_HUB_POLICY", &c.hubPolicy)
	dur("log-metrics-interval", "NEXTION_BRIDGE_LOG_METRICS_INTERVAL", &c.logMetricsEvery)
	num("max-clients", "NEXTION_BRIDGE_MAX_CLIENTS", 0, &c.maxClients)
	dur("client-read-timeout", "NEXTION_BRIDGE_CLIENT_READ_TIMEOUT", &c.clientReadTO)
	dur("call-timeout", "NEXTION_BRIDGE_CALL_TIMEOUT", &c.callTimeout)
	num("workers", "NEXTION_BRIDGE_WORKERS", 1, &c.workers)
	num("queue", "NEXTION_BRIDGE_QUEUE", 1, &c.queue)
	boolean("command-prefix", "NEXTION_BRIDGE_COMMAND_PREFIX", &c.commandPrefix)
	str("init", "NEXTION_BRIDGE_INIT", &c.initCommands)
	boolean("mdns-enable", "NEXTION_BRIDGE_MDNS_ENABLE", &c.mdnsEnable)
	str("mdns-name", "NEXTION_BRIDGE_MDNS_NAME", &c.mdnsName)
	return firstErr
}
