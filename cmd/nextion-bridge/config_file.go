package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the flag set; keys use snake_case.
type fileConfig struct {
	Serial             string   `toml:"serial"`
	Baud               int      `toml:"baud"`
	SerialReadTimeout  string   `toml:"serial_read_timeout"`
	Listen             string   `toml:"listen"`
	LogFormat          string   `toml:"log_format"`
	LogLevel           string   `toml:"log_level"`
	MetricsAddr        string   `toml:"metrics_addr"`
	HubBuffer          int      `toml:"hub_buffer"`
	HubPolicy          string   `toml:"hub_policy"`
	LogMetricsInterval string   `toml:"log_metrics_interval"`
	MaxClients         int      `toml:"max_clients"`
	ClientReadTimeout  string   `toml:"client_read_timeout"`
	CallTimeout        string   `toml:"call_timeout"`
	Workers            int      `toml:"workers"`
	Queue              int      `toml:"queue"`
	CommandPrefix      bool     `toml:"command_prefix"`
	Init               []string `toml:"init"`
	MDNS               struct {
		Enable bool   `toml:"enable"`
		Name   string `toml:"name"`
	} `toml:"mdns"`
}

// applyConfigFile loads path and applies every key it defines unless the
// matching flag was set on the command line.
func applyConfigFile(c *appConfig, path string, set map[string]struct{}) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undec[0].String())
	}
	use := func(flagName string, key ...string) bool {
		if _, ok := set[flagName]; ok {
			return false
		}
		return meta.IsDefined(key...)
	}
	dur := func(flagName, key, v string, dst *time.Duration) error {
		if !use(flagName, key) {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if use("serial", "serial") {
		c.serialDev = strings.TrimSpace(raw.Serial)
	}
	if use("baud", "baud") {
		c.baud = raw.Baud
	}
	if err := dur("serial-read-timeout", "serial_read_timeout", raw.SerialReadTimeout, &c.serialReadTO); err != nil {
		return err
	}
	if use("listen", "listen") {
		c.listenAddr = strings.TrimSpace(raw.Listen)
	}
	if use("log-format", "log_format") {
		c.logFormat = strings.TrimSpace(raw.LogFormat)
	}
	if use("log-level", "log_level") {
		c.logLevel = strings.TrimSpace(raw.LogLevel)
	}
	if use("metrics-addr", "metrics_addr") {
		c.metricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if use("hub-buffer", "hub_buffer") {
		c.hubBuffer = raw.HubBuffer
	}
	if use("hub-policy", "hub_policy") {
		c.hubPolicy = strings.TrimSpace(raw.HubPolicy)
	}
	if err := dur("log-metrics-interval", "log_metrics_interval", raw.LogMetricsInterval, &c.logMetricsEvery); err != nil {
		return err
	}
	if use("max-clients", "max_clients") {
		c.maxClients = raw.MaxClients
	}
	if err := dur("client-read-timeout", "client_read_timeout", raw.ClientReadTimeout, &c.clientReadTO); err != nil {
		return err
	}
	if err := dur("call-timeout", "call_timeout", raw.CallTimeout, &c.callTimeout); err != nil {
		return err
	}
	if use("workers", "workers") {
		c.workers = raw.Workers
	}
	if use("queue", "queue") {
		c.queue = raw.Queue
	}
	if use("command-prefix", "command_prefix") {
		c.commandPrefix = raw.CommandPrefix
	}
	if use("init", "init") {
		c.initCommands = strings.Join(raw.Init, ",")
	}
	if use("mdns-enable", "mdns", "enable") {
		c.mdnsEnable = raw.MDNS.Enable
	}
	if use("mdns-name", "mdns", "name") {
		c.mdnsName = strings.TrimSpace(raw.MDNS.Name)
	}
	return nil
}
