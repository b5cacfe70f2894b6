// Package config loads the YAML configuration of the hamqtt demo program.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/mqtt"
	"github.com/nlowe/hamqtt/topic"
)

const (
	DefaultClientID        = "hamqtt-demo"
	DefaultKeepAlive       = 20
	DefaultPublishInterval = 30 * time.Second
	DefaultDeviceName      = "hamqtt demo"
)

var (
	ErrBrokerRequired   = errors.New("broker.url is required")
	ErrUnsupportedURL   = errors.New("unsupported broker url scheme")
	ErrInvalidPrefix    = errors.New("invalid topic prefix")
	ErrInvalidQoS       = errors.New("qos must be 0, 1, or 2")
	ErrInvalidInterval  = errors.New("publish_interval must be positive")
	ErrInvalidLogLevel  = errors.New("unknown log level")
	supportedURLSchemes = []string{"mqtt", "tcp", "mqtts", "ssl", "tls", "ws", "wss"}
)

// DefaultSearchPaths returns the config file search order used when no explicit path is given:
// ./hamqtt.yaml, ~/.config/hamqtt/hamqtt.yaml, /etc/hamqtt/hamqtt.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"hamqtt.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hamqtt", "hamqtt.yaml"))
	}

	return append(paths, "/etc/hamqtt/hamqtt.yaml")
}

// FindConfig locates a config file. If explicit is non-empty, it must exist. Otherwise, the first of
// DefaultSearchPaths that exists is returned.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config is the root of the demo configuration.
type Config struct {
	Broker BrokerConfig `yaml:"broker"`
	Device DeviceConfig `yaml:"device"`

	DiscoveryPrefix string `yaml:"discovery_prefix"`
	DataPrefix      string `yaml:"data_prefix"`
	QoS             uint8  `yaml:"qos"`

	// How often the demo entities publish new values, e.g. "30s".
	PublishInterval time.Duration `yaml:"publish_interval"`

	LogLevel string `yaml:"log_level"`
}

// BrokerConfig holds the MQTT connection settings.
type BrokerConfig struct {
	URL       string `yaml:"url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	ClientID  string `yaml:"client_id"`
	KeepAlive uint16 `yaml:"keep_alive"` // seconds
}

// DeviceConfig describes the device every demo entity belongs to.
type DeviceConfig struct {
	UniqueID           string `yaml:"unique_id"`
	Name               string `yaml:"name"`
	Manufacturer       string `yaml:"manufacturer"`
	Model              string `yaml:"model"`
	SoftwareVersion    string `yaml:"sw_version"`
	SuggestedArea      string `yaml:"suggested_area"`
	SharedAvailability bool   `yaml:"shared_availability"`
}

// Load reads configuration from a YAML file, expanding environment variables first. Defaults are applied to the
// result but it is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills in every unset field. A missing device unique id is derived from the hostname.
func (c *Config) ApplyDefaults() {
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = topic.DefaultDiscoveryPrefix
	}
	if c.DataPrefix == "" {
		c.DataPrefix = topic.DefaultDataPrefix
	}
	if c.PublishInterval == 0 {
		c.PublishInterval = DefaultPublishInterval
	}
	if c.Broker.ClientID == "" {
		c.Broker.ClientID = DefaultClientID
	}
	if c.Broker.KeepAlive == 0 {
		c.Broker.KeepAlive = DefaultKeepAlive
	}
	if c.Device.Name == "" {
		c.Device.Name = DefaultDeviceName
	}
	if c.Device.UniqueID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = c.Device.Name
		}

		c.Device.UniqueID = DeviceIDFor(hostname)
	}
}

// DeviceIDFor derives a stable device unique id from hostname, so restarts keep the same topics and entities.
func DeviceIDFor(hostname string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(strings.ToLower(hostname))).String()
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.BrokerURL(); err != nil {
		errs = append(errs, err)
	}

	for name, prefix := range map[string]string{"discovery_prefix": c.DiscoveryPrefix, "data_prefix": c.DataPrefix} {
		if !topic.ValidPrefix(mqtt.TrimTopic(prefix)) {
			errs = append(errs, fmt.Errorf("%s %q: %w", name, prefix, ErrInvalidPrefix))
		}
	}

	if !mqtt.QualityOfService(c.QoS).Valid() {
		errs = append(errs, fmt.Errorf("%d: %w", c.QoS, ErrInvalidQoS))
	}

	if err := c.ToDevice().Valid(); err != nil {
		errs = append(errs, fmt.Errorf("device.unique_id: %w", err))
	}

	if c.PublishInterval <= 0 {
		errs = append(errs, ErrInvalidInterval)
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// BrokerURL parses Broker.URL.
func (c *Config) BrokerURL() (*url.URL, error) {
	if c.Broker.URL == "" {
		return nil, ErrBrokerRequired
	}

	u, err := url.Parse(c.Broker.URL)
	if err != nil {
		return nil, fmt.Errorf("broker.url: %w", err)
	}

	if !slices.Contains(supportedURLSchemes, u.Scheme) {
		return nil, fmt.Errorf("broker.url %q: %w", u.Scheme, ErrUnsupportedURL)
	}

	return u, nil
}

// Level parses LogLevel. An empty level is slog.LevelInfo.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%q: %w", c.LogLevel, ErrInvalidLogLevel)
	}
}

// ToDevice builds the hamqtt.Device described by the configuration.
func (c *Config) ToDevice() *hamqtt.Device {
	return &hamqtt.Device{
		UniqueID:           c.Device.UniqueID,
		SharedAvailability: c.Device.SharedAvailability,
		Name:               c.Device.Name,
		Manufacturer:       c.Device.Manufacturer,
		Model:              c.Device.Model,
		FirmwareVersion:    c.Device.SoftwareVersion,
		SuggestedArea:      c.Device.SuggestedArea,
	}
}

// ClientOptions returns the hamqtt.ClientOption values for the configured prefixes and QoS.
func (c *Config) ClientOptions() []hamqtt.ClientOption {
	return []hamqtt.ClientOption{
		hamqtt.WithDiscoveryPrefix(c.DiscoveryPrefix),
		hamqtt.WithDataPrefix(c.DataPrefix),
		hamqtt.WithQoS(mqtt.QualityOfService(c.QoS)),
	}
}
