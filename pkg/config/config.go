/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"
)

// Notifier holds the settings of one email notifier: the message templates
// and the SMTP connection it delivers through.
type Notifier struct {
	// Templates, interpolated with the notification parameters
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`

	// SMTP connection
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	SSLTrustAll         bool     `yaml:"sslTrustAll"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	SSLKeyStore         string   `yaml:"sslKeyStore"`
	SSLKeyStorePassword string   `yaml:"sslKeyStorePassword"`
	StartTLSEnabled     bool     `yaml:"startTLSEnabled"`
	AuthMethods         []string `yaml:"authMethods"`

	// TemplatesPath is the base directory for template includes and
	// file-based inline images. It may be URL-encoded.
	TemplatesPath string `yaml:"templatesPath"`
}

// Delivery tunes the SMTP connection pool and the dispatch queue.
type Delivery struct {
	Workers     int    `yaml:"workers"`
	QueueSize   int    `yaml:"queueSize"`
	IdleTimeout string `yaml:"idleTimeout"`
	SendTimeout string `yaml:"sendTimeout"`
	// LocalName is the hostname announced in EHLO. Empty uses "localhost".
	LocalName string `yaml:"localName"`
}

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// RateLimit caps notification requests per client IP. Nil disables it.
	RateLimit *RateLimit `yaml:"rateLimit"`
}

type RateLimit struct {
	// Rate is requests per second.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

type Kafka struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	BatchSize    int      `yaml:"batchSize"`
	BatchTimeout string   `yaml:"batchTimeout"`
	Async        bool     `yaml:"async"`
	// Compression is one of none, gzip, snappy, lz4, zstd. Empty means snappy.
	Compression string `yaml:"compression"`

	TLS  *KafkaTLS  `yaml:"tls"`
	SASL *KafkaSASL `yaml:"sasl"`
}

type KafkaTLS struct {
	Enabled            bool   `yaml:"enabled"`
	CAFile             string `yaml:"caFile"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// KafkaSASL selects PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512 authentication.
type KafkaSASL struct {
	Mechanism string `yaml:"mechanism"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type Audit struct {
	// Log writes delivery events to the process logger.
	Log   bool   `yaml:"log"`
	Kafka *Kafka `yaml:"kafka"`
}

// Telemetry configures OpenTelemetry tracing.
type Telemetry struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
	// Exporter is otlp, stdout or none.
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"samplingRate"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	Notifier  Notifier  `yaml:"notifier"`
	Delivery  Delivery  `yaml:"delivery"`
	Audit     Audit     `yaml:"audit"`
	Telemetry Telemetry `yaml:"telemetry"`
}

const (
	DefaultConfigPath    = "./config.yaml"
	DefaultTemplatesPath = "./templates"
)

func defaults() Config {
	return Config{
		Server: Server{
			ListenAddress: ":8080",
		},
		Notifier: Notifier{
			Port:          25,
			TemplatesPath: DefaultTemplatesPath,
		},
		Delivery: Delivery{
			Workers:     4,
			QueueSize:   1000,
			IdleTimeout: "30s",
			SendTimeout: "60s",
		},
	}
}

// Load loads the notifier configuration from a file path.
// If configPath is empty, defaults to "./config.yaml".
func Load(configPath ...string) (Config, error) {
	path := DefaultConfigPath
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open notifier config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}

	if err := config.Defaults(); err != nil {
		return config, err
	}
	return config, nil
}

// Defaults fills every zero-valued field with its default.
func (c *Config) Defaults() error {
	if err := mergo.Merge(c, defaults()); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}
	return nil
}

// Validate reports every missing setting the notifier cannot work without.
func (c Config) Validate() error {
	var errs []error
	if c.Notifier.Host == "" {
		errs = append(errs, errors.New("notifier.host is required"))
	}
	if c.Notifier.Port <= 0 || c.Notifier.Port > 65535 {
		errs = append(errs, fmt.Errorf("notifier.port %d is out of range", c.Notifier.Port))
	}
	if c.Notifier.From == "" {
		errs = append(errs, errors.New("notifier.from is required"))
	}
	if c.Notifier.To == "" {
		errs = append(errs, errors.New("notifier.to is required"))
	}
	if c.Notifier.TemplatesPath == "" {
		errs = append(errs, errors.New("notifier.templatesPath is required"))
	}
	if c.Audit.Kafka != nil {
		if len(c.Audit.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("audit.kafka.brokers must not be empty"))
		}
		if c.Audit.Kafka.Topic == "" {
			errs = append(errs, errors.New("audit.kafka.topic is required"))
		}
		if c.Audit.Kafka.BatchTimeout != "" {
			if _, err := time.ParseDuration(c.Audit.Kafka.BatchTimeout); err != nil {
				errs = append(errs, fmt.Errorf("invalid audit.kafka.batchTimeout %q: %w", c.Audit.Kafka.BatchTimeout, err))
			}
		}
	}
	switch c.Telemetry.Exporter {
	case "", "otlp", "stdout", "none":
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter %q is not one of otlp, stdout, none", c.Telemetry.Exporter))
	}
	if rl := c.Server.RateLimit; rl != nil && (rl.Rate <= 0 || rl.Burst <= 0) {
		errs = append(errs, fmt.Errorf("server.rateLimit needs a positive rate and burst, got %v/%d", rl.Rate, rl.Burst))
	}
	for name, value := range map[string]string{
		"delivery.idleTimeout": c.Delivery.IdleTimeout,
		"delivery.sendTimeout": c.Delivery.SendTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, value, err))
		}
	}
	return errors.Join(errs...)
}

// ResolvedTemplatesPath returns TemplatesPath with URL escapes decoded.
func (n Notifier) ResolvedTemplatesPath() (string, error) {
	p, err := url.PathUnescape(n.TemplatesPath)
	if err != nil {
		return "", fmt.Errorf("invalid templatesPath %q: %w", n.TemplatesPath, err)
	}
	return p, nil
}

// ParseDuration parses value, falling back to def when value is empty.
func ParseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
	}
	return d, nil
}
