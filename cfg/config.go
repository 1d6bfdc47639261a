// Copyright 2024 The ossfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg holds the typed configuration the mount command reads
// from flags and an optional config file, via viper/pflag. Environment
// variables are not consulted.
package cfg

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BackendKind selects which backend.Backend implementation backs a mount.
type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendS3    BackendKind = "s3"
	BackendFiler BackendKind = "filer"
)

// Config is the fully resolved configuration for one mount invocation.
type Config struct {
	AppName string `mapstructure:"app-name" yaml:"app-name"`

	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	MountOptions []string `mapstructure:"mount-options" yaml:"mount-options"`
}

// BackendConfig selects and configures the storage backend.
type BackendConfig struct {
	Kind BackendKind `mapstructure:"kind" yaml:"kind"`

	// Local
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`

	// S3
	Bucket          string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access-key-id" yaml:"access-key-id,omitempty"`
	SecretAccessKey string `mapstructure:"secret-access-key" yaml:"secret-access-key,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force-path-style" yaml:"force-path-style,omitempty"`

	// Filer
	FilerBaseURL string `mapstructure:"filer-base-url" yaml:"filer-base-url,omitempty"`

	BootstrapTimeout time.Duration `mapstructure:"bootstrap-timeout" yaml:"bootstrap-timeout"`

	// StatCacheTTL, if non-zero, wraps the backend in a read-through
	// GetNode cache (internal/backend.WithStatCache).
	StatCacheTTL time.Duration `mapstructure:"stat-cache-ttl" yaml:"stat-cache-ttl,omitempty"`
}

// MetricsConfig controls the optional Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig controls where and how verbosely the mount logs.
type LoggingConfig struct {
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
	LogFile string `mapstructure:"log-file" yaml:"log-file,omitempty"`
}

// Validate rejects configurations that cannot produce a runnable mount.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendLocal:
		if c.Backend.Dir == "" {
			return fmt.Errorf("backend.dir is required for backend.kind=local")
		}
	case BackendS3:
		if c.Backend.Bucket == "" {
			return fmt.Errorf("backend.bucket is required for backend.kind=s3")
		}
	case BackendFiler:
		if c.Backend.FilerBaseURL == "" {
			return fmt.Errorf("backend.filer-base-url is required for backend.kind=filer")
		}
	default:
		return fmt.Errorf("backend.kind must be one of %q, %q, %q, got %q", BackendLocal, BackendS3, BackendFiler, c.Backend.Kind)
	}
	return nil
}

// BindFlags registers every flag the config understands against flagSet
// and binds each to its viper key, mirroring the flag/viper wiring
// pattern used throughout the mount command.
func BindFlags(flagSet *pflag.FlagSet) error {
	bind := func(key, flag string) error {
		return viper.BindPFlag(key, flagSet.Lookup(flag))
	}

	flagSet.StringP("app-name", "", "ossfs", "Application name reported to the kernel bridge.")
	if err := bind("app-name", "app-name"); err != nil {
		return err
	}

	flagSet.StringP("backend", "", string(BackendLocal), "Storage backend: local, s3, or filer.")
	if err := bind("backend.kind", "backend"); err != nil {
		return err
	}

	flagSet.StringP("dir", "", "", "Root directory for backend=local.")
	if err := bind("backend.dir", "dir"); err != nil {
		return err
	}

	flagSet.StringP("bucket", "", "", "Bucket name for backend=s3.")
	if err := bind("backend.bucket", "bucket"); err != nil {
		return err
	}

	flagSet.StringP("region", "", "us-east-1", "Region for backend=s3.")
	if err := bind("backend.region", "region"); err != nil {
		return err
	}

	flagSet.StringP("endpoint", "", "", "Custom endpoint for backend=s3, e.g. a MinIO host.")
	if err := bind("backend.endpoint", "endpoint"); err != nil {
		return err
	}

	flagSet.BoolP("force-path-style", "", false, "Use path-style S3 addressing (required by most non-AWS stores).")
	if err := bind("backend.force-path-style", "force-path-style"); err != nil {
		return err
	}

	flagSet.StringP("filer-base-url", "", "", "Base URL of the filer HTTP endpoint for backend=filer.")
	if err := bind("backend.filer-base-url", "filer-base-url"); err != nil {
		return err
	}

	flagSet.DurationP("bootstrap-timeout", "", time.Second, "Timeout for the backend's startup reachability check.")
	if err := bind("backend.bootstrap-timeout", "bootstrap-timeout"); err != nil {
		return err
	}

	flagSet.DurationP("stat-cache-ttl", "", 0, "TTL for the read-through attribute cache; 0 disables it.")
	if err := bind("backend.stat-cache-ttl", "stat-cache-ttl"); err != nil {
		return err
	}

	flagSet.BoolP("metrics", "", false, "Serve Prometheus metrics.")
	if err := bind("metrics.enabled", "metrics"); err != nil {
		return err
	}

	flagSet.StringP("metrics-addr", "", ":9099", "Address the metrics HTTP server listens on.")
	if err := bind("metrics.addr", "metrics-addr"); err != nil {
		return err
	}

	flagSet.BoolP("debug", "", false, "Enable debug logging.")
	if err := bind("logging.debug", "debug"); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to write logs to; defaults to stderr.")
	if err := bind("logging.log-file", "log-file"); err != nil {
		return err
	}

	flagSet.StringSliceP("o", "o", nil, "Mount option, e.g. -o ro -o fsname=ossfs. May be repeated.")
	if err := bind("mount-options", "o"); err != nil {
		return err
	}

	return nil
}

// Load builds a Config from whatever viper has accumulated from flags
// and an optional config file.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
