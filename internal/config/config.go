// Package config loads the replica daemon configuration: YAML file merged
// over defaults, then environment overrides, then validation of share
// addresses and peer multiaddrs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/multiformats/go-multiaddr"
	"gopkg.in/yaml.v3"

	"earthstar/go-core/pkg/address"
)

// Config is the resolved daemon configuration.
type Config struct {
	DataDir       string
	SpoolDir      string
	MetricsAddr   string
	Shares        []string
	IngestRPS     float64
	IngestBurst   int
	PruneInterval time.Duration
	// BootstrapPeers lists sync peers as multiaddrs. This layer only
	// validates them; the sync engine consuming them lives elsewhere.
	BootstrapPeers []string
}

type fileConfig struct {
	Replica replicaSection `yaml:"replica"`
	Network networkSection `yaml:"network"`
}

type replicaSection struct {
	DataDir       string   `yaml:"dataDir"`
	SpoolDir      string   `yaml:"spoolDir"`
	MetricsAddr   string   `yaml:"metricsAddr"`
	Shares        []string `yaml:"shares"`
	IngestRPS     float64  `yaml:"ingestRps"`
	IngestBurst   int      `yaml:"ingestBurst"`
	PruneInterval string   `yaml:"pruneInterval"`
}

type networkSection struct {
	BootstrapPeers []string `yaml:"bootstrapPeers"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		DataDir:       "data",
		SpoolDir:      "spool",
		MetricsAddr:   "127.0.0.1:9418",
		IngestRPS:     5,
		IngestBurst:   20,
		PruneInterval: 5 * time.Minute,
	}
}

// LoadFromPath resolves the configuration. An explicit path is the only
// candidate when given; otherwise the default locations are tried in order
// and unreadable candidates are skipped.
func LoadFromPath(configPath string) (Config, error) {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/estar.yaml",
			"estar.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := merge(&cfg, parsed); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(dst *Config, src fileConfig) error {
	if src.Replica.DataDir != "" {
		dst.DataDir = src.Replica.DataDir
	}
	if src.Replica.SpoolDir != "" {
		dst.SpoolDir = src.Replica.SpoolDir
	}
	if src.Replica.MetricsAddr != "" {
		dst.MetricsAddr = src.Replica.MetricsAddr
	}
	if src.Replica.Shares != nil {
		dst.Shares = src.Replica.Shares
	}
	if src.Replica.IngestRPS != 0 {
		dst.IngestRPS = src.Replica.IngestRPS
	}
	if src.Replica.IngestBurst != 0 {
		dst.IngestBurst = src.Replica.IngestBurst
	}
	if src.Replica.PruneInterval != "" {
		interval, err := time.ParseDuration(src.Replica.PruneInterval)
		if err != nil {
			return fmt.Errorf("pruneInterval: %w", err)
		}
		dst.PruneInterval = interval
	}
	if src.Network.BootstrapPeers != nil {
		dst.BootstrapPeers = src.Network.BootstrapPeers
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ESTAR_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ESTAR_SPOOL_DIR")); v != "" {
		cfg.SpoolDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ESTAR_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
}

func (cfg Config) validate() error {
	for _, s := range cfg.Shares {
		if _, err := address.ParseShare(s); err != nil {
			return fmt.Errorf("config share %q: %w", s, err)
		}
	}
	for _, peer := range cfg.BootstrapPeers {
		if _, err := multiaddr.NewMultiaddr(peer); err != nil {
			return fmt.Errorf("config bootstrap peer %q: %w", peer, err)
		}
	}
	return nil
}
