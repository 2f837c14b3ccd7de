package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rigscout/api"
)

// Config keeps the credentials out of the source tree.
type Config struct {
	APIKey      string   `json:"api_key" yaml:"api_key"`
	APISecret   string   `json:"api_secret" yaml:"api_secret"`
	BaseURL     string   `json:"base_url" yaml:"base_url"`
	ListenAddr  string   `json:"listen" yaml:"listen"`
	Algos       []string `json:"algos" yaml:"algos"`
	Timeout     string   `json:"timeout" yaml:"timeout"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

const (
	defaultListenAddr = ":5000"
	defaultTimeout    = "15s"
)

var defaultAlgos = []string{"scrypt", "sha256"}

func defaultConfig() Config {
	return Config{
		BaseURL:    api.DefaultBaseURL,
		ListenAddr: defaultListenAddr,
		Algos:      append([]string(nil), defaultAlgos...),
		Timeout:    defaultTimeout,
	}
}

// RenderConfig reads a JSON or YAML config file on top of the defaults.
// An empty file name yields the defaults.
func RenderConfig(file string) (Config, error) {
	parsed := defaultConfig()
	if file == "" {
		return parsed, nil
	}

	cfgFile, err := os.Open(file)
	if err != nil {
		Log.Errorf("Error loading config: %s", file)
		return parsed, err
	}
	defer cfgFile.Close()

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(cfgFile).Decode(&parsed)
	default:
		err = json.NewDecoder(cfgFile).Decode(&parsed)
	}
	if err != nil {
		return parsed, fmt.Errorf("parsing %s: %w", file, err)
	}

	Log.Infof("Config loaded from: %s", file)
	return parsed, nil
}

// applyEnv lets the environment override whatever the file said.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("MRR_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("MRR_API_SECRET"); v != "" {
		cfg.APISecret = v
	}
	if v := getenv("MRR_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv("RIGSCOUT_LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv("RIGSCOUT_ALGOS"); v != "" {
		cfg.Algos = nil
		for _, algo := range strings.Split(v, ",") {
			if algo = strings.TrimSpace(algo); algo != "" {
				cfg.Algos = append(cfg.Algos, algo)
			}
		}
	}
}

func (cfg Config) Validate() error {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return errors.New("api_key and api_secret are required (or MRR_API_KEY / MRR_API_SECRET)")
	}
	if len(cfg.Algos) == 0 {
		return errors.New("at least one algorithm must be allowed")
	}
	if _, err := cfg.RequestTimeout(); err != nil {
		return err
	}
	return nil
}

func (cfg Config) RequestTimeout() (time.Duration, error) {
	if cfg.Timeout == "" {
		return api.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return d, nil
}

// loadConfig is RenderConfig plus the environment, validated.
func loadConfig(file string) (Config, error) {
	cfg, err := RenderConfig(file)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg, os.Getenv)

	for _, algo := range cfg.Algos {
		if !isKnownAlgorithm(algo) {
			Log.Warnf("Algorithm %s is not one MRR is known to list", algo)
		}
	}
	return cfg, cfg.Validate()
}

func isKnownAlgorithm(algo string) bool {
	for _, known := range api.Algorithms {
		if known == algo {
			return true
		}
	}
	return false
}
