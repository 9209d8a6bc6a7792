// Package config loads the dashboard's YAML configuration.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API APIConfig `yaml:"api"`
	Run RunConfig `yaml:"run"`
	UI  UIConfig  `yaml:"ui"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type RunConfig struct {
	TopNRerank int    `yaml:"top_n_rerank"`
	Model      string `yaml:"model"`
}

type UIConfig struct {
	// ForceSingle closes every other live stream before starting a run,
	// keeping exactly one active stream application-wide.
	ForceSingle bool `yaml:"force_single"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
		},
		Run: RunConfig{
			TopNRerank: 10,
			Model:      "gpt-5-mini",
		},
		UI: UIConfig{
			ForceSingle: true,
		},
	}
}

// Load reads the config file at path, overlaying it on the defaults. A
// missing file is not an error: the dashboard must start configless.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
