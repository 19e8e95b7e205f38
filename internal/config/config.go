package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Directory holding the ml*.htm index pages.
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`

	TestMode  bool `yaml:"test_mode"`
	TestLimit int  `yaml:"test_limit"`

	// Optional SQLite database the parsed books are loaded into.
	DBPath string `yaml:"db_path"`
}

func Default() Config {
	return Config{
		OutputDir: "output",
		TestLimit: 10,
	}
}

// Load applies, in order: defaults, the YAML file at path (if path != ""),
// and SUTRA_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.InputDir = envOr("SUTRA_INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = envOr("SUTRA_OUTPUT_DIR", cfg.OutputDir)
	cfg.TestMode = envBool("SUTRA_TEST_MODE", cfg.TestMode)
	cfg.TestLimit = envInt("SUTRA_TEST_LIMIT", cfg.TestLimit)
	cfg.DBPath = envOr("SUTRA_DB", cfg.DBPath)

	return cfg, nil
}

func (c Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input directory is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.TestMode && c.TestLimit <= 0 {
		return fmt.Errorf("test limit must be positive in test mode, got %d", c.TestLimit)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
