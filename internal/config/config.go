// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultWidth      = 500
	DefaultOutputFile = "coffee_data.csv"
)

type Config struct {
	ImagesDir  string
	OutputFile string

	// OCR engine selection
	Engine      string
	Language    string
	OllamaURL   string
	OllamaModel string

	Width    int
	Workers  int
	DebugDir string
	Addr     string
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	width, err := getEnvAsIntOrDefault("BEANCARD_WIDTH", DefaultWidth)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvAsIntOrDefault("BEANCARD_WORKERS", 1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ImagesDir:   getEnvOrDefault("BEANCARD_IMAGES", "."),
		OutputFile:  getEnvOrDefault("BEANCARD_OUTPUT", DefaultOutputFile),
		Engine:      getEnvOrDefault("BEANCARD_ENGINE", "gosseract"),
		Language:    getEnvOrDefault("BEANCARD_LANG", "chi_sim"),
		OllamaURL:   getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getEnvOrDefault("OLLAMA_MODEL", "llama3.2-vision"),
		Width:       width,
		Workers:     workers,
		DebugDir:    os.Getenv("BEANCARD_DEBUG_DIR"),
		Addr:        getEnvOrDefault("BEANCARD_ADDR", ":8080"),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", c.Width)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file is required")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsIntOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q: %w", key, v, err)
	}
	return n, nil
}
