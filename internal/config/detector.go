// internal/config/detector.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DetectBackendType determines the backend type from the configuration file
func DetectBackendType(configPath string) (string, error) {
	// Check for environment variable override first
	if envType := os.Getenv("SEATQUEST_BACKEND_TYPE"); envType != "" {
		return normalizeBackendType(envType), nil
	}

	// Also check SEATQUEST_BACKEND for compatibility
	if envType := os.Getenv("SEATQUEST_BACKEND"); envType != "" {
		return normalizeBackendType(envType), nil
	}

	// Find the actual config file path
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file means defaults everywhere, including the store.
			return "memory", nil
		}
		return "", err
	}

	var configFile string
	if fileInfo.IsDir() {
		// Try common config filenames
		candidates := []string{
			filepath.Join(configPath, "config.yaml"),
			filepath.Join(configPath, "config.yml"),
			filepath.Join(configPath, "seat-quest.yaml"),
			filepath.Join(configPath, "seat-quest.yml"),
		}

		for _, candidate := range candidates {
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				configFile = candidate
				break
			}
		}

		if configFile == "" {
			return "memory", nil
		}
	} else {
		configFile = configPath
	}

	// Read and parse the configuration file
	data, err := os.ReadFile(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to read config file: %w", err)
	}

	var config RootConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return "", fmt.Errorf("invalid configuration file: %w", err)
	}

	if config.Backend.Type == "" {
		// Backends are optional for single-process deployments; fall back
		// to the in-memory store rather than refusing to start.
		return "memory", nil
	}

	return normalizeBackendType(config.Backend.Type), nil
}

// normalizeBackendType maps user-facing spellings onto registered store names.
func normalizeBackendType(backendType string) string {
	switch strings.ToLower(strings.TrimSpace(backendType)) {
	case "mem", "memory", "inmemory", "in-memory":
		return "memory"
	case "redis":
		return "redis"
	case "scylla", "scylladb", "cassandra":
		return "scylladb"
	case "dynamo", "dynamodb":
		return "dynamodb"
	default:
		return strings.ToLower(strings.TrimSpace(backendType))
	}
}
