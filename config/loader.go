package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix environment variables must carry to override
// file values, e.g. CLOUDBATCH_TRANSPORT_TIMEOUT=10s.
const EnvPrefix = "CLOUDBATCH_"

// fileSystem is the file access the loader needs.
type fileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// resolvedFiles contains the resolved config and env file paths.
type resolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// resolveFiles keeps explicit paths and searches for the rest.
func resolveFiles(fs fileSystem, serviceName string, opts LoaderConfig) resolvedFiles {
	resolved := resolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = firstExisting(fs, configSearchPaths(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = firstExisting(fs, envSearchPaths(serviceName))
	}
	return resolved
}

func firstExisting(fs fileSystem, paths []string) string {
	for _, path := range paths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

func configSearchPaths(serviceName string) []string {
	paths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
	if home, err := os.UserConfigDir(); err == nil {
		paths = append(paths, fmt.Sprintf("%s/%s/config.yml", home, serviceName))
	}
	return paths
}

func envSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", serviceName),
		fmt.Sprintf("./.env.%s", serviceName),
		"./.env",
		"../.env",
	}
}

// LoaderConfig holds optional file overrides.
type LoaderConfig struct {
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into the provided cfg struct.
// The YAML file is read first, a .env file is loaded into the process
// environment, then CLOUDBATCH_* variables override file values.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	fs := osFileSystem{}
	return loadFromResolvedFiles(serviceName, cfg, resolveFiles(fs, serviceName, lc), fs)
}

func loadFromResolvedFiles(serviceName string, cfg interface{}, files resolvedFiles, fs fileSystem) error {
	v := viper.New()

	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}

	bindPrefixedEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// bindPrefixedEnv copies CLOUDBATCH_* variables into v under every nested
// key shape they could denote.
func bindPrefixedEnv(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, EnvPrefix)) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants creates the candidate viper keys for an env var.
// Examples:
//
//	TRANSPORT_TIMEOUT     -> [transport_timeout, transport.timeout]
//	TRANSPORT_STORAGE_URL -> [transport_storage_url, transport.storage.url, transport.storage_url]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
