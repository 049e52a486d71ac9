// Package config loads cloudbatch configuration.
//
// It uses Viper to read a YAML file and godotenv to load an optional .env
// file. Variables prefixed with CLOUDBATCH_ override file values using
// underscore-separated paths (e.g., CLOUDBATCH_TRANSPORT_TIMEOUT=5s).
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("cloudbatch", &cfg, config.WithConfigFile(path))
package config
