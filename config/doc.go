// Package config loads service configuration with Viper.
//
// Configuration is read from config.yml (an explicit path, or the first one
// found in the working directory, ./config, ./cmd/<service>, the user config
// dir and /etc/<service>), then from an optional .env file, then from
// prefixed environment variables.
//
// # Usage
//
//	var cfg Config
//	err := config.LoadConfig("tuplestream", &cfg, config.WithConfigFile(path))
//
// TUPLESTREAM_BACKEND_BASE_URL overrides backend.base_url.
package config
