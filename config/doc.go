// Package config loads livequery configuration from files and the
// environment.
//
// It uses Viper to read a config.yml and godotenv to read a .env file, both
// searched in standard locations relative to the working directory, then binds
// environment variables carrying the configured prefix:
//
//	var cfg client.Config
//	err := config.LoadConfig("livequery", &cfg, config.WithEnvPrefix("LIVEQUERY"))
//
// LIVEQUERY_EVENTSOURCE_IDLE_TIMEOUT=30s overrides eventsource.idle_timeout.
package config
