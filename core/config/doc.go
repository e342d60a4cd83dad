// Package config provides configuration management for schema-sync.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, limits)
//   - Database: MySQL or SQLite connection details
//   - Cache: Redis holding the published schema fingerprints
//   - Storage: S3/MinIO credentials and the bucket holding definition documents
//   - Log: Logging level and format
//   - Engine: schema namespace, gate namespace, import prefix
//
// Environment keys are the upper-cased section and key joined by an
// underscore, e.g. DATABASE_DRIVER or CACHE_HOST.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
