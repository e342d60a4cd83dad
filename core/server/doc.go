// Package server holds the HTTP server configuration.
//
// # Configuration
//
// The Config struct defines the HTTP port, the API key protecting the API and
// request limits. The start command turns it into a fiber.Config.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings.
package server
