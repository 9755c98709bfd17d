// Package config loads runtime configuration from multiple sources (YAML files,
// a dotenv file, environment variables, CLI flags) with precedence: CLI flags >
// Environment variables > YAML config > Defaults. Variables from the dotenv file
// never override variables already present in the process environment. It
// exposes strongly typed settings to the rest of the application.
package config
