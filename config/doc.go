// Package config loads service configuration from config.yml, .env files,
// and STACKDEBT_* environment variables, seeds the per-upstream resilience
// defaults, and validates the result at startup.
package config
