// Package logger wraps zerolog with service and component tagging.
//
// Create one logger at startup and derive component loggers from it:
//
//	log := logger.NewFromEnv("stackdebt")
//	resLog := log.WithComponent("resilience")
//	resLog.Warn("Attempt failed, retrying", map[string]interface{}{"service": "github_api"})
package logger
