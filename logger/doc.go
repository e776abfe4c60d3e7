// Package logger provides structured logging for the gears client and the
// reference engine using zerolog.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("gears").WithComponent("builder")
//	log.Info("pipeline submitted", logger.Fields("steps", 4))
//
// Remote-engine severities (debug, verbose, notice, warning) are mapped onto
// zerolog levels by LogAt.
package logger
