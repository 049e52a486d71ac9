// Package logger provides structured logging for cloudbatch using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("batch")
//	log.Debug("stage drained", logger.Fields("stage", 0, "handles", 12))
package logger
