// Package logger provides structured logging for httpkit built on zerolog.
//
// Components obtain a tagged logger via WithComponent and log with
// map-based fields:
//
//	log := logger.WithComponent("breaker")
//	log.Info("state changed", logger.Fields("breaker", "payments", "state", "open"))
//
// A process-wide default logger is used unless SetGlobalLogger is called.
package logger
