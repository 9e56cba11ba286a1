// Package logger provides structured logging for livequery using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Every livequery component accepts an optional
// *Logger and otherwise falls back to the global logger tagged with its
// component name.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("eventsource")
//	log.Info("connected", logger.Fields(logger.FieldSubscriptionID, id))
package logger
