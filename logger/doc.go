// Package logger provides structured logging built on zerolog.
//
// It supports console and JSON output, level configuration from settings or
// environment, component-scoped loggers, and context enrichment with the
// current scenario and Appium session.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	logger.Init(&settings.Logging)
//	logger.RegisterDefaults()
//
//	log := logger.Get(logger.ComponentAppium)
//	log.Info("session created", logger.Fields(logger.FieldSessionID, id))
package logger
