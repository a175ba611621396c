package config

import "time"

// Default values for configuration.
const (
	// Export defaults. These mirror what the Chatwork web client tolerates:
	// a conservative fixed delay and every room included.
	DefaultHostURL             = "www.chatwork.com"
	DefaultIntervalMs          = 300
	DefaultTargetRoomIDs       = ""
	DefaultExceptRoomIDs       = ""
	DefaultAppendDate          = true
	DefaultAppendUsername      = true
	DefaultDeleteReactions     = false
	DefaultDownloadAttachments = true
	DefaultExportJSON          = false
	DefaultExportXLSX          = false
	DefaultOutputDir           = "export"

	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 15 * time.Second
	DefaultTaskTTL         = 24 * time.Hour
	DefaultCleanupInterval = 1 * time.Hour

	// Logging defaults
	DefaultLogLevel = "info"
)
