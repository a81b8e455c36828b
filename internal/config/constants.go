package config

import "time"

// Application constants
const (
	// Application Info
	AppName     = "CORD Pulse"
	ServiceName = "cordpulse"

	// Dashboard
	DashboardTitle    = "CORD-19 Metadata Analysis Dashboard"
	DashboardSubtitle = "Explore the COVID-19 Open Research Dataset metadata interactively."

	// Dataset
	DefaultDatasetPath   = "metadata.csv"
	DatasetCacheDuration = 1 * time.Hour
	DefaultSampleSize    = 10

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultRequestTimeout = 60 * time.Second

	// WebSocket
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketMaxMessageSize  = 4096
	WebSocketWriteWait       = 10 * time.Second
	WebSocketPongWait        = 60 * time.Second

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
