package types

// Version is the application version, overridden at build time via -ldflags.
var Version = "dev"

// ServiceName is reported by the heartbeat endpoint and used as the Sentry server name.
const ServiceName = "sheetshim"
