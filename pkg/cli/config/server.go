package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr         string
	WriteTimeout time.Duration
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("SHEETSHIM_ADDR"),
		},
		&cli.DurationFlag{
			Name:        "write-timeout",
			Usage:       "Upper bound for serving one request, including the conversion",
			Value:       2 * time.Minute,
			Destination: &c.WriteTimeout,
			Sources:     cli.EnvVars("SHEETSHIM_WRITE_TIMEOUT"),
		},
	}
}
