package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Nextcloud holds the storage backend configuration
type Nextcloud struct {
	URL        string
	Timeout    time.Duration
	ConfigFile string
}

// fileConfig is the layout of the TOML configuration file
type fileConfig struct {
	Nextcloud struct {
		URL     string `toml:"url"`
		Timeout string `toml:"timeout"`
	} `toml:"nextcloud"`
}

// Flags returns CLI flags for the storage backend
func (c *Nextcloud) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "nextcloud-url",
			Usage:       "Base URL of the Nextcloud server (e.g. https://cloud.example.com)",
			Destination: &c.URL,
			Sources:     cli.EnvVars("SHEETSHIM_NEXTCLOUD_URL"),
		},
		&cli.DurationFlag{
			Name:        "nextcloud-timeout",
			Usage:       "Timeout of each request to Nextcloud (default 30s)",
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("SHEETSHIM_NEXTCLOUD_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "TOML configuration file",
			Destination: &c.ConfigFile,
			Sources:     cli.EnvVars("SHEETSHIM_CONFIG"),
		},
	}
}

// Load fills settings not given by flags or environment from ConfigFile, then checks
// that the backend URL is known
func (c *Nextcloud) Load() error {
	if c.ConfigFile != "" {
		raw, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return goerr.Wrap(err, "failed to read config file", goerr.V("path", c.ConfigFile))
		}

		var file fileConfig
		if err := toml.Unmarshal(raw, &file); err != nil {
			return goerr.Wrap(err, "failed to parse config file", goerr.V("path", c.ConfigFile))
		}

		if c.URL == "" {
			c.URL = file.Nextcloud.URL
		}
		if c.Timeout == 0 && file.Nextcloud.Timeout != "" {
			timeout, err := time.ParseDuration(file.Nextcloud.Timeout)
			if err != nil {
				return goerr.Wrap(err, "invalid nextcloud timeout in config file",
					goerr.V("path", c.ConfigFile),
					goerr.V("timeout", file.Nextcloud.Timeout))
			}
			c.Timeout = timeout
		}
	}

	if c.URL == "" {
		return goerr.New("nextcloud URL is required (--nextcloud-url, SHEETSHIM_NEXTCLOUD_URL or config file)")
	}
	if c.Timeout < 0 {
		return goerr.New("nextcloud timeout must not be negative", goerr.V("timeout", c.Timeout))
	}

	return nil
}
