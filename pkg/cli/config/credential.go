package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Credential is a Nextcloud user and app password for commands run outside of AppAPI
type Credential struct {
	User     string
	Password string `masq:"secret"`
}

// Flags returns CLI flags for the credential
func (c *Credential) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "Nextcloud user id",
			Required:    true,
			Destination: &c.User,
			Sources:     cli.EnvVars("SHEETSHIM_USER"),
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Nextcloud app password",
			Required:    true,
			Destination: &c.Password,
			Sources:     cli.EnvVars("SHEETSHIM_PASSWORD"),
		},
	}
}

// Session returns the session that authenticates as the user with basic auth
func (c *Credential) Session() (*model.Session, error) {
	if c.User == "" {
		return nil, goerr.New("user is required")
	}
	if c.Password == "" {
		return nil, goerr.New("password is required", goerr.V("user", c.User))
	}

	return &model.Session{
		UserID:   c.User,
		Password: c.Password,
	}, nil
}
