package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-arena/internal/auth"
	"github.com/pixil98/go-errors"
)

type AuthConfig struct {
	Secret    string `json:"secret,omitempty"`
	SecretEnv string `json:"secret_env,omitempty"`
}

func (c *AuthConfig) validate() error {
	el := errors.NewErrorList()

	switch {
	case c.Secret != "" && c.SecretEnv != "":
		el.Add(fmt.Errorf("auth: only one of secret or secret_env may be set"))
	case c.Secret == "" && c.SecretEnv == "":
		el.Add(fmt.Errorf("auth: secret or secret_env is required"))
	case c.SecretEnv != "" && os.Getenv(c.SecretEnv) == "":
		el.Add(fmt.Errorf("auth: environment variable %s is not set", c.SecretEnv))
	}

	return el.Err()
}

// secret returns the token signing key.
func (c *AuthConfig) secret() []byte {
	if c.SecretEnv != "" {
		return []byte(os.Getenv(c.SecretEnv))
	}
	return []byte(c.Secret)
}

func (c *AuthConfig) buildVerifier(dir auth.Directory) *auth.Verifier {
	return auth.NewVerifier(c.secret(), dir)
}
