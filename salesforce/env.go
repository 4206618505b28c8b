package salesforce

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	envClientId = "SALESFORCE_CLIENT_ID"
	envUser     = "SALESFORCE_USER"
	envDomain   = "SALESFORCE_DOMAIN"
	envKey      = "SALESFORCE_KEY"
)

// EnvConfig holds the JWT login settings read from the environment
type EnvConfig struct {
	ClientId string
	User     string
	Domain   string
	Key      string
}

// LoadEnvConfig reads the SALESFORCE_* variables. Any .env files given (or ./.env by default)
// are loaded first if they exist; variables already set in the process take precedence.
func LoadEnvConfig(filenames ...string) (*EnvConfig, error) {
	_ = godotenv.Load(filenames...)

	cfg := &EnvConfig{}
	for _, v := range []struct {
		name string
		dst  *string
	}{
		{envClientId, &cfg.ClientId},
		{envUser, &cfg.User},
		{envDomain, &cfg.Domain},
		{envKey, &cfg.Key},
	} {
		val, err := requireEnv(v.name)
		if err != nil {
			return nil, err
		}
		*v.dst = val
	}
	return cfg, nil
}

// Authenticator builds a JWTAuthenticator for the configured user
func (c *EnvConfig) Authenticator(aud AuthorizationServer, opts ...Option) (*JWTAuthenticator, error) {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return NewJWTAuthenticator(JWTParams{
		HttpClient: o.client,
		Instance:   c.Domain,
		Claims:     NewLoginClaims(c.ClientId, aud, c.User),
		Key:        []byte(c.Key),
		Logger:     o.log,
	})
}

func requireEnv(name string) (string, error) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", MissingEnvConfigError{Name: name}
	}
	return val, nil
}
