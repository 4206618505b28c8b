package salesforce

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes name for the duration of the test
func unsetEnv(t *testing.T, name string) {
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

func TestLoginClaimsFromEnv(t *testing.T) {
	t.Run("variables set  claims returned", func(t *testing.T) {
		t.Setenv("SALESFORCE_CLIENT_ID", "sf-client-id")
		t.Setenv("SALESFORCE_USER", "test@company.com")

		got, err := LoginClaimsFromEnv(AuthorizationServerLive)

		require.NoError(t, err)
		assert.Equal(t, LoginClaims{
			Issuer:   "sf-client-id",
			Audience: "https://login.salesforce.com",
			Subject:  "test@company.com",
		}, got)
	})

	t.Run("user missing  missing env error", func(t *testing.T) {
		t.Setenv("SALESFORCE_CLIENT_ID", "sf-client-id")
		unsetEnv(t, "SALESFORCE_USER")

		_, err := LoginClaimsFromEnv(AuthorizationServerLive)

		assert.Equal(t, MissingEnvConfigError{Name: "SALESFORCE_USER"}, err)
	})
}

func TestJWTAuthenticatorFromEnv(t *testing.T) {
	_, key := privateKey(t)
	claims := NewLoginClaims("sf-client-id", AuthorizationServerTest, "test@company.com")

	t.Run("variables set  authenticator logs in", func(t *testing.T) {
		ts := newTokenServer(t)
		t.Setenv("SALESFORCE_DOMAIN", ts.URL)
		t.Setenv("SALESFORCE_KEY", string(key))

		a, err := JWTAuthenticatorFromEnv(claims)
		require.NoError(t, err)

		tok, err := a.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ts.URL, tok.InstanceURL)
	})

	t.Run("key missing  missing env error", func(t *testing.T) {
		t.Setenv("SALESFORCE_DOMAIN", "company.my.salesforce.com")
		unsetEnv(t, "SALESFORCE_KEY")

		_, err := JWTAuthenticatorFromEnv(claims)

		var envErr MissingEnvConfigError
		require.ErrorAs(t, err, &envErr)
		assert.Equal(t, "SALESFORCE_KEY", envErr.Name)
	})
}

func TestLoadEnvConfig(t *testing.T) {
	for _, name := range []string{envClientId, envUser, envDomain, envKey} {
		unsetEnv(t, name)
	}
	_, key := privateKey(t)
	ts := newTokenServer(t)

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"SALESFORCE_CLIENT_ID=sf-client-id\n"+
			"SALESFORCE_USER=test@company.com\n"+
			"SALESFORCE_DOMAIN="+ts.URL+"\n"), 0o600))
	t.Setenv("SALESFORCE_KEY", string(key))

	cfg, err := LoadEnvConfig(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "sf-client-id", cfg.ClientId)
	assert.Equal(t, "test@company.com", cfg.User)
	assert.Equal(t, ts.URL, cfg.Domain)

	a, err := cfg.Authenticator(AuthorizationServerTest)
	require.NoError(t, err)
	c, err := NewClient(context.Background(), "59.0", a)
	require.NoError(t, err)
	assert.Equal(t, ts.URL, c.InstanceURL())
}

func TestLoadEnvConfig_missing(t *testing.T) {
	for _, name := range []string{envClientId, envUser, envDomain, envKey} {
		unsetEnv(t, name)
	}

	_, err := LoadEnvConfig(filepath.Join(t.TempDir(), "none.env"))

	assert.ErrorAs(t, err, &MissingEnvConfigError{})
}
