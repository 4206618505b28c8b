package salesforce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionAuthenticator_GetToken(t *testing.T) {
	m := new(HttpClientMock)
	s := NewSessionAuthenticator("session-token", "https://example.my.salesforce.com/", WithHttpClient(m))

	got, err := s.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &AccessToken{
		AccessToken: "session-token",
		InstanceURL: "https://example.my.salesforce.com",
	}, got)
	m.AssertNotCalled(t, "Do", mock.Anything)
}

func TestSessionAuthenticator_UserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/oauth2/userinfo", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer session-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Bad_OAuth_Token"))
			return
		}
		_, _ = w.Write([]byte(`{"user_id":"005","email":"test@company.com","updated_at":"2023-06-14T10:16:06Z"}`))
	}))
	defer srv.Close()

	t.Run("valid session  user info returned", func(t *testing.T) {
		s := NewSessionAuthenticator("session-token", srv.URL, WithLogger(zap.NewNop()))

		got, err := s.UserInfo(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "005", got.UserID)
		assert.Equal(t, "test@company.com", got.Email)
	})

	t.Run("invalid session  session failure with text body", func(t *testing.T) {
		s := NewSessionAuthenticator("expired", srv.URL)

		_, err := s.UserInfo(context.Background())

		var sessionErr SessionFailureError
		require.ErrorAs(t, err, &sessionErr)
		assert.Equal(t, http.StatusUnauthorized, sessionErr.Response.StatusCode)
		assert.Equal(t, "Bad_OAuth_Token", *sessionErr.Response.Body)
	})

	t.Run("session authenticator builds a client without network calls", func(t *testing.T) {
		m := new(HttpClientMock)
		c, err := NewClient(context.Background(), "59.0", NewSessionAuthenticator("session-token", srv.URL), WithHttpClient(m))

		require.NoError(t, err)
		assert.Equal(t, srv.URL, c.InstanceURL())
		m.AssertNotCalled(t, "Do", mock.Anything)
	})
}
