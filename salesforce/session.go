package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// SessionAuthenticator uses a token obtained elsewhere, e.g. from a logged in user's session
type SessionAuthenticator struct {
	client      HttpClient
	accessToken string
	instanceUrl string
	log         *zap.Logger
}

func NewSessionAuthenticator(accessToken, instanceUrl string, opts ...Option) *SessionAuthenticator {
	o := clientOptions{client: http.DefaultClient, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &SessionAuthenticator{
		client:      o.client,
		accessToken: accessToken,
		instanceUrl: strings.TrimSuffix(instanceUrl, "/"),
		log:         o.log.Named("SalesforceSession"),
	}
}

// GetToken returns the held token without any network call
func (s *SessionAuthenticator) GetToken(_ context.Context) (*AccessToken, error) {
	return &AccessToken{
		AccessToken: s.accessToken,
		InstanceURL: s.instanceUrl,
	}, nil
}

// UserInfo fetches the userinfo document for the session's user.
// A non 200 response is returned as a SessionFailureError holding the body as text.
func (s *SessionAuthenticator) UserInfo(ctx context.Context) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.instanceUrl+"/services/oauth2/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create salesforce request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Accept", "application/json")

	r, err := roundTrip(s.client, s.log, req)
	if err != nil {
		return nil, err
	}
	if r.status != http.StatusOK {
		return nil, SessionFailureError{Response: envelope(r, &r.body)}
	}
	return decodeBody[UserInfo](r.status, r.body)
}
