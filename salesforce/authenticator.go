package salesforce

import (
	"context"
	"time"
)

// Authenticator produces the access token and instance url a Client is bound to.
// Implemented by JWTAuthenticator, SessionAuthenticator and TokenCache.
type Authenticator interface {
	GetToken(ctx context.Context) (*AccessToken, error)
	UserInfo(ctx context.Context) (*UserInfo, error)
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ Authenticator = (*SessionAuthenticator)(nil)
	_ Authenticator = (*TokenCache)(nil)
)

// AuthorizationServer selects the login host used as the audience of a JWT assertion
type AuthorizationServer int

const (
	AuthorizationServerLive AuthorizationServer = iota
	AuthorizationServerTest
)

func (a AuthorizationServer) String() string {
	if a == AuthorizationServerTest {
		return "https://test.salesforce.com"
	}
	return "https://login.salesforce.com"
}

type AccessToken struct {
	AccessToken string `json:"access_token" validate:"required"`
	Scope       string `json:"scope"`
	InstanceURL string `json:"instance_url" validate:"required"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type"`
}

type UserInfo struct {
	Sub                         string    `json:"sub"`
	UserID                      string    `json:"user_id"`
	OrganizationID              string    `json:"organization_id"`
	PreferredUsername           string    `json:"preferred_username"`
	Nickname                    string    `json:"nickname"`
	Name                        string    `json:"name"`
	Email                       string    `json:"email"`
	EmailVerified               bool      `json:"email_verified"`
	GivenName                   string    `json:"given_name"`
	FamilyName                  string    `json:"family_name"`
	ZoneInfo                    string    `json:"zoneinfo"`
	Profile                     string    `json:"profile"`
	Picture                     string    `json:"picture"`
	PhoneNumber                 string    `json:"phone_number"`
	PhoneNumberVerified         bool      `json:"phone_number_verified"`
	IsSalesforceIntegrationUser bool      `json:"is_salesforce_integration_user"`
	Active                      bool      `json:"active"`
	UserType                    string    `json:"user_type"`
	Language                    string    `json:"language"`
	Locale                      string    `json:"locale"`
	UtcOffset                   int64     `json:"utcOffset"`
	UpdatedAt                   time.Time `json:"updated_at"`
}
