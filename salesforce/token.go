package salesforce

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cenkalti/backoff/v4"
	"github.com/ellogroup/ello-golang-cache/cache"
	"github.com/ellogroup/ello-golang-cache/driver"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const assertionTtl = 60 * time.Second
const tokenCacheTtl = 58 * time.Minute

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// LoginClaims is the template for the claims of a login assertion.
// The expiry and jti are set each time an assertion is signed.
type LoginClaims struct {
	Issuer   string `validate:"required"`
	Audience string `validate:"required"`
	Subject  string `validate:"required"`
}

// NewLoginClaims builds claims for the connected app clientId logging in as username
func NewLoginClaims(clientId string, aud AuthorizationServer, username string) LoginClaims {
	return LoginClaims{
		Issuer:   clientId,
		Audience: aud.String(),
		Subject:  username,
	}
}

// LoginClaimsFromEnv reads SALESFORCE_CLIENT_ID and SALESFORCE_USER
func LoginClaimsFromEnv(aud AuthorizationServer) (LoginClaims, error) {
	clientId, err := requireEnv(envClientId)
	if err != nil {
		return LoginClaims{}, err
	}
	user, err := requireEnv(envUser)
	if err != nil {
		return LoginClaims{}, err
	}
	return NewLoginClaims(clientId, aud, user), nil
}

// assertionClaims carries aud as a single string, Salesforce rejects the array form
type assertionClaims struct {
	jwt.RegisteredClaims
	Aud string `json:"aud,omitempty"`
}

func (c LoginClaims) sign(pemKey []byte, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return "", AssertionError{Err: fmt.Errorf("error parsing private key: %w", err)}
	}
	j := jwt.NewWithClaims(jwt.SigningMethodRS256, assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Subject:   c.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTtl)),
			ID:        uuid.New().String(),
		},
		Aud: c.Audience,
	})
	tok, err := j.SignedString(key)
	if err != nil {
		return "", AssertionError{Err: err}
	}
	return tok, nil
}

type JWTParams struct {
	HttpClient HttpClient
	// Instance is the login domain, with or without scheme
	Instance string `validate:"required"`
	Claims   LoginClaims
	// Key is a PEM encoded RSA private key, it can also be set later with SetKey or LoadRSAPEM
	Key []byte
	// Backoff retries transport failures and 5xx responses from the token endpoint.
	// Defaults to a single attempt. It is reset per call so should not be shared between goroutines.
	Backoff backoff.BackOff
	Logger  *zap.Logger
}

// JWTAuthenticator logs in with the OAuth 2.0 JWT bearer flow
type JWTAuthenticator struct {
	client   HttpClient
	instance string
	key      []byte
	claims   LoginClaims
	backoff  backoff.BackOff
	log      *zap.Logger
}

func NewJWTAuthenticator(p JWTParams) (*JWTAuthenticator, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}

	a := &JWTAuthenticator{
		client:   p.HttpClient,
		instance: normaliseInstance(p.Instance),
		key:      p.Key,
		claims:   p.Claims,
		backoff:  p.Backoff,
		log:      p.Logger,
	}
	if a.client == nil {
		a.client = http.DefaultClient
	}
	if a.backoff == nil {
		a.backoff = &backoff.StopBackOff{}
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	a.log = a.log.Named("SalesforceJWTAuthenticator")
	return a, nil
}

// JWTAuthenticatorFromEnv reads the login domain from SALESFORCE_DOMAIN and the PEM key from SALESFORCE_KEY
func JWTAuthenticatorFromEnv(claims LoginClaims, opts ...Option) (*JWTAuthenticator, error) {
	domain, err := requireEnv(envDomain)
	if err != nil {
		return nil, err
	}
	key, err := requireEnv(envKey)
	if err != nil {
		return nil, err
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return NewJWTAuthenticator(JWTParams{
		HttpClient: o.client,
		Instance:   domain,
		Claims:     claims,
		Key:        []byte(key),
		Logger:     o.log,
	})
}

func normaliseInstance(instance string) string {
	instance = strings.TrimRight(instance, "/")
	if strings.HasPrefix(instance, "http") {
		return instance
	}
	return "https://" + instance
}

// SetKey replaces the PEM encoded private key. Not safe to call concurrently with GetToken.
func (a *JWTAuthenticator) SetKey(key []byte) *JWTAuthenticator {
	a.key = key
	return a
}

// LoadRSAPEM reads the private key from a PEM file. Not safe to call concurrently with GetToken.
func (a *JWTAuthenticator) LoadRSAPEM(path string) error {
	key, err := ReadKeyFile(path)
	if err != nil {
		return err
	}
	a.key = key
	return nil
}

// GetToken signs a fresh assertion and exchanges it for an access token
func (a *JWTAuthenticator) GetToken(ctx context.Context) (*AccessToken, error) {
	return backoff.RetryWithData[*AccessToken](func() (*AccessToken, error) {
		tok, err := a.obtainToken(ctx)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return tok, err
	}, backoff.WithContext(a.backoff, ctx))
}

func retryable(err error) bool {
	var transport TransportError
	if errors.As(err, &transport) {
		return true
	}
	var login LoginFailureError
	if errors.As(err, &login) {
		return login.Response.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func (a *JWTAuthenticator) obtainToken(ctx context.Context) (*AccessToken, error) {
	assertion, err := a.claims.sign(a.key, time.Now())
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Add("grant_type", jwtBearerGrantType)
	data.Add("assertion", assertion)
	data.Add("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.instance+"/services/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("unable to create salesforce request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	r, err := roundTrip(a.client, a.log, req)
	if err != nil {
		return nil, err
	}
	if r.status != http.StatusOK {
		return nil, a.loginFailure(r)
	}
	return decodeBody[AccessToken](r.status, r.body)
}

// UserInfo logs in and fetches the userinfo document of the subject
func (a *JWTAuthenticator) UserInfo(ctx context.Context) (*UserInfo, error) {
	tok, err := a.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.instance+"/services/oauth2/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create salesforce request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	r, err := roundTrip(a.client, a.log, req)
	if err != nil {
		return nil, err
	}
	if r.status != http.StatusOK {
		return nil, a.loginFailure(r)
	}
	return decodeBody[UserInfo](r.status, r.body)
}

func (a *JWTAuthenticator) loginFailure(r rawResponse) LoginFailureError {
	body, err := decodeBody[LoginError](r.status, r.body)
	if err != nil {
		body = nil
	}
	fields := []zap.Field{zap.Int("status", r.status)}
	if body != nil {
		fields = append(fields, zap.String("error", body.Error), zap.String("description", body.ErrorDescription))
	}
	a.log.Warn("salesforce login failed", fields...)
	return LoginFailureError{Response: envelope(r, body)}
}

// SecretsManagerClient is the part of *secretsmanager.Client used to bootstrap a JWTAuthenticator
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type SecretParams struct {
	HttpClient HttpClient
	SMClient   SecretsManagerClient `validate:"required"`
	SMKey      string               `validate:"required"`
	Backoff    backoff.BackOff
	Logger     *zap.Logger
}

// jwtSecret is the json document stored in secrets manager
type jwtSecret struct {
	BaseUrl          string `json:"baseUrl" validate:"required"`
	Hostname         string `json:"hostname" validate:"required"`
	Username         string `json:"username" validate:"required"`
	ClientId         string `json:"clientId" validate:"required"`
	PrivateKeyBase64 string `json:"privateKeyBase64" validate:"required"`
}

// JWTAuthenticatorFromSecret builds a JWTAuthenticator from credentials held in AWS Secrets Manager.
// hostname is used as the assertion audience, baseUrl as the login domain.
func JWTAuthenticatorFromSecret(ctx context.Context, p SecretParams) (*JWTAuthenticator, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}

	cfgRaw, err := p.SMClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.SMKey),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch credentials from secrets manager: %w", err)
	}
	if cfgRaw.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", p.SMKey)
	}

	cfg := jwtSecret{}
	if err := json.Unmarshal([]byte(*cfgRaw.SecretString), &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse credentials from secrets manager: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("incomplete credentials in secrets manager: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.PrivateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("unable to decode private key: %w", err)
	}

	return NewJWTAuthenticator(JWTParams{
		HttpClient: p.HttpClient,
		Instance:   cfg.BaseUrl,
		Claims: LoginClaims{
			Issuer:   cfg.ClientId,
			Audience: cfg.Hostname,
			Subject:  cfg.Username,
		},
		Key:     key,
		Backoff: p.Backoff,
		Logger:  p.Logger,
	})
}

// TokenCache shares one login between several Clients.
// Tokens are kept for slightly less than the default Salesforce session timeout.
type TokenCache struct {
	auth Authenticator
	c    *cache.KeylessRecordCache[AccessToken]
}

type tokenFetcher struct {
	auth Authenticator
}

func (f tokenFetcher) Fetch(ctx context.Context) (AccessToken, error) {
	tok, err := f.auth.GetToken(ctx)
	if err != nil {
		return AccessToken{}, err
	}
	return *tok, nil
}

// NewTokenCache wraps auth with an async keyless record cache held in memory
func NewTokenCache(auth Authenticator) (*TokenCache, error) {
	if auth == nil {
		return nil, fmt.Errorf("authenticator needs to be provided")
	}
	return &TokenCache{
		auth: auth,
		c: cache.NewKeylessRecordCacheAsync[AccessToken](
			driver.NewMemoryCache[int, cache.RecordCacheItem[AccessToken]](),
			tokenFetcher{auth: auth},
			tokenCacheTtl,
		),
	}, nil
}

func NewTokenCacheWithLogger(auth Authenticator, log *zap.Logger) (*TokenCache, error) {
	if auth == nil {
		return nil, fmt.Errorf("authenticator needs to be provided")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenCache{
		auth: auth,
		c: cache.NewKeylessRecordCacheAsyncWithLogger[AccessToken](
			driver.NewMemoryCache[int, cache.RecordCacheItem[AccessToken]](),
			tokenFetcher{auth: auth},
			tokenCacheTtl,
			log.Named("SalesforceTokenCache"),
		),
	}, nil
}

func (tc *TokenCache) GetToken(ctx context.Context) (*AccessToken, error) {
	tok, err := tc.c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// UserInfo is not cached
func (tc *TokenCache) UserInfo(ctx context.Context) (*UserInfo, error) {
	return tc.auth.UserInfo(ctx)
}
