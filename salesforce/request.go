package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends requests to the Salesforce data api.
// The instance url and bearer token are captured once in NewClient and never refreshed;
// build a new Client to re-authenticate.
type Client struct {
	client      HttpClient
	instanceUrl string
	version     string
	bearer      string
	log         *zap.Logger
}

type Option func(*clientOptions)

type clientOptions struct {
	client HttpClient
	log    *zap.Logger
}

func WithHttpClient(c HttpClient) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.client = c
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *clientOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// NewClient acquires a token from auth and returns a Client bound to it.
// version is the api version without the leading "v", e.g. "59.0".
func NewClient(ctx context.Context, version string, auth Authenticator, opts ...Option) (*Client, error) {
	if len(version) == 0 {
		return nil, fmt.Errorf("salesforce api version needs to be provided")
	}
	if auth == nil {
		return nil, fmt.Errorf("authenticator needs to be provided")
	}

	o := clientOptions{client: http.DefaultClient, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	tok, err := auth.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:      o.client,
		instanceUrl: strings.TrimSuffix(tok.InstanceURL, "/"),
		version:     version,
		bearer:      tok.AccessToken,
		log:         o.log.Named("SalesforceClient"),
	}, nil
}

func (c *Client) InstanceURL() string {
	return c.instanceUrl
}

func (c *Client) Version() string {
	return c.version
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s/services/data/v%s/sobjects/%s", c.instanceUrl, c.version, path)
}

// send performs a single round trip and reads the whole body.
// A nil payload sends no body; anything else is sent as json.
func (c *Client) send(ctx context.Context, method, reqUrl string, payload any) (rawResponse, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return rawResponse{}, fmt.Errorf("unable to create salesforce payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqUrl, body)
	if err != nil {
		return rawResponse{}, fmt.Errorf("unable to create salesforce request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return roundTrip(c.client, c.log, req)
}

// roundTrip is shared by the Client and the authenticators
func roundTrip(client HttpClient, log *zap.Logger, req *http.Request) (rawResponse, error) {
	log.Debug("sending salesforce request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := client.Do(req)
	if err != nil {
		log.Debug("salesforce request failed", zap.String("method", req.Method), zap.Error(err))
		return rawResponse{}, TransportError{Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResponse{}, TransportError{Err: err}
	}

	log.Debug("received salesforce response",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode))

	return rawResponse{header: resp.Header, status: resp.StatusCode, body: string(b)}, nil
}

// DescribeObjects lists every object type available to the user
func (c *Client) DescribeObjects(ctx context.Context) (*Response[ObjectDescriptionsResponse], error) {
	r, err := c.send(ctx, http.MethodGet, c.url(""), nil)
	if err != nil {
		return nil, err
	}
	return classify[ObjectDescriptionsResponse](r, http.StatusOK)
}

// DescribeObject describes a single object type, e.g. "Lead"
func (c *Client) DescribeObject(ctx context.Context, name string) (*Response[ObjectDescriptionResponse], error) {
	r, err := c.send(ctx, http.MethodGet, c.url(name), nil)
	if err != nil {
		return nil, err
	}
	return classify[ObjectDescriptionResponse](r, http.StatusOK)
}

// CreateObject posts record as a new object of type name
func (c *Client) CreateObject(ctx context.Context, name string, record any) (*Response[CreateObjectResponse], error) {
	r, err := c.send(ctx, http.MethodPost, c.url(name), record)
	if err != nil {
		return nil, err
	}
	return classify[CreateObjectResponse](r, http.StatusCreated)
}

// GetObject reads a single record, decoding it as E.
// Fields of E tagged `validate:"required"` must be present or an UnexpectedBodyError is returned.
func GetObject[E any](ctx context.Context, c *Client, name, id string) (*Response[E], error) {
	r, err := c.send(ctx, http.MethodGet, c.url(name+"/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	return classify[E](r, http.StatusOK)
}

// Query salesforce in a generic way
// - the soql string is passed through untouched apart from url encoding
// - use QueryMore with NextRecordsURL while Done is false to page through results
// - record fields of E tagged `validate:"required"` must be present, untagged types accept any json object
func Query[E any](ctx context.Context, c *Client, q string) (*Response[QueryResponse[E]], error) {
	r, err := c.send(ctx, http.MethodGet, c.url("query/?q="+url.QueryEscape(q)), nil)
	if err != nil {
		return nil, err
	}
	return classify[QueryResponse[E]](r, http.StatusOK)
}

// QueryMore fetches the next page of a query using the nextRecordsUrl of the previous page
func QueryMore[E any](ctx context.Context, c *Client, nextRecordsUrl string) (*Response[QueryResponse[E]], error) {
	if len(nextRecordsUrl) == 0 {
		return nil, fmt.Errorf("nextRecordsUrl needs to be provided")
	}
	r, err := c.send(ctx, http.MethodGet, c.instanceUrl+nextRecordsUrl, nil)
	if err != nil {
		return nil, err
	}
	return classify[QueryResponse[E]](r, http.StatusOK)
}

// patch sends record and accepts 200, 201 or 204.
// An empty body is only valid when U is the empty struct.
func patch[U any](ctx context.Context, c *Client, path string, record any) (*Response[U], error) {
	r, err := c.send(ctx, http.MethodPatch, c.url(path), record)
	if err != nil {
		return nil, err
	}
	return classify[U](r, http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

// UpdateObject patches the record with the given id. Salesforce normally answers 204 with no body,
// in which case the returned Body is nil.
func (c *Client) UpdateObject(ctx context.Context, name, id string, record any) (*Response[struct{}], error) {
	return patch[struct{}](ctx, c, name+"/"+url.PathEscape(id), record)
}

// UpsertObject creates or updates the record keyed by an external id field
func (c *Client) UpsertObject(ctx context.Context, name string, id ExternalID, record any) (*Response[CreateObjectResponse], error) {
	return patch[CreateObjectResponse](ctx, c, name+"/"+url.PathEscape(id.Field)+"/"+url.PathEscape(id.Value), record)
}

// DeleteObject deletes the record with the given id
func (c *Client) DeleteObject(ctx context.Context, name, id string) (*Response[struct{}], error) {
	r, err := c.send(ctx, http.MethodDelete, c.url(name+"/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	if r.status != http.StatusNoContent {
		return classify[struct{}](r, http.StatusNoContent)
	}
	resp := envelope(r, &struct{}{})
	return &resp, nil
}
