package salesforce

import (
	"encoding/json"
	"net/http"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"
)

// Response wraps the result of every call, successful or not.
// Body is nil when the response carried no body for the expected type.
type Response[T any] struct {
	Header     http.Header
	StatusCode int
	Body       *T
}

// rawResponse is a response whose body has been read but not yet decoded
type rawResponse struct {
	header http.Header
	status int
	body   string
}

var validate = validator.New()

// decodeBody parses body as T. Struct types are also checked against their
// validate tags, so a well formed document missing required fields is rejected.
// Any failure keeps the raw body in an UnexpectedBodyError.
func decodeBody[T any](status int, body string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, UnexpectedBodyError{StatusCode: status, Body: body, Err: err}
	}
	if reflect.TypeFor[T]().Kind() == reflect.Struct {
		if err := validate.Struct(&v); err != nil {
			return nil, UnexpectedBodyError{StatusCode: status, Body: body, Err: err}
		}
	}
	return &v, nil
}

// isEmpty reports whether T is the empty struct, used where a call has no meaningful body
func isEmpty[T any]() bool {
	_, ok := any((*T)(nil)).(*struct{})
	return ok
}

func envelope[T any](r rawResponse, body *T) Response[T] {
	return Response[T]{Header: r.header, StatusCode: r.status, Body: body}
}

// classify maps r onto a typed Response when its status is one of expected,
// otherwise onto an APIFailureError carrying the decoded error list.
func classify[T any](r rawResponse, expected ...int) (*Response[T], error) {
	if !slices.Contains(expected, r.status) {
		errs, err := decodeBody[[]ApiError](r.status, r.body)
		if err != nil {
			return nil, err
		}
		return nil, APIFailureError{Response: envelope(r, errs)}
	}

	if isEmpty[T]() && r.body == "" {
		resp := envelope[T](r, nil)
		return &resp, nil
	}
	body, err := decodeBody[T](r.status, r.body)
	if err != nil {
		return nil, err
	}
	resp := envelope(r, body)
	return &resp, nil
}
