package salesforce

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, isEmpty[struct{}]())
	assert.False(t, isEmpty[string]())
	assert.False(t, isEmpty[CreateObjectResponse]())
	assert.False(t, isEmpty[*struct{}]())
}

func TestDecodeBody(t *testing.T) {
	t.Run("valid body  value returned", func(t *testing.T) {
		got, err := decodeBody[LoginError](400, `{"error":"invalid_grant","error_description":"user hasn't approved this consumer"}`)
		require.NoError(t, err)
		assert.Equal(t, &LoginError{Error: "invalid_grant", ErrorDescription: "user hasn't approved this consumer"}, got)
	})

	t.Run("json of the wrong shape  raw body kept", func(t *testing.T) {
		_, err := decodeBody[[]ApiError](500, `{"message":"oops"}`)
		var bodyErr UnexpectedBodyError
		require.ErrorAs(t, err, &bodyErr)
		assert.Equal(t, `{"message":"oops"}`, bodyErr.Body)
		assert.Equal(t, 500, bodyErr.StatusCode)
	})

	t.Run("required field missing  raw body kept", func(t *testing.T) {
		_, err := decodeBody[AccessToken](200, `{"scope":"api"}`)
		var bodyErr UnexpectedBodyError
		require.ErrorAs(t, err, &bodyErr)
		assert.Equal(t, `{"scope":"api"}`, bodyErr.Body)
	})

	t.Run("non struct types are not validated", func(t *testing.T) {
		got, err := decodeBody[map[string]any](200, `{"a":1}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, *got)
	})
}

func TestClassify(t *testing.T) {
	header := http.Header{"X-Test": {"1"}}

	t.Run("expected status  typed body", func(t *testing.T) {
		got, err := classify[ObjectDescription](rawResponse{header: header, status: 200, body: `{"name":"Lead","label":"Lead"}`}, 200)
		require.NoError(t, err)
		assert.Equal(t, header, got.Header)
		assert.Equal(t, &ObjectDescription{Name: "Lead", Label: "Lead"}, got.Body)
	})

	t.Run("empty body for empty struct  no body", func(t *testing.T) {
		got, err := classify[struct{}](rawResponse{status: 204}, 200, 204)
		require.NoError(t, err)
		assert.Nil(t, got.Body)
	})

	t.Run("empty body for other types  unexpected body", func(t *testing.T) {
		_, err := classify[ObjectDescription](rawResponse{status: 204}, 204)
		assert.ErrorAs(t, err, &UnexpectedBodyError{})
	})

	t.Run("unexpected status  api failure", func(t *testing.T) {
		_, err := classify[ObjectDescription](rawResponse{header: header, status: 401, body: `[{"errorCode":"INVALID_SESSION_ID","message":"Session expired or invalid"}]`}, 200)
		var apiErr APIFailureError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, header, apiErr.Response.Header)
		assert.Equal(t, &[]ApiError{{ErrorCode: "INVALID_SESSION_ID", Message: "Session expired or invalid"}}, apiErr.Response.Body)
		assert.Equal(t, "api request failed with status 401: INVALID_SESSION_ID: Session expired or invalid", apiErr.Error())
	})
}
