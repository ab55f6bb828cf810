package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nuscien/internal/http/errors"
)

func TestReadJSON(t *testing.T) {
	var v struct{ A string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"A":"x","extra":1}`))
	req.Header.Set("Content-Type", "application/json")
	require.NoError(t, ReadJSON(httptest.NewRecorder(), req, &v))
	require.Equal(t, "x", v.A)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	req.Header.Set("Content-Type", "application/json")
	err := ReadJSON(httptest.NewRecorder(), req, &v)
	require.Equal(t, errors.ErrInvalidJSON.Code, errors.FromError(err).Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	err = ReadJSON(httptest.NewRecorder(), req, &v)
	require.Equal(t, http.StatusBadRequest, errors.FromError(err).HTTPStatus)
}

func TestReadLogin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("grant_type=password&username=alice&password=p"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("app", "secret")
	got, err := ReadLogin(httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.Equal(t, "password", got.GrantType)
	require.Equal(t, "alice", got.UserName)
	require.Equal(t, "app", got.ClientID)
	require.Equal(t, "secret", got.ClientSecret)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"grant_type":"client_credentials","client_id":"c","client_secret":"s"}`))
	req.Header.Set("Content-Type", "application/json")
	got, err = ReadLogin(httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.Equal(t, "c", got.ClientID)
}
