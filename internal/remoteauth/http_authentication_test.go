package remoteauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/enquete-web/internal/domain"
	"finitefield.org/enquete-web/internal/observability"
	"finitefield.org/enquete-web/internal/remoteauth"
)

func TestHTTPAuthenticationSuccess(t *testing.T) {
	t.Parallel()

	var received domain.AuthenticationParams
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		defer r.Body.Close()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "token-123", "name": "Ana"})
	}))
	t.Cleanup(ts.Close)

	auth, err := remoteauth.New(ts.URL+"/api", ts.Client())
	require.NoError(t, err)

	account, err := auth.Auth(context.Background(), domain.AuthenticationParams{Email: "foo@bar.com", Password: "abc123"})
	require.NoError(t, err)
	require.Equal(t, "token-123", account.AccessToken)
	require.Equal(t, "Ana", account.Name)
	require.Equal(t, domain.AuthenticationParams{Email: "foo@bar.com", Password: "abc123"}, received)
}

func TestHTTPAuthenticationInvalidCredentials(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"<b>Unauthorized</b>"}`))
	}))
	t.Cleanup(ts.Close)

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))

	auth, err := remoteauth.New(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = auth.Auth(ctx, domain.AuthenticationParams{Email: "foo@bar.com", Password: "wrong"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.Equal(t, "Credenciais inválidas", err.Error())

	entries := logs.FilterMessage("auth rejected credentials").All()
	require.Len(t, entries, 1)
	require.Equal(t, "Unauthorized", entries[0].ContextMap()["backend_message"])
	require.Equal(t, "xxx@xxx.xxx", entries[0].ContextMap()["email"])
}

func TestHTTPAuthenticationUnexpected(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"bad request": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		},
		"empty token": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"accessToken":""}`))
		},
	}

	for name, handler := range cases {
		handler := handler
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ts := httptest.NewServer(handler)
			t.Cleanup(ts.Close)

			auth, err := remoteauth.New(ts.URL, ts.Client())
			require.NoError(t, err)

			_, err = auth.Auth(context.Background(), domain.AuthenticationParams{Email: "foo@bar.com", Password: "abc123"})
			require.ErrorIs(t, err, domain.ErrUnexpected)
		})
	}
}

type failingClient struct{}

func (failingClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestHTTPAuthenticationTransportError(t *testing.T) {
	t.Parallel()

	auth, err := remoteauth.New("http://auth.invalid", failingClient{})
	require.NoError(t, err)

	_, err = auth.Auth(context.Background(), domain.AuthenticationParams{Email: "foo@bar.com", Password: "abc123"})
	require.ErrorIs(t, err, domain.ErrUnexpected)
}

func TestNewRequiresAbsoluteURL(t *testing.T) {
	t.Parallel()

	_, err := remoteauth.New("", nil)
	require.Error(t, err)

	_, err = remoteauth.New("/relative", nil)
	require.Error(t, err)
}
