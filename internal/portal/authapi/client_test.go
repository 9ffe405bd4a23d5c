package authapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-portal/internal/portal/authapi"
)

func TestClientLogin(t *testing.T) {
	t.Parallel()

	var received authapi.Credentials
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		defer r.Body.Close()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-123", "message": "Login successful!"})
	}))
	t.Cleanup(ts.Close)

	client, err := authapi.NewClient(ts.URL+"/api", ts.Client())
	require.NoError(t, err)

	resp, err := client.Login(context.Background(), authapi.Credentials{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "tok-123", resp.Token)
	require.Equal(t, "ada@example.com", received.Email)
	require.Equal(t, "secret", received.Password)
}

func TestClientLoginServerError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"loginErr": "Wrong password", "message": "Check your email"})
	}))
	t.Cleanup(ts.Close)

	client, err := authapi.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = client.Login(context.Background(), authapi.Credentials{Email: "a@b.c", Password: "x"})
	se, ok := authapi.AsServerError(err)
	require.True(t, ok, "expected ServerError, got %v", err)
	require.Equal(t, http.StatusBadRequest, se.Status)
	require.Equal(t, "Wrong password", se.Body.LoginErr)
	require.Equal(t, "Check your email", se.Body.Field("message"))
	require.False(t, authapi.IsTransport(err))
}

func TestClientNonJSONErrorBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	client, err := authapi.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = client.Register(context.Background(), authapi.Registration{Name: "Ada"})
	se, ok := authapi.AsServerError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, se.Status)
	require.Contains(t, se.Raw, "bad gateway")
	require.Contains(t, err.Error(), "bad gateway")
}

func TestClientRegister(t *testing.T) {
	t.Parallel()

	var received authapi.Registration
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)
		defer r.Body.Close()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Registration successful!"})
	}))
	t.Cleanup(ts.Close)

	client, err := authapi.NewClient(ts.URL+"/", ts.Client())
	require.NoError(t, err)

	resp, err := client.Register(context.Background(), authapi.Registration{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "Registration successful!", resp.Message)
	require.Equal(t, authapi.Registration{Name: "Ada", Email: "ada@example.com", Password: "pw"}, received)
}

func TestClientLoginWithoutToken(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(ts.Close)

	client, err := authapi.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = client.Login(context.Background(), authapi.Credentials{})
	require.ErrorIs(t, err, authapi.ErrMalformedResponse)
}

func TestClientTransportError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := authapi.NewClient(url, nil)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), authapi.Credentials{Email: "a@b.c"})
	require.Error(t, err)
	require.True(t, authapi.IsTransport(err))
	_, isServer := authapi.AsServerError(err)
	require.False(t, isServer)
}

func TestClientHonoursCancellation(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(ts.Close)

	client, err := authapi.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Login(ctx, authapi.Credentials{})
	require.True(t, authapi.IsTransport(err))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := authapi.NewClient("", nil)
	require.Error(t, err)
	_, err = authapi.NewClient("/relative", nil)
	require.Error(t, err)
}
