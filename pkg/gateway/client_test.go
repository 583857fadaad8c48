package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Credentials{APIURL: srv.URL + "/", APIKey: "secret", InstanceID: "inst-1"})
}

func TestSend_PostsPayloadWithBearer(t *testing.T) {
	var got SendRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/instance/inst-1/send", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"wamid-42","extra":true}`))
	})

	id, err := client.Send(context.Background(), SendRequest{
		Phone:   "5511999990000",
		Message: "hello",
		Media:   &Media{URL: "https://cdn.test/a.png", Type: "image"},
	})

	require.NoError(t, err)
	assert.Equal(t, "wamid-42", id)
	assert.Equal(t, "5511999990000", got.Phone)
	require.NotNil(t, got.Media)
	assert.Equal(t, "image", got.Media.Type)
}

func TestStatusAndQRCode(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instance/inst-1/status":
			_, _ = w.Write([]byte(`{"connected":true,"phone_number":"5511"}`))
		case "/instance/inst-1/qr":
			_, _ = w.Write([]byte(`{"qr_code":"data:image/png;base64,xyz"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "5511", status.PhoneNumber)

	qr, err := client.QRCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,xyz", qr)
}

func TestNon2xxBecomesError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("instance offline"))
	})

	err := client.Restart(context.Background())

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Equal(t, "instance offline", gwErr.Body)
	assert.True(t, IsTemporary(err))
}

func TestClientErrorIsNotTemporary(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, IsTemporary(err))
}

func TestPing_UsesRootStatus(t *testing.T) {
	var path string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	})

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "/status", path)
}

func TestMissingCredentials(t *testing.T) {
	client := NewClient(Credentials{})
	_, err := client.Send(context.Background(), SendRequest{Phone: "1", Message: "x"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.False(t, IsTemporary(err))
}

func TestTimeoutIsEnforced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Credentials{APIURL: srv.URL, InstanceID: "i"}, WithTimeout(20*time.Millisecond))
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsTemporary(err))
}
