package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *HTTP {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", Endpoints{})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestBeginDeviceLink(t *testing.T) {
	tests := []struct {
		name         string
		body         map[string]any
		wantDevice   string
		wantInterval time.Duration
	}{
		{
			name:         "explicit device id",
			body:         map[string]any{"link": "https://emitron.test/link?x=1", "device_id": "dev-1", "interval": 5},
			wantDevice:   "dev-1",
			wantInterval: 5 * time.Second,
		},
		{
			name:         "device id from query",
			body:         map[string]any{"link": "https://emitron.test/link?code=abc"},
			wantDevice:   "abc",
			wantInterval: defaultPollInterval,
		},
		{
			name:         "device id from path",
			body:         map[string]any{"url": "https://emitron.test/device/xyz/"},
			wantDevice:   "xyz",
			wantInterval: defaultPollInterval,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/cli/get-link", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			h := newTestServer(t, mux)

			link, err := h.BeginDeviceLink(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, link.URL)
			assert.Equal(t, tt.wantDevice, link.DeviceID)
			assert.Equal(t, tt.wantInterval, link.PollInterval)
		})
	}
}

func TestBeginDeviceLinkWithoutLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cli/get-link", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"device_id": "d"})
	})
	_, err := newTestServer(t, mux).BeginDeviceLink(context.Background())
	assert.Error(t, err)
}

func TestPollDeviceLink(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cli/get-token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["device_id"] != "dev-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"access_token": "acc", "refresh_token": "ref"}})
	})
	h := newTestServer(t, mux)

	tok, err := h.PollDeviceLink(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.False(t, tok.Ready())

	tok, err = h.PollDeviceLink(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "acc", Refresh: "ref"}, tok)
}

func TestPollDeviceLinkTokenInHeader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cli/get-token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Authorization", "Bearer hdr-token")
		w.WriteHeader(http.StatusOK)
	})
	tok, err := newTestServer(t, mux).PollDeviceLink(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, "hdr-token", tok.Access)
}

func TestPollDeviceLinkRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cli/get-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := newTestServer(t, mux).PollDeviceLink(context.Background(), "d")
	assert.Error(t, err)
}

func TestGetPermissionsFormats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "json api",
			body: `{"data":[{"type":"permissions","attributes":{"tag":"download-videos"}},{"attributes":{"name":"stream-beginner-videos"}}]}`,
			want: []string{"download-videos", "stream-beginner-videos"},
		},
		{
			name: "flat list",
			body: `{"permissions":["stream-professional-videos"," "]}`,
			want: []string{"stream-professional-videos"},
		},
		{
			name: "empty",
			body: `{"data":[]}`,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/permissions", func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer tok" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Header().Set("Content-Type", "application/vnd.api+json")
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := newTestServer(t, mux).GetPermissions(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetPermissionsUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/permissions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := newTestServer(t, mux).GetPermissions(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetMeCachesAndFallsBack(t *testing.T) {
	var fail atomic.Bool
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cli/me", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"id": "42", "attributes": map[string]any{"email": "ada@example.com", "username": "ada"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	h := New(srv.URL, Endpoints{}, WithMeCacheTTL(0))

	u, err := h.GetMe(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "42", Email: "ada@example.com", Name: "ada"}, u)

	fail.Store(true)
	u, err = h.GetMe(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLogoutClearsCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cli/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"user_id": "u1"})
	})
	mux.HandleFunc("/api/cli/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := newTestServer(t, mux)

	_, err := h.GetMe(context.Background(), "tok")
	require.NoError(t, err)
	require.NoError(t, h.Logout(context.Background(), "tok"))
	_, ok := h.cachedMe()
	assert.False(t, ok)
}

func TestParseBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for in, want := range tests {
		if got := parseBearerToken(in); got != want {
			t.Errorf("parseBearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
