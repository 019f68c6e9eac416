package snyk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu       sync.Mutex
	observed []string
}

func (o *countingObserver) ObserveRequest(method string, status int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed = append(o.observed, fmt.Sprintf("%s %d", method, status))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", jsonAPIContentType)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func targetItem(id string, name any) map[string]any {
	attrs := map[string]any{}
	if name != nil {
		attrs["display_name"] = name
	}
	return map[string]any{"id": id, "type": "target", "attributes": attrs}
}

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.snyk.io/", "secret")

	assert.Equal(t, "https://api.snyk.io", client.BaseURL)
	assert.Equal(t, DefaultAPIVersion, client.APIVersion)
	assert.Equal(t, "secret", client.Token)
	require.NotNil(t, client.HTTPClient)
	assert.Equal(t, 30*time.Second, client.HTTPClient.Timeout)
}

func TestNewClientWithHTTPClient(t *testing.T) {
	custom := &http.Client{}
	client := NewClientWithHTTPClient("http://example.com", "secret", custom)

	assert.Same(t, custom, client.HTTPClient)
	assert.Equal(t, DefaultRetries, client.Retries)
}

func TestListOrganizations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/orgs", r.URL.Path)
		assert.Equal(t, DefaultAPIVersion, r.URL.Query().Get("version"))
		assert.Equal(t, "token-123", r.Header.Get("Authorization"))
		assert.Equal(t, jsonAPIContentType, r.Header.Get("Accept"))

		writeJSON(t, w, map[string]any{
			"data": []map[string]any{
				{"id": "org-1", "type": "org", "attributes": map[string]any{"name": "Platform"}},
				{"id": "org-2", "type": "org", "attributes": map[string]any{"name": "Security"}},
			},
		})
	}))
	defer server.Close()

	orgs, err := NewClient(server.URL, "token-123").ListOrganizations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Organization{
		{ID: "org-1", Name: "Platform"},
		{ID: "org-2", Name: "Security"},
	}, orgs)
}

func TestListOrganizationsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"unauthorized"}]}`))
	}))
	defer server.Close()

	orgs, err := NewClient(server.URL, "bad").ListOrganizations(context.Background())
	require.Error(t, err)

	assert.Empty(t, orgs)
	assert.True(t, goerr.HasTag(err, ErrTagOrganizationFetchFailed))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestListTargetsPagination(t *testing.T) {
	var requests int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "/rest/orgs/org-1/targets", r.URL.Path)
		assert.Equal(t, "token-123", r.Header.Get("Authorization"))

		switch r.URL.Query().Get("starting_after") {
		case "":
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			writeJSON(t, w, map[string]any{
				"data": []any{targetItem("t1", "repo-a"), targetItem("t2", "repo-b")},
				// relative link
				"links": map[string]any{"next": "/rest/orgs/org-1/targets?version=2024-10-15&starting_after=p2"},
			})
		case "p2":
			writeJSON(t, w, map[string]any{
				"data": []any{targetItem("t3", "repo-c"), targetItem("t4", nil)},
				// absolute link
				"links": map[string]any{"next": server.URL + "/rest/orgs/org-1/targets?version=2024-10-15&starting_after=p3"},
			})
		case "p3":
			writeJSON(t, w, map[string]any{
				"data":  []any{targetItem("t5", "repo-e")},
				"links": map[string]any{"next": nil},
			})
		default:
			t.Errorf("unexpected page request %s", r.URL.String())
		}
	}))
	defer server.Close()

	targets, err := NewClient(server.URL, "token-123").ListTargets(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, []Target{
		{ID: "t1", Name: "repo-a"},
		{ID: "t2", Name: "repo-b"},
		{ID: "t3", Name: "repo-c"},
		{ID: "t4", Name: UnknownTargetName},
		{ID: "t5", Name: "repo-e"},
	}, targets)
	assert.EqualValues(t, 3, atomic.LoadInt32(&requests))
}

func TestListTargetsKeepsPartialResults(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		switch r.URL.Query().Get("starting_after") {
		case "":
			writeJSON(t, w, map[string]any{
				"data":  []any{targetItem("t1", "repo-a"), targetItem("t2", "repo-b")},
				"links": map[string]any{"next": "/rest/orgs/org-1/targets?starting_after=p2"},
			})
		case "p2":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			writeJSON(t, w, map[string]any{
				"data": []any{targetItem("t9", "never")},
			})
		}
	}))
	defer server.Close()

	targets, err := NewClient(server.URL, "token").ListTargets(context.Background(), "org-1")
	require.Error(t, err)

	assert.True(t, goerr.HasTag(err, ErrTagTargetFetchFailed))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, []Target{{ID: "t1", Name: "repo-a"}, {ID: "t2", Name: "repo-b"}}, targets)
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestListTargetsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": []any{}, "links": map[string]any{}})
	}))
	defer server.Close()

	targets, err := NewClient(server.URL, "token").ListTargets(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestDeleteTarget(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantErr    bool
		wantStatus int
	}{
		{name: "no content is success", status: http.StatusNoContent},
		{name: "ok is not success", status: http.StatusOK, wantErr: true, wantStatus: http.StatusOK},
		{name: "not found", status: http.StatusNotFound, wantErr: true, wantStatus: http.StatusNotFound},
		{name: "server error", status: http.StatusBadGateway, wantErr: true, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/rest/orgs/org-1/targets/target-9", r.URL.Path)
				assert.Equal(t, DefaultAPIVersion, r.URL.Query().Get("version"))
				assert.Equal(t, "token", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := NewClient(server.URL, "token").DeleteTarget(context.Background(), "org-1", "target-9")

			assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, goerr.HasTag(err, ErrTagTargetDeleteFailed))
			assert.Equal(t, tt.wantStatus, StatusCode(err))
		})
	}
}

func TestTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	observer := &countingObserver{}
	client := NewClient(serverURL, "token")
	client.RetryDelay = time.Millisecond
	client.Observer = observer

	_, err := client.ListOrganizations(context.Background())
	require.Error(t, err)
	assert.True(t, goerr.HasTag(err, ErrTagOrganizationFetchFailed))
	assert.Equal(t, 0, StatusCode(err))
	assert.Len(t, observer.observed, 1+DefaultRetries, "GET should be retried on transport errors")

	observer.observed = nil
	err = client.DeleteTarget(context.Background(), "org-1", "t1")
	require.Error(t, err)
	assert.True(t, goerr.HasTag(err, ErrTagTargetDeleteFailed))
	assert.Equal(t, []string{"DELETE 0"}, observer.observed, "DELETE must not be retried")
}

func TestStatusErrorsAreNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "token").ListOrganizations(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolve(t *testing.T) {
	client := NewClient("https://api.snyk.io", "token")

	tests := []struct {
		name string
		link string
		want string
	}{
		{
			name: "path only",
			link: "/rest/orgs/o/targets?starting_after=abc",
			want: "https://api.snyk.io/rest/orgs/o/targets?starting_after=abc",
		},
		{
			name: "absolute on api host",
			link: "https://api.snyk.io/rest/orgs/o/targets?starting_after=abc",
			want: "https://api.snyk.io/rest/orgs/o/targets?starting_after=abc",
		},
		{
			name: "absolute on other host is re-homed",
			link: "http://elsewhere.example.com/rest/orgs/o/targets?starting_after=abc",
			want: "https://api.snyk.io/rest/orgs/o/targets?starting_after=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.resolve(tt.link)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
